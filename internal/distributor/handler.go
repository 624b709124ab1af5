package distributor

import (
	"distributor-portal/internal/errors"
	"distributor-portal/internal/middleware"
	"distributor-portal/internal/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	d, first, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"distributor": d, "first_user": first})
}

func (h *Handler) List(c *gin.Context) {
	page, err := h.service.List(
		c.Request.Context(),
		Filter{Status: c.Query("status"), Search: c.Query("q")},
		utils.GetPaginationParams(c),
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *Handler) Show(c *gin.Context) {
	id, ok := utils.ParseID(c, "id")
	if !ok {
		c.Error(errors.BadRequest("Invalid distributor id", nil))
		return
	}

	d, err := h.service.Get(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, d)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := utils.ParseID(c, "id")
	if !ok {
		c.Error(errors.BadRequest("Invalid distributor id", nil))
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	d, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, d)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := utils.ParseID(c, "id")
	if !ok {
		c.Error(errors.BadRequest("Invalid distributor id", nil))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
