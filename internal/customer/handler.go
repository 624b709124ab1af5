package customer

import (
	"distributor-portal/internal/errors"
	"distributor-portal/internal/middleware"
	"distributor-portal/internal/utils"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var form Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	customer, err := h.service.Create(c.Request.Context(), middleware.PrincipalFrom(c), form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) List(c *gin.Context) {
	distributorID, _ := strconv.ParseUint(c.Query("distributor_id"), 10, 64)

	page, err := h.service.List(
		c.Request.Context(),
		middleware.PrincipalFrom(c),
		distributorID,
		c.Query("q"),
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
		c.Error(errors.BadRequest("Invalid customer id", nil))
		return
	}

	customer, err := h.service.Get(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := utils.ParseID(c, "id")
	if !ok {
		c.Error(errors.BadRequest("Invalid customer id", nil))
		return
	}

	var form Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	customer, err := h.service.Update(c.Request.Context(), middleware.PrincipalFrom(c), id, form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, customer)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := utils.ParseID(c, "id")
	if !ok {
		c.Error(errors.BadRequest("Invalid customer id", nil))
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.PrincipalFrom(c), id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
