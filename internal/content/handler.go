package content

import (
	"distributor-portal/internal/domain"
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

func kindParam(c *gin.Context) (domain.ContentKind, bool) {
	kind, err := domain.ParseContentKind(c.Param("kind"))
	if err != nil {
		c.Error(errors.NotFound("Unknown content kind", err))
		return "", false
	}
	return kind, true
}

// target reads the kind and id path parameters
func target(c *gin.Context) (domain.ContentKind, uint64, bool) {
	kind, ok := kindParam(c)
	if !ok {
		return "", 0, false
	}
	id, ok := utils.ParseID(c, "id")
	if !ok {
		c.Error(errors.BadRequest("Invalid content id", nil))
		return "", 0, false
	}
	return kind, id, true
}

// Visible lists content of a kind for the caller's distributor
func (h *Handler) Visible(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}

	items, err := h.service.Visible(c.Request.Context(), middleware.PrincipalFrom(c), kind)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (h *Handler) ShowVisible(c *gin.Context) {
	kind, id, ok := target(c)
	if !ok {
		return
	}

	item, err := h.service.ShowVisible(c.Request.Context(), middleware.PrincipalFrom(c), kind, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) Create(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}

	var form Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	item, err := h.service.Create(c.Request.Context(), middleware.PrincipalFrom(c), kind, form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *Handler) List(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}

	page, err := h.service.List(c.Request.Context(), kind, c.Query("status"), utils.GetPaginationParams(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *Handler) Show(c *gin.Context) {
	kind, id, ok := target(c)
	if !ok {
		return
	}

	item, err := h.service.Get(c.Request.Context(), kind, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) Update(c *gin.Context) {
	kind, id, ok := target(c)
	if !ok {
		return
	}

	var form Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	item, err := h.service.Update(c.Request.Context(), kind, id, form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) Publish(c *gin.Context) {
	kind, id, ok := target(c)
	if !ok {
		return
	}

	var req PublishRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewValidationError(err))
			return
		}
	}

	result, err := h.service.Publish(c.Request.Context(), kind, id, req.Notify)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Archive(c *gin.Context) {
	kind, id, ok := target(c)
	if !ok {
		return
	}

	item, err := h.service.Archive(c.Request.Context(), kind, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) Delete(c *gin.Context) {
	kind, id, ok := target(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), kind, id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Sharing(c *gin.Context) {
	kind, id, ok := target(c)
	if !ok {
		return
	}

	sharing, err := h.service.Sharing(c.Request.Context(), kind, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, sharing)
}

func (h *Handler) SetSharing(c *gin.Context) {
	kind, id, ok := target(c)
	if !ok {
		return
	}

	var req SharingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	sharing, err := h.service.SetSharing(c.Request.Context(), kind, id, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, sharing)
}

// Notify runs the notification batch synchronously and returns its result
func (h *Handler) Notify(c *gin.Context) {
	kind, id, ok := target(c)
	if !ok {
		return
	}

	var req NotifyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewValidationError(err))
			return
		}
	}

	result, err := h.service.Notify(c.Request.Context(), kind, id, onlyUnnotified(req.OnlyUnnotified))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) NotificationStatus(c *gin.Context) {
	kind, id, ok := target(c)
	if !ok {
		return
	}

	records, err := h.service.NotificationStatus(c.Request.Context(), kind, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

// Trigger is the internal re-trigger used by schedulers
func (h *Handler) Trigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}
	kind, err := domain.ParseContentKind(req.ContentKind)
	if err != nil {
		c.Error(errors.BadRequest("Unknown content kind", err))
		return
	}

	result, err := h.service.Notify(c.Request.Context(), kind, req.ContentID, onlyUnnotified(req.OnlyUnnotified))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
