package document

import (
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"distributor-portal/internal/middleware"
	"distributor-portal/internal/utils"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service       Service
	maxUploadSize int64
}

func NewHandler(service Service, maxUploadSize int64) *Handler {
	return &Handler{service: service, maxUploadSize: maxUploadSize}
}

// Upload stores a new document or a new version of an existing one
func (h *Handler) Upload(c *gin.Context) {
	deviceID, ok := utils.ParseID(c, "id")
	if !ok {
		c.Error(errors.BadRequest("Invalid device id", nil))
		return
	}

	var form UploadForm
	if err := c.ShouldBind(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}
	docType, err := domain.ParseDocumentType(form.Type)
	if err != nil {
		apiErr := errors.UnprocessableEntity("Validation failed", err)
		apiErr.Fields = map[string]string{"type": "is invalid"}
		c.Error(apiErr)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.Error(errors.BadRequest("File is required", err))
		return
	}
	if h.maxUploadSize > 0 && fileHeader.Size > h.maxUploadSize {
		c.Error(errors.New(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File exceeds the %d byte limit", h.maxUploadSize), nil))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.Error(errors.BadRequest("Unreadable file", err))
		return
	}
	defer file.Close()

	mime := fileHeader.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}

	doc, err := h.service.Upload(c.Request.Context(), middleware.PrincipalFrom(c), UploadInput{
		DeviceID:          deviceID,
		Title:             form.Title,
		Type:              docType,
		Version:           form.Version,
		PreviousVersionID: form.PreviousVersionID,
		ShareWithCustomer: form.ShareWithCustomer,
		FileName:          fileHeader.Filename,
		FileSize:          fileHeader.Size,
		MimeType:          mime,
	}, file)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) List(c *gin.Context) {
	deviceID, ok := utils.ParseID(c, "id")
	if !ok {
		c.Error(errors.BadRequest("Invalid device id", nil))
		return
	}

	docs, err := h.service.List(c.Request.Context(), middleware.PrincipalFrom(c), deviceID, !utils.QueryBool(c, "all", false))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": docs})
}

func (h *Handler) Show(c *gin.Context) {
	id, ok := utils.ParseID(c, "docID")
	if !ok {
		c.Error(errors.BadRequest("Invalid document id", nil))
		return
	}

	doc, err := h.service.Get(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := utils.ParseID(c, "docID")
	if !ok {
		c.Error(errors.BadRequest("Invalid document id", nil))
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	doc, err := h.service.Update(c.Request.Context(), middleware.PrincipalFrom(c), id, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Share(c *gin.Context) {
	id, ok := utils.ParseID(c, "docID")
	if !ok {
		c.Error(errors.BadRequest("Invalid document id", nil))
		return
	}

	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	doc, err := h.service.SetShared(c.Request.Context(), middleware.PrincipalFrom(c), id, req.Shared)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Archive(c *gin.Context) {
	id, ok := utils.ParseID(c, "docID")
	if !ok {
		c.Error(errors.BadRequest("Invalid document id", nil))
		return
	}

	doc, err := h.service.Archive(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := utils.ParseID(c, "docID")
	if !ok {
		c.Error(errors.BadRequest("Invalid document id", nil))
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.PrincipalFrom(c), id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) History(c *gin.Context) {
	deviceID, ok := utils.ParseID(c, "id")
	if !ok {
		c.Error(errors.BadRequest("Invalid device id", nil))
		return
	}
	documentID, _ := strconv.ParseUint(c.Query("document_id"), 10, 64)

	entries, err := h.service.History(c.Request.Context(), middleware.PrincipalFrom(c), deviceID, documentID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
