package document

import (
	"distributor-portal/internal/domain"
	"time"
)

// UploadForm is the multipart form of an upload
type UploadForm struct {
	Title             string  `form:"title" binding:"required,max=255"`
	Type              string  `form:"type" binding:"required"`
	Version           string  `form:"version" binding:"max=64"`
	PreviousVersionID *uint64 `form:"previous_version_id"`
	ShareWithCustomer bool    `form:"share_with_customer"`
}

type UploadInput struct {
	DeviceID          uint64
	Title             string
	Type              domain.DocumentType
	Version           string
	PreviousVersionID *uint64
	ShareWithCustomer bool
	FileName          string
	FileSize          int64
	MimeType          string
}

type UpdateRequest struct {
	Title   *string `json:"title" binding:"omitempty,min=1,max=255"`
	Version *string `json:"version" binding:"omitempty,min=1,max=64"`
}

type ShareRequest struct {
	Shared bool `json:"shared"`
}

// DocumentResponse adds a download link to a document
type DocumentResponse struct {
	domain.DeviceDocument
	DownloadURL string `json:"download_url,omitempty"`
}

// snapshot is the audited subset of a document
type snapshot struct {
	Title              string                `json:"title"`
	Version            string                `json:"version"`
	Status             domain.DocumentStatus `json:"status"`
	IsLatest           bool                  `json:"is_latest"`
	SharedWithCustomer bool                  `json:"shared_with_customer"`
	SharedAt           *time.Time            `json:"shared_at,omitempty"`
	FileName           string                `json:"file_name,omitempty"`
}

func snapshotOf(d *domain.DeviceDocument) snapshot {
	return snapshot{
		Title:              d.Title,
		Version:            d.Version,
		Status:             d.Status,
		IsLatest:           d.IsLatest,
		SharedWithCustomer: d.SharedWithCustomer,
		SharedAt:           d.SharedAt,
		FileName:           d.FileName,
	}
}
