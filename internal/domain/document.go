package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeviceDocument is one version of a document attached to a device. A
// lineage is the set of versions sharing (device, title, type).
type DeviceDocument struct {
	ID                 uint64         `json:"id"`
	DeviceID           uint64         `json:"device_id" gorm:"not null;index:idx_doc_lineage"`
	Title              string         `json:"title" gorm:"size:255;not null;index:idx_doc_lineage"`
	Type               DocumentType   `json:"type" gorm:"size:32;not null;index:idx_doc_lineage"`
	Version            string         `json:"version" gorm:"size:64;not null"`
	IsLatest           bool           `json:"is_latest" gorm:"default:true;index"`
	PreviousVersionID  *uint64        `json:"previous_version_id"`
	FileKey            string         `json:"-"`
	FileName           string         `json:"file_name"`
	FileSize           int64          `json:"file_size"`
	MimeType           string         `json:"mime_type"`
	Status             DocumentStatus `json:"status" gorm:"size:32;not null;default:'active'"`
	SharedWithCustomer bool           `json:"shared_with_customer" gorm:"default:false"`
	SharedAt           *time.Time     `json:"shared_at"`
	UploadedByID       uint64         `json:"uploaded_by_id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (d *DeviceDocument) BeforeSave(tx *gorm.DB) error {
	d.Status = DocumentStatus(canonical(string(d.Status)))
	d.Type = DocumentType(canonical(string(d.Type)))
	return nil
}

type HistoryAction string

const (
	HistoryCreated   HistoryAction = "created"
	HistoryUpdated   HistoryAction = "updated"
	HistoryShared    HistoryAction = "shared"
	HistoryUnshared  HistoryAction = "unshared"
	HistoryVersioned HistoryAction = "versioned"
	HistoryDeleted   HistoryAction = "deleted"
)

// DocumentHistoryEntry is an append-only audit row. DocumentID is kept after
// the document is deleted, so it is not a foreign key.
type DocumentHistoryEntry struct {
	ID         uint64         `json:"id"`
	DocumentID uint64         `json:"document_id" gorm:"not null;index"`
	DeviceID   uint64         `json:"device_id" gorm:"not null;index"`
	Action     HistoryAction  `json:"action" gorm:"size:32;not null"`
	UserID     uint64         `json:"user_id"`
	OldValue   datatypes.JSON `json:"old_value,omitempty"`
	NewValue   datatypes.JSON `json:"new_value,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
