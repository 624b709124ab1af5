package domain

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ContentKind is the closed set of shareable content types. Each kind maps to
// exactly one content table and one distributor junction table.
type ContentKind string

const (
	KindTraining      ContentKind = "training_material"
	KindMarketing     ContentKind = "marketing_asset"
	KindDocumentation ContentKind = "documentation"
	KindAnnouncement  ContentKind = "announcement"
	KindRelease       ContentKind = "software_release"
)

var ContentKinds = []ContentKind{KindTraining, KindMarketing, KindDocumentation, KindAnnouncement, KindRelease}

// ContentVersionKey names the cache version counter of a kind's visible listings
func ContentVersionKey(kind ContentKind) string {
	return "content:version:" + string(kind)
}

func ParseContentKind(s string) (ContentKind, error) {
	k, err := oneOf(s, ContentKinds...)
	if err != nil {
		return "", fmt.Errorf("unknown content kind %q", s)
	}
	return k, nil
}

// Shareable is implemented by every content model.
type Shareable interface {
	ContentID() uint64
	ContentTitle() string
	ContentStatus() ContentStatus
}

type ContentBase struct {
	ID          uint64        `json:"id"`
	Title       string        `json:"title" gorm:"size:255;not null"`
	Description string        `json:"description"`
	Status      ContentStatus `json:"status" gorm:"size:32;not null;default:'draft';index"`
	PublishedAt *time.Time    `json:"published_at"`
	CreatedByID uint64        `json:"created_by_id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (c ContentBase) ContentID() uint64            { return c.ID }
func (c ContentBase) ContentTitle() string         { return c.Title }
func (c ContentBase) ContentStatus() ContentStatus { return ContentStatus(canonical(string(c.Status))) }

func (c *ContentBase) BeforeSave(tx *gorm.DB) error {
	c.Status = ContentStatus(canonical(string(c.Status)))
	if c.Status == ContentPublished && c.PublishedAt == nil {
		now := time.Now().UTC()
		c.PublishedAt = &now
	}
	return nil
}

type TrainingMaterial struct {
	ContentBase
	Category string `json:"category" gorm:"size:128"`
	URL      string `json:"url"`
	FileKey  string `json:"file_key"`
}

type MarketingAsset struct {
	ContentBase
	AssetType string `json:"asset_type" gorm:"size:64"`
	URL       string `json:"url"`
	FileKey   string `json:"file_key"`
}

type Documentation struct {
	ContentBase
	Slug string `json:"slug" gorm:"size:255;index"`
	Body string `json:"body"`
}

type Announcement struct {
	ContentBase
	Body     string `json:"body"`
	Priority string `json:"priority" gorm:"size:32;default:'normal'"`
}

type SoftwareRelease struct {
	ContentBase
	Version      string     `json:"version" gorm:"size:64;not null"`
	ProductID    *uint64    `json:"product_id" gorm:"index"`
	ReleaseNotes string     `json:"release_notes"`
	DownloadURL  string     `json:"download_url"`
	TargetType   TargetType `json:"target_type" gorm:"size:32;not null;default:'all'"`
}

func (r SoftwareRelease) Target() TargetType {
	t := TargetType(canonical(string(r.TargetType)))
	if t == "" {
		return TargetAll
	}
	return t
}

func (r *SoftwareRelease) BeforeSave(tx *gorm.DB) error {
	r.TargetType = TargetType(canonical(string(r.TargetType)))
	if r.TargetType == "" {
		r.TargetType = TargetAll
	}
	return r.ContentBase.BeforeSave(tx)
}

// Junction tables. A content item with no rows is visible to every tenant.

type TrainingMaterialDistributor struct {
	TrainingMaterialID uint64 `gorm:"primaryKey"`
	DistributorID      uint64 `gorm:"primaryKey;index"`
	CreatedAt          time.Time
}

type MarketingAssetDistributor struct {
	MarketingAssetID uint64 `gorm:"primaryKey"`
	DistributorID    uint64 `gorm:"primaryKey;index"`
	CreatedAt        time.Time
}

type DocumentationDistributor struct {
	DocumentationID uint64 `gorm:"primaryKey"`
	DistributorID   uint64 `gorm:"primaryKey;index"`
	CreatedAt       time.Time
}

type AnnouncementDistributor struct {
	AnnouncementID uint64 `gorm:"primaryKey"`
	DistributorID  uint64 `gorm:"primaryKey;index"`
	CreatedAt      time.Time
}

type SoftwareReleaseDistributor struct {
	SoftwareReleaseID uint64 `gorm:"primaryKey"`
	DistributorID     uint64 `gorm:"primaryKey;index"`
	CreatedAt         time.Time
}

type SoftwareReleaseDevice struct {
	SoftwareReleaseID uint64 `gorm:"primaryKey"`
	DeviceID          uint64 `gorm:"primaryKey;index"`
	CreatedAt         time.Time
}
