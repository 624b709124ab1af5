package content

import (
	"distributor-portal/internal/domain"
	"fmt"
	"strings"
)

// Form carries the fields of every content kind. Fields that do not belong to
// the kind being written are ignored.
type Form struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`

	Category  string `json:"category" binding:"max=128"`
	AssetType string `json:"asset_type" binding:"max=64"`
	URL       string `json:"url" binding:"omitempty,url"`
	FileKey   string `json:"file_key"`
	Slug      string `json:"slug" binding:"max=255"`
	Body      string `json:"body"`
	Priority  string `json:"priority" binding:"omitempty,oneof=low normal high"`

	Version      string  `json:"version" binding:"max=64"`
	ProductID    *uint64 `json:"product_id"`
	ReleaseNotes string  `json:"release_notes"`
	DownloadURL  string  `json:"download_url" binding:"omitempty,url"`
	TargetType   string  `json:"target_type"`
}

type SharingRequest struct {
	DistributorIDs []uint64 `json:"distributor_ids"`
	DeviceIDs      []uint64 `json:"device_ids"`
}

// Sharing is the current allow-list of an item. Empty lists mean every
// distributor.
type Sharing struct {
	DistributorIDs []uint64 `json:"distributor_ids"`
	DeviceIDs      []uint64 `json:"device_ids,omitempty"`
}

type PublishRequest struct {
	Notify bool `json:"notify"`
}

type NotifyRequest struct {
	OnlyUnnotified *bool `json:"only_unnotified"`
}

// TriggerRequest is the body of the internal re-trigger endpoint
type TriggerRequest struct {
	ContentKind    string `json:"content_kind" binding:"required"`
	ContentID      uint64 `json:"content_id" binding:"required"`
	OnlyUnnotified *bool  `json:"only_unnotified"`
}

func onlyUnnotified(v *bool) bool {
	return v == nil || *v
}

type PublishResult struct {
	Item           any  `json:"item"`
	NotifyQueued   bool `json:"notify_queued"`
	NotifyRejected bool `json:"notify_rejected,omitempty"`
}

// newModel returns an empty model pointer for a kind
func newModel(kind domain.ContentKind) (any, error) {
	switch kind {
	case domain.KindTraining:
		return &domain.TrainingMaterial{}, nil
	case domain.KindMarketing:
		return &domain.MarketingAsset{}, nil
	case domain.KindDocumentation:
		return &domain.Documentation{}, nil
	case domain.KindAnnouncement:
		return &domain.Announcement{}, nil
	case domain.KindRelease:
		return &domain.SoftwareRelease{}, nil
	}
	return nil, fmt.Errorf("unknown content kind %q", kind)
}

func baseOf(model any) *domain.ContentBase {
	switch m := model.(type) {
	case *domain.TrainingMaterial:
		return &m.ContentBase
	case *domain.MarketingAsset:
		return &m.ContentBase
	case *domain.Documentation:
		return &m.ContentBase
	case *domain.Announcement:
		return &m.ContentBase
	case *domain.SoftwareRelease:
		return &m.ContentBase
	}
	return nil
}

// apply copies the form onto a model. It returns field errors for values the
// kind requires.
func apply(model any, f Form) map[string]string {
	fields := map[string]string{}
	base := baseOf(model)
	base.Title = strings.TrimSpace(f.Title)
	base.Description = f.Description

	switch m := model.(type) {
	case *domain.TrainingMaterial:
		m.Category = f.Category
		m.URL = f.URL
		m.FileKey = f.FileKey
	case *domain.MarketingAsset:
		m.AssetType = f.AssetType
		m.URL = f.URL
		m.FileKey = f.FileKey
	case *domain.Documentation:
		m.Slug = slugify(f.Slug, f.Title)
		m.Body = f.Body
	case *domain.Announcement:
		m.Body = f.Body
		m.Priority = f.Priority
		if m.Priority == "" {
			m.Priority = "normal"
		}
	case *domain.SoftwareRelease:
		m.Version = strings.TrimSpace(f.Version)
		if m.Version == "" {
			fields["version"] = "is required"
		}
		m.ProductID = f.ProductID
		m.ReleaseNotes = f.ReleaseNotes
		m.DownloadURL = f.DownloadURL
		m.TargetType = domain.TargetAll
		if f.TargetType != "" {
			target, err := domain.ParseTargetType(f.TargetType)
			if err != nil {
				fields["target_type"] = "must be one of: all distributors devices"
			}
			m.TargetType = target
		}
	}
	return fields
}

func slugify(slug, title string) string {
	if s := strings.TrimSpace(slug); s != "" {
		title = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// shareable returns the value form of a model pointer
func shareable(model any) domain.Shareable {
	switch m := model.(type) {
	case *domain.TrainingMaterial:
		return *m
	case *domain.MarketingAsset:
		return *m
	case *domain.Documentation:
		return *m
	case *domain.Announcement:
		return *m
	case *domain.SoftwareRelease:
		return *m
	}
	return nil
}

// visibleTarget returns a typed slice pointer to decode cached listings into
func visibleTarget(kind domain.ContentKind) any {
	switch kind {
	case domain.KindTraining:
		return &[]domain.TrainingMaterial{}
	case domain.KindMarketing:
		return &[]domain.MarketingAsset{}
	case domain.KindDocumentation:
		return &[]domain.Documentation{}
	case domain.KindAnnouncement:
		return &[]domain.Announcement{}
	case domain.KindRelease:
		return &[]domain.SoftwareRelease{}
	}
	return nil
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
