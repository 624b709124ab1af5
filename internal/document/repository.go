package document

import (
	"context"
	"distributor-portal/internal/domain"
	"encoding/json"
	"errors"
	"strconv"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotLatest is returned when a new version names a superseded predecessor
var ErrNotLatest = errors.New("document is not the latest version")

type DocumentRepository interface {
	DeviceOwner(ctx context.Context, deviceID uint64) (uint64, error)
	FindByID(ctx context.Context, id uint64) (*domain.DeviceDocument, error)
	ListByDevice(ctx context.Context, deviceID uint64, latestOnly bool) ([]domain.DeviceDocument, error)
	Create(ctx context.Context, doc *domain.DeviceDocument, userID uint64) error
	Update(ctx context.Context, doc *domain.DeviceDocument, fields map[string]any, action domain.HistoryAction, userID uint64) error
	Delete(ctx context.Context, doc *domain.DeviceDocument, userID uint64) error
	History(ctx context.Context, deviceID uint64, documentID uint64) ([]domain.DocumentHistoryEntry, error)
}

type DocumentRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) DocumentRepository {
	return &DocumentRepositoryImpl{db: db}
}

// DeviceOwner returns the distributor owning a device through its customer
func (r *DocumentRepositoryImpl) DeviceOwner(ctx context.Context, deviceID uint64) (uint64, error) {
	var row struct{ DistributorID uint64 }
	err := r.db.WithContext(ctx).
		Table("devices").
		Select("customers.distributor_id").
		Joins("JOIN customers ON customers.id = devices.customer_id").
		Where("devices.id = ?", deviceID).
		Take(&row).Error
	return row.DistributorID, err
}

func (r *DocumentRepositoryImpl) FindByID(ctx context.Context, id uint64) (*domain.DeviceDocument, error) {
	var doc domain.DeviceDocument
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepositoryImpl) ListByDevice(ctx context.Context, deviceID uint64, latestOnly bool) ([]domain.DeviceDocument, error) {
	var docs []domain.DeviceDocument
	q := r.db.WithContext(ctx).Where("device_id = ?", deviceID)
	if latestOnly {
		q = q.Where("is_latest = ?", true)
	}
	err := q.Order("title, type, id DESC").Find(&docs).Error
	return docs, err
}

func jsonOf(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func record(tx *gorm.DB, doc *domain.DeviceDocument, action domain.HistoryAction, userID uint64, oldValue, newValue any) error {
	return tx.Create(&domain.DocumentHistoryEntry{
		DocumentID: doc.ID,
		DeviceID:   doc.DeviceID,
		Action:     action,
		UserID:     userID,
		OldValue:   jsonOf(oldValue),
		NewValue:   jsonOf(newValue),
	}).Error
}

// latestOfLineage locks the current latest version of a lineage
func latestOfLineage(tx *gorm.DB, doc *domain.DeviceDocument) (*domain.DeviceDocument, error) {
	var prev domain.DeviceDocument
	q := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	if doc.PreviousVersionID != nil {
		q = q.Where("id = ? AND device_id = ?", *doc.PreviousVersionID, doc.DeviceID)
	} else {
		q = q.Where("device_id = ? AND title = ? AND type = ? AND is_latest = ?", doc.DeviceID, doc.Title, doc.Type, true)
	}
	err := q.Order("id DESC").First(&prev).Error
	if err != nil {
		return nil, err
	}
	return &prev, nil
}

// Create stores a document. When it continues a lineage the previous latest
// version is superseded and linked, leaving one latest per lineage.
func (r *DocumentRepositoryImpl) Create(ctx context.Context, doc *domain.DeviceDocument, userID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prev, err := latestOfLineage(tx, doc)
		if errors.Is(err, gorm.ErrRecordNotFound) && doc.PreviousVersionID == nil {
			prev, err = nil, nil
		}
		if err != nil {
			return err
		}

		if prev != nil {
			if !prev.IsLatest {
				return ErrNotLatest
			}
			doc.Title = prev.Title
			doc.Type = prev.Type
			doc.PreviousVersionID = &prev.ID
			if doc.Version == "" {
				doc.Version = nextVersion(prev.Version)
			}
			before := snapshotOf(prev)
			if err := tx.Model(prev).Updates(map[string]any{
				"is_latest": false,
				"status":    domain.DocumentSuperseded,
			}).Error; err != nil {
				return err
			}
			prev.IsLatest = false
			prev.Status = domain.DocumentSuperseded
			if err := record(tx, prev, domain.HistoryVersioned, userID, before, snapshotOf(prev)); err != nil {
				return err
			}
		}
		if doc.Version == "" {
			doc.Version = "1"
		}
		doc.IsLatest = true

		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		return record(tx, doc, domain.HistoryCreated, userID, nil, snapshotOf(doc))
	})
}

// nextVersion bumps a plain integer version, otherwise appends a suffix
func nextVersion(v string) string {
	if n, err := strconv.Atoi(v); err == nil {
		return strconv.Itoa(n + 1)
	}
	return v + ".1"
}

func (r *DocumentRepositoryImpl) Update(ctx context.Context, doc *domain.DeviceDocument, fields map[string]any, action domain.HistoryAction, userID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before := snapshotOf(doc)
		if err := tx.Model(doc).Updates(fields).Error; err != nil {
			return err
		}
		if err := tx.First(doc, doc.ID).Error; err != nil {
			return err
		}
		return record(tx, doc, action, userID, before, snapshotOf(doc))
	})
}

// Delete removes one version. Deleting the latest promotes its predecessor and
// later versions are relinked past the removed one.
func (r *DocumentRepositoryImpl) Delete(ctx context.Context, doc *domain.DeviceDocument, userID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.DeviceDocument{}).
			Where("previous_version_id = ?", doc.ID).
			Update("previous_version_id", doc.PreviousVersionID).Error; err != nil {
			return err
		}
		if doc.IsLatest && doc.PreviousVersionID != nil {
			if err := tx.Model(&domain.DeviceDocument{}).
				Where("id = ?", *doc.PreviousVersionID).
				Updates(map[string]any{"is_latest": true, "status": domain.DocumentActive}).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&domain.DeviceDocument{}, doc.ID).Error; err != nil {
			return err
		}
		return record(tx, doc, domain.HistoryDeleted, userID, snapshotOf(doc), nil)
	})
}

// History lists audit entries of a device, or of one document when documentID
// is set
func (r *DocumentRepositoryImpl) History(ctx context.Context, deviceID uint64, documentID uint64) ([]domain.DocumentHistoryEntry, error) {
	var entries []domain.DocumentHistoryEntry
	q := r.db.WithContext(ctx).Where("device_id = ?", deviceID)
	if documentID != 0 {
		q = q.Where("document_id = ?", documentID)
	}
	err := q.Order("id DESC").Find(&entries).Error
	return entries, err
}
