package content

import (
	"context"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/utils"
	"fmt"

	"gorm.io/gorm"
)

// junction describes how a kind stores its distributor allow-list
type junction struct {
	model  func() any
	column string
	rows   func(contentID uint64, distributorIDs []uint64) any
}

var junctions = map[domain.ContentKind]junction{
	domain.KindTraining: {
		model:  func() any { return &domain.TrainingMaterialDistributor{} },
		column: "training_material_id",
		rows: func(id uint64, ds []uint64) any {
			out := make([]domain.TrainingMaterialDistributor, len(ds))
			for i, d := range ds {
				out[i] = domain.TrainingMaterialDistributor{TrainingMaterialID: id, DistributorID: d}
			}
			return &out
		},
	},
	domain.KindMarketing: {
		model:  func() any { return &domain.MarketingAssetDistributor{} },
		column: "marketing_asset_id",
		rows: func(id uint64, ds []uint64) any {
			out := make([]domain.MarketingAssetDistributor, len(ds))
			for i, d := range ds {
				out[i] = domain.MarketingAssetDistributor{MarketingAssetID: id, DistributorID: d}
			}
			return &out
		},
	},
	domain.KindDocumentation: {
		model:  func() any { return &domain.DocumentationDistributor{} },
		column: "documentation_id",
		rows: func(id uint64, ds []uint64) any {
			out := make([]domain.DocumentationDistributor, len(ds))
			for i, d := range ds {
				out[i] = domain.DocumentationDistributor{DocumentationID: id, DistributorID: d}
			}
			return &out
		},
	},
	domain.KindAnnouncement: {
		model:  func() any { return &domain.AnnouncementDistributor{} },
		column: "announcement_id",
		rows: func(id uint64, ds []uint64) any {
			out := make([]domain.AnnouncementDistributor, len(ds))
			for i, d := range ds {
				out[i] = domain.AnnouncementDistributor{AnnouncementID: id, DistributorID: d}
			}
			return &out
		},
	},
	domain.KindRelease: {
		model:  func() any { return &domain.SoftwareReleaseDistributor{} },
		column: "software_release_id",
		rows: func(id uint64, ds []uint64) any {
			out := make([]domain.SoftwareReleaseDistributor, len(ds))
			for i, d := range ds {
				out[i] = domain.SoftwareReleaseDistributor{SoftwareReleaseID: id, DistributorID: d}
			}
			return &out
		},
	},
}

type ContentRepository interface {
	Create(ctx context.Context, model any) error
	Find(ctx context.Context, kind domain.ContentKind, id uint64) (any, error)
	Save(ctx context.Context, model any) error
	Delete(ctx context.Context, kind domain.ContentKind, id uint64) error
	List(ctx context.Context, kind domain.ContentKind, status domain.ContentStatus, p utils.Pagination) (any, error)
	Sharing(ctx context.Context, kind domain.ContentKind, id uint64) (*Sharing, error)
	SetSharing(ctx context.Context, kind domain.ContentKind, id uint64, distributorIDs, deviceIDs []uint64) error
	MissingDistributors(ctx context.Context, ids []uint64) ([]uint64, error)
	MissingDevices(ctx context.Context, ids []uint64) ([]uint64, error)
}

type ContentRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) ContentRepository {
	return &ContentRepositoryImpl{db: db}
}

func (r *ContentRepositoryImpl) Create(ctx context.Context, model any) error {
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *ContentRepositoryImpl) Find(ctx context.Context, kind domain.ContentKind, id uint64) (any, error) {
	model, err := newModel(kind)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).First(model, id).Error; err != nil {
		return nil, err
	}
	return model, nil
}

func (r *ContentRepositoryImpl) Save(ctx context.Context, model any) error {
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes an item with its sharing rows. Notification records are
// kept as the delivery log.
func (r *ContentRepositoryImpl) Delete(ctx context.Context, kind domain.ContentKind, id uint64) error {
	j, ok := junctions[kind]
	if !ok {
		return fmt.Errorf("unknown content kind %q", kind)
	}
	model, err := newModel(kind)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(j.column+" = ?", id).Delete(j.model()).Error; err != nil {
			return err
		}
		if kind == domain.KindRelease {
			if err := tx.Where("software_release_id = ?", id).Delete(&domain.SoftwareReleaseDevice{}).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(model, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List returns a utils.Page of the kind's models
func (r *ContentRepositoryImpl) List(ctx context.Context, kind domain.ContentKind, status domain.ContentStatus, p utils.Pagination) (any, error) {
	db := r.db.WithContext(ctx)
	switch kind {
	case domain.KindTraining:
		return list[domain.TrainingMaterial](db, status, p)
	case domain.KindMarketing:
		return list[domain.MarketingAsset](db, status, p)
	case domain.KindDocumentation:
		return list[domain.Documentation](db, status, p)
	case domain.KindAnnouncement:
		return list[domain.Announcement](db, status, p)
	case domain.KindRelease:
		return list[domain.SoftwareRelease](db, status, p)
	}
	return nil, fmt.Errorf("unknown content kind %q", kind)
}

func list[T any](db *gorm.DB, status domain.ContentStatus, p utils.Pagination) (any, error) {
	filtered := func() *gorm.DB {
		q := db.Model(new(T))
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, err
	}
	var rows []T
	if err := filtered().Scopes(p.Scope()).Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return utils.NewPage(rows, total, p), nil
}

func (r *ContentRepositoryImpl) Sharing(ctx context.Context, kind domain.ContentKind, id uint64) (*Sharing, error) {
	j, ok := junctions[kind]
	if !ok {
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}
	out := &Sharing{DistributorIDs: []uint64{}}
	db := r.db.WithContext(ctx)
	if err := db.Model(j.model()).Where(j.column+" = ?", id).Order("distributor_id").
		Pluck("distributor_id", &out.DistributorIDs).Error; err != nil {
		return nil, err
	}
	if kind == domain.KindRelease {
		out.DeviceIDs = []uint64{}
		if err := db.Model(&domain.SoftwareReleaseDevice{}).Where("software_release_id = ?", id).Order("device_id").
			Pluck("device_id", &out.DeviceIDs).Error; err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SetSharing replaces the allow-lists of an item. deviceIDs only apply to
// releases.
func (r *ContentRepositoryImpl) SetSharing(ctx context.Context, kind domain.ContentKind, id uint64, distributorIDs, deviceIDs []uint64) error {
	j, ok := junctions[kind]
	if !ok {
		return fmt.Errorf("unknown content kind %q", kind)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(j.column+" = ?", id).Delete(j.model()).Error; err != nil {
			return err
		}
		if len(distributorIDs) > 0 {
			if err := tx.Create(j.rows(id, distributorIDs)).Error; err != nil {
				return err
			}
		}
		if kind != domain.KindRelease {
			return nil
		}
		if err := tx.Where("software_release_id = ?", id).Delete(&domain.SoftwareReleaseDevice{}).Error; err != nil {
			return err
		}
		if len(deviceIDs) == 0 {
			return nil
		}
		rows := make([]domain.SoftwareReleaseDevice, len(deviceIDs))
		for i, d := range deviceIDs {
			rows[i] = domain.SoftwareReleaseDevice{SoftwareReleaseID: id, DeviceID: d}
		}
		return tx.Create(&rows).Error
	})
}

func (r *ContentRepositoryImpl) MissingDistributors(ctx context.Context, ids []uint64) ([]uint64, error) {
	return r.missing(ctx, &domain.Distributor{}, ids)
}

func (r *ContentRepositoryImpl) MissingDevices(ctx context.Context, ids []uint64) ([]uint64, error) {
	return r.missing(ctx, &domain.Device{}, ids)
}

func (r *ContentRepositoryImpl) missing(ctx context.Context, model any, ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint64
	if err := r.db.WithContext(ctx).Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	have := make(map[uint64]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	var out []uint64
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}
