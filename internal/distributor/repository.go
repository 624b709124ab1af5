package distributor

import (
	"context"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/utils"
	"distributor-portal/internal/visibility"
	"strings"

	"gorm.io/gorm"
)

type DistributorRepository interface {
	Create(ctx context.Context, d *domain.Distributor, firstUser *domain.User) error
	FindByID(ctx context.Context, id uint64) (*domain.Distributor, error)
	List(ctx context.Context, f Filter, p utils.Pagination) ([]domain.Distributor, int64, error)
	Update(ctx context.Context, id uint64, fields map[string]any) error
	FileKeys(ctx context.Context, id uint64) ([]string, error)
	Delete(ctx context.Context, id uint64) error
}

type DistributorRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) DistributorRepository {
	return &DistributorRepositoryImpl{db: db}
}

// Create inserts the distributor and, when given, its first user in one
// transaction
func (r *DistributorRepositoryImpl) Create(ctx context.Context, d *domain.Distributor, firstUser *domain.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Users", "Customers").Create(d).Error; err != nil {
			return err
		}
		if firstUser == nil {
			return nil
		}
		firstUser.DistributorID = d.ID
		return tx.Create(firstUser).Error
	})
}

func (r *DistributorRepositoryImpl) FindByID(ctx context.Context, id uint64) (*domain.Distributor, error) {
	var d domain.Distributor
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DistributorRepositoryImpl) List(ctx context.Context, f Filter, p utils.Pagination) ([]domain.Distributor, int64, error) {
	var (
		rows  []domain.Distributor
		total int64
	)
	q := r.db.WithContext(ctx).Model(&domain.Distributor{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(territory) LIKE ?", like, like)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("name, id").Scopes(p.Scope()).Find(&rows).Error
	return rows, total, err
}

func (r *DistributorRepositoryImpl) Update(ctx context.Context, id uint64, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&domain.Distributor{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FileKeys lists the stored files of every device document the distributor owns
func (r *DistributorRepositoryImpl) FileKeys(ctx context.Context, id uint64) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Model(&domain.DeviceDocument{}).
		Joins("JOIN devices ON devices.id = device_documents.device_id").
		Joins("JOIN customers ON customers.id = devices.customer_id").
		Where("customers.distributor_id = ? AND device_documents.file_key <> ''", id).
		Pluck("device_documents.file_key", &keys).Error
	return keys, err
}

// Delete removes the distributor with its users, customers and devices.
// Sharing rows naming it or its devices are detached.
func (r *DistributorRepositoryImpl) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var deviceIDs []uint64
		err := tx.Model(&domain.Device{}).
			Joins("JOIN customers ON customers.id = devices.customer_id").
			Where("customers.distributor_id = ?", id).
			Pluck("devices.id", &deviceIDs).Error
		if err != nil {
			return err
		}

		if err := visibility.Detach(tx, id, deviceIDs); err != nil {
			return err
		}
		if len(deviceIDs) > 0 {
			if err := tx.Where("device_id IN ?", deviceIDs).Delete(&domain.DeviceDocument{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&domain.Device{}, deviceIDs).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("distributor_id = ?", id).Delete(&domain.Customer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("distributor_id = ?", id).Delete(&domain.User{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&domain.Distributor{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
