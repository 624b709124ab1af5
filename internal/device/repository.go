package device

import (
	"context"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/utils"
	"distributor-portal/internal/visibility"
	"strings"

	"gorm.io/gorm"
)

type DeviceRepository interface {
	Create(ctx context.Context, d *domain.Device) error
	Save(ctx context.Context, d *domain.Device) error
	FindByID(ctx context.Context, id uint64) (*domain.Device, error)
	SerialTaken(ctx context.Context, serial string, exceptID uint64) (bool, error)
	CustomerOwner(ctx context.Context, customerID uint64) (uint64, error)
	List(ctx context.Context, f Filter, p utils.Pagination) ([]Listing, int64, error)
	FileKeys(ctx context.Context, id uint64) ([]string, error)
	Delete(ctx context.Context, id uint64) error
}

type DeviceRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) DeviceRepository {
	return &DeviceRepositoryImpl{db: db}
}

func (r *DeviceRepositoryImpl) Create(ctx context.Context, d *domain.Device) error {
	return r.db.WithContext(ctx).Omit("Customer", "Documents").Create(d).Error
}

func (r *DeviceRepositoryImpl) Save(ctx context.Context, d *domain.Device) error {
	return r.db.WithContext(ctx).Omit("Customer", "Documents").Save(d).Error
}

// FindByID loads a device with its customer
func (r *DeviceRepositoryImpl) FindByID(ctx context.Context, id uint64) (*domain.Device, error) {
	var d domain.Device
	if err := r.db.WithContext(ctx).Preload("Customer").First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeviceRepositoryImpl) SerialTaken(ctx context.Context, serial string, exceptID uint64) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&domain.Device{}).Where("serial_number = ?", serial)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// CustomerOwner returns the distributor owning a customer
func (r *DeviceRepositoryImpl) CustomerOwner(ctx context.Context, customerID uint64) (uint64, error) {
	var c domain.Customer
	if err := r.db.WithContext(ctx).Select("id", "distributor_id").First(&c, customerID).Error; err != nil {
		return 0, err
	}
	return c.DistributorID, nil
}

func (r *DeviceRepositoryImpl) List(ctx context.Context, f Filter, p utils.Pagination) ([]Listing, int64, error) {
	var (
		rows  []Listing
		total int64
	)
	q := r.db.WithContext(ctx).
		Table("devices").
		Joins("JOIN customers ON customers.id = devices.customer_id").
		Where("customers.distributor_id = ?", f.DistributorID)
	if f.CustomerID != 0 {
		q = q.Where("devices.customer_id = ?", f.CustomerID)
	}
	if f.Status != "" {
		q = q.Where("devices.status = ?", f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(devices.serial_number) LIKE ? OR LOWER(devices.name) LIKE ?", like, like)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Select("devices.*, customers.name AS customer_name, customers.distributor_id AS distributor_id").
		Order("devices.serial_number").
		Scopes(p.Scope()).
		Scan(&rows).Error
	return rows, total, err
}

// FileKeys lists the stored files of every document of the device
func (r *DeviceRepositoryImpl) FileKeys(ctx context.Context, id uint64) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Model(&domain.DeviceDocument{}).
		Where("device_id = ? AND file_key <> ''", id).
		Pluck("file_key", &keys).Error
	return keys, err
}

// Delete removes the device and its documents. Release targeting rows are
// detached.
func (r *DeviceRepositoryImpl) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := visibility.Detach(tx, 0, []uint64{id}); err != nil {
			return err
		}
		if err := tx.Where("device_id = ?", id).Delete(&domain.DeviceDocument{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Device{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
