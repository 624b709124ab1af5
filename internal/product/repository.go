package product

import (
	"context"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/utils"
	"strings"

	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	FindByID(ctx context.Context, id uint64) (*domain.Product, error)
	SKUTaken(ctx context.Context, sku string, exceptID uint64) (bool, error)
	List(ctx context.Context, f Filter, p utils.Pagination) ([]domain.Product, int64, error)
	Save(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id uint64) error
}

type ProductRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) ProductRepository {
	return &ProductRepositoryImpl{db: db}
}

func (r *ProductRepositoryImpl) Create(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProductRepositoryImpl) FindByID(ctx context.Context, id uint64) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepositoryImpl) SKUTaken(ctx context.Context, sku string, exceptID uint64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("LOWER(sku) = ? AND id <> ?", strings.ToLower(sku), exceptID).
		Count(&n).Error
	return n > 0, err
}

func (r *ProductRepositoryImpl) List(ctx context.Context, f Filter, p utils.Pagination) ([]domain.Product, int64, error) {
	var (
		rows  []domain.Product
		total int64
	)
	q := r.db.WithContext(ctx).Model(&domain.Product{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("name, id").Scopes(p.Scope()).Find(&rows).Error
	return rows, total, err
}

func (r *ProductRepositoryImpl) Save(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// Delete removes a product and unlinks devices and releases pointing at it
func (r *ProductRepositoryImpl) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Device{}).Where("product_id = ?", id).Update("product_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.SoftwareRelease{}).Where("product_id = ?", id).Update("product_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
