// Package customer manages the end customers of a distributor.
package customer

import (
	"context"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"distributor-portal/internal/utils"
	"distributor-portal/internal/visibility"
	defError "errors"
	"strings"

	"gorm.io/gorm"
)

type Form struct {
	DistributorID uint64 `json:"distributor_id"`
	Name          string `json:"name" binding:"required,max=255"`
	ContactName   string `json:"contact_name" binding:"max=255"`
	ContactEmail  string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone  string `json:"contact_phone" binding:"max=64"`
	Address       string `json:"address"`
	Notes         string `json:"notes"`
}

type CustomerRepository interface {
	Create(ctx context.Context, c *domain.Customer) error
	FindByID(ctx context.Context, id uint64) (*domain.Customer, error)
	List(ctx context.Context, distributorID uint64, search string, p utils.Pagination) ([]domain.Customer, int64, error)
	Save(ctx context.Context, c *domain.Customer) error
	Delete(ctx context.Context, id uint64) error
}

type CustomerRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) CustomerRepository {
	return &CustomerRepositoryImpl{db: db}
}

func (r *CustomerRepositoryImpl) Create(ctx context.Context, c *domain.Customer) error {
	return r.db.WithContext(ctx).Omit("Devices").Create(c).Error
}

func (r *CustomerRepositoryImpl) FindByID(ctx context.Context, id uint64) (*domain.Customer, error) {
	var c domain.Customer
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepositoryImpl) List(ctx context.Context, distributorID uint64, search string, p utils.Pagination) ([]domain.Customer, int64, error) {
	var (
		rows  []domain.Customer
		total int64
	)
	q := r.db.WithContext(ctx).Model(&domain.Customer{}).Where("distributor_id = ?", distributorID)
	if s := strings.TrimSpace(search); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("name, id").Scopes(p.Scope()).Find(&rows).Error
	return rows, total, err
}

func (r *CustomerRepositoryImpl) Save(ctx context.Context, c *domain.Customer) error {
	return r.db.WithContext(ctx).Omit("Devices").Save(c).Error
}

// Delete removes the customer and its devices. Release targeting rows of the
// devices are detached.
func (r *CustomerRepositoryImpl) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var deviceIDs []uint64
		if err := tx.Model(&domain.Device{}).Where("customer_id = ?", id).Pluck("id", &deviceIDs).Error; err != nil {
			return err
		}
		if err := visibility.Detach(tx, 0, deviceIDs); err != nil {
			return err
		}
		if len(deviceIDs) > 0 {
			if err := tx.Where("device_id IN ?", deviceIDs).Delete(&domain.DeviceDocument{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("customer_id = ?", id).Delete(&domain.Device{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Customer{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

type Service interface {
	Create(ctx context.Context, actor domain.Principal, form Form) (*domain.Customer, error)
	Get(ctx context.Context, actor domain.Principal, id uint64) (*domain.Customer, error)
	List(ctx context.Context, actor domain.Principal, distributorID uint64, search string, p utils.Pagination) (utils.Page[domain.Customer], error)
	Update(ctx context.Context, actor domain.Principal, id uint64, form Form) (*domain.Customer, error)
	Delete(ctx context.Context, actor domain.Principal, id uint64) error
}

type DefaultService struct {
	repository CustomerRepository
}

func NewService(repository CustomerRepository) Service {
	return &DefaultService{repository: repository}
}

// OwnerFor picks the distributor a write applies to. Platform admins name it
// explicitly, everyone else writes into their own tenant.
func OwnerFor(actor domain.Principal, requested uint64) (uint64, error) {
	if actor.PlatformAdmin && requested != 0 {
		return requested, nil
	}
	if !actor.Tenant.Valid() {
		return 0, errors.Forbidden("No distributor linked to this account", nil)
	}
	if requested != 0 && requested != actor.Tenant.DistributorID() {
		return 0, errors.Forbidden("You cannot manage data of this distributor", nil)
	}
	return actor.Tenant.DistributorID(), nil
}

func (s *DefaultService) Create(ctx context.Context, actor domain.Principal, form Form) (*domain.Customer, error) {
	owner, err := OwnerFor(actor, form.DistributorID)
	if err != nil {
		return nil, err
	}
	c := &domain.Customer{DistributorID: owner}
	apply(c, form)
	if err := s.repository.Create(ctx, c); err != nil {
		if defError.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, errors.NotFound("Distributor not found", err)
		}
		return nil, errors.Internal(err)
	}
	return c, nil
}

func apply(c *domain.Customer, form Form) {
	c.Name = strings.TrimSpace(form.Name)
	c.ContactName = form.ContactName
	c.ContactEmail = form.ContactEmail
	c.ContactPhone = form.ContactPhone
	c.Address = form.Address
	c.Notes = form.Notes
}

// Get loads a customer of a tenant the actor can access. Other tenants'
// customers are reported as missing.
func (s *DefaultService) Get(ctx context.Context, actor domain.Principal, id uint64) (*domain.Customer, error) {
	c, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Customer not found", err)
		}
		return nil, errors.Internal(err)
	}
	if !actor.CanAccessTenant(c.DistributorID) {
		return nil, errors.NotFound("Customer not found", nil)
	}
	return c, nil
}

func (s *DefaultService) List(ctx context.Context, actor domain.Principal, distributorID uint64, search string, p utils.Pagination) (utils.Page[domain.Customer], error) {
	owner, err := OwnerFor(actor, distributorID)
	if err != nil {
		if !actor.Tenant.Valid() && !actor.PlatformAdmin {
			return utils.NewPage[domain.Customer](nil, 0, p), nil
		}
		return utils.Page[domain.Customer]{}, err
	}
	rows, total, err := s.repository.List(ctx, owner, search, p)
	if err != nil {
		return utils.Page[domain.Customer]{}, errors.Internal(err)
	}
	return utils.NewPage(rows, total, p), nil
}

func (s *DefaultService) Update(ctx context.Context, actor domain.Principal, id uint64, form Form) (*domain.Customer, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	apply(c, form)
	if err := s.repository.Save(ctx, c); err != nil {
		return nil, errors.Internal(err)
	}
	return c, nil
}

func (s *DefaultService) Delete(ctx context.Context, actor domain.Principal, id uint64) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repository.Delete(ctx, id); err != nil {
		return errors.Internal(err)
	}
	return nil
}
