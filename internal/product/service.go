package product

import (
	"context"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"distributor-portal/internal/utils"
	defError "errors"
	"strings"

	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, form Form) (*domain.Product, error)
	Get(ctx context.Context, id uint64) (*domain.Product, error)
	List(ctx context.Context, actor domain.Principal, f Filter, p utils.Pagination) (utils.Page[domain.Product], error)
	Update(ctx context.Context, id uint64, form Form) (*domain.Product, error)
	Delete(ctx context.Context, id uint64) error
}

type DefaultService struct {
	repository ProductRepository
}

func NewService(repository ProductRepository) Service {
	return &DefaultService{repository: repository}
}

func (s *DefaultService) checkSKU(ctx context.Context, sku string, exceptID uint64) error {
	taken, err := s.repository.SKUTaken(ctx, sku, exceptID)
	if err != nil {
		return errors.Internal(err)
	}
	if taken {
		return errors.Conflict("SKU already exists", nil)
	}
	return nil
}

func (s *DefaultService) Create(ctx context.Context, form Form) (*domain.Product, error) {
	p := &domain.Product{Active: true}
	fill(p, form)
	if err := s.checkSKU(ctx, p.SKU, 0); err != nil {
		return nil, err
	}
	if err := s.repository.Create(ctx, p); err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Conflict("SKU already exists", err)
		}
		return nil, errors.Internal(err)
	}
	return p, nil
}

func fill(p *domain.Product, form Form) {
	p.Name = strings.TrimSpace(form.Name)
	p.SKU = strings.ToUpper(strings.TrimSpace(form.SKU))
	p.Category = strings.TrimSpace(form.Category)
	p.Description = form.Description
	if form.Active != nil {
		p.Active = *form.Active
	}
}

func (s *DefaultService) Get(ctx context.Context, id uint64) (*domain.Product, error) {
	p, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Product not found", err)
		}
		return nil, errors.Internal(err)
	}
	return p, nil
}

// List returns the catalog. Only platform admins see inactive products.
func (s *DefaultService) List(ctx context.Context, actor domain.Principal, f Filter, p utils.Pagination) (utils.Page[domain.Product], error) {
	if !actor.PlatformAdmin {
		f.ActiveOnly = true
	}
	rows, total, err := s.repository.List(ctx, f, p)
	if err != nil {
		return utils.Page[domain.Product]{}, errors.Internal(err)
	}
	return utils.NewPage(rows, total, p), nil
}

func (s *DefaultService) Update(ctx context.Context, id uint64, form Form) (*domain.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fill(p, form)
	if err := s.checkSKU(ctx, p.SKU, p.ID); err != nil {
		return nil, err
	}
	if err := s.repository.Save(ctx, p); err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Conflict("SKU already exists", err)
		}
		return nil, errors.Internal(err)
	}
	return p, nil
}

func (s *DefaultService) Delete(ctx context.Context, id uint64) error {
	if err := s.repository.Delete(ctx, id); err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Product not found", err)
		}
		return errors.Internal(err)
	}
	return nil
}
