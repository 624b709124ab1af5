package distributor

import (
	"context"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"distributor-portal/internal/logger"
	"distributor-portal/internal/user"
	"distributor-portal/internal/utils"
	defError "errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*domain.Distributor, *domain.SafeUser, error)
	Get(ctx context.Context, actor domain.Principal, id uint64) (*domain.Distributor, error)
	List(ctx context.Context, f Filter, p utils.Pagination) (utils.Page[domain.Distributor], error)
	Update(ctx context.Context, id uint64, req UpdateRequest) (*domain.Distributor, error)
	Delete(ctx context.Context, id uint64) error
}

// BlobRemover deletes stored files
type BlobRemover interface {
	Delete(ctx context.Context, key string) error
}

// Versions bumps cache version counters
type Versions interface {
	IncrementVersion(ctx context.Context, key string)
}

type DefaultService struct {
	repository DistributorRepository
	blobs      BlobRemover
	versions   Versions
}

// NewService creates the distributor service. blobs and versions may be nil.
func NewService(repository DistributorRepository, blobs BlobRemover, versions Versions) Service {
	return &DefaultService{repository: repository, blobs: blobs, versions: versions}
}

// contentChanged expires every cached visible listing
func (s *DefaultService) contentChanged(ctx context.Context) {
	if s.versions == nil {
		return
	}
	for _, kind := range domain.ContentKinds {
		s.versions.IncrementVersion(ctx, domain.ContentVersionKey(kind))
	}
}

func notFound(err error) error {
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Distributor not found", err)
	}
	return errors.Internal(err)
}

// Create provisions a company. The optional first user becomes its active admin.
func (s *DefaultService) Create(ctx context.Context, req CreateRequest) (*domain.Distributor, *domain.SafeUser, error) {
	accountType := domain.AccountNonExclusive
	if req.AccountType != "" {
		t, err := domain.ParseAccountType(req.AccountType)
		if err != nil {
			return nil, nil, errors.UnprocessableEntity("Invalid account type", err)
		}
		accountType = t
	}
	status := domain.StatusActive
	if req.Status != "" {
		st, err := domain.ParseAccountStatus(req.Status)
		if err != nil {
			return nil, nil, errors.UnprocessableEntity("Invalid status", err)
		}
		status = st
	}

	d := &domain.Distributor{
		Name:         strings.TrimSpace(req.Name),
		Territory:    req.Territory,
		AccountType:  accountType,
		Status:       status,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Address:      req.Address,
	}

	var first *domain.User
	if req.FirstUser != nil {
		hashed, err := user.HashPassword(req.FirstUser.Password)
		if err != nil {
			return nil, nil, errors.Internal(err)
		}
		now := time.Now().UTC()
		first = &domain.User{
			Name:         strings.TrimSpace(req.FirstUser.Name),
			Email:        strings.ToLower(strings.TrimSpace(req.FirstUser.Email)),
			PasswordHash: hashed,
			Role:         domain.RoleAdmin,
			Status:       domain.StatusActive,
			InvitedAt:    &now,
		}
	}

	if err := s.repository.Create(ctx, d, first); err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, errors.Conflict("A user with this email already exists", err)
		}
		return nil, nil, errors.Internal(err)
	}

	if first == nil {
		return d, nil, nil
	}
	safe := first.ToSafeUser()
	return d, &safe, nil
}

func (s *DefaultService) Get(ctx context.Context, actor domain.Principal, id uint64) (*domain.Distributor, error) {
	if !actor.CanAccessTenant(id) {
		return nil, errors.Forbidden("You cannot view this distributor", nil)
	}
	d, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

func (s *DefaultService) List(ctx context.Context, f Filter, p utils.Pagination) (utils.Page[domain.Distributor], error) {
	if f.Status != "" {
		st, err := domain.ParseAccountStatus(f.Status)
		if err != nil {
			return utils.Page[domain.Distributor]{}, errors.BadRequest("Invalid status filter", err)
		}
		f.Status = string(st)
	}
	rows, total, err := s.repository.List(ctx, f, p)
	if err != nil {
		return utils.Page[domain.Distributor]{}, errors.Internal(err)
	}
	return utils.NewPage(rows, total, p), nil
}

func (s *DefaultService) Update(ctx context.Context, id uint64, req UpdateRequest) (*domain.Distributor, error) {
	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Territory != nil {
		fields["territory"] = *req.Territory
	}
	if req.AccountType != nil {
		t, err := domain.ParseAccountType(*req.AccountType)
		if err != nil {
			return nil, errors.UnprocessableEntity("Invalid account type", err)
		}
		fields["account_type"] = t
	}
	if req.Status != nil {
		st, err := domain.ParseAccountStatus(*req.Status)
		if err != nil {
			return nil, errors.UnprocessableEntity("Invalid status", err)
		}
		fields["status"] = st
	}
	if req.ContactName != nil {
		fields["contact_name"] = *req.ContactName
	}
	if req.ContactEmail != nil {
		fields["contact_email"] = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		fields["contact_phone"] = *req.ContactPhone
	}
	if req.Address != nil {
		fields["address"] = *req.Address
	}

	if len(fields) > 0 {
		if err := s.repository.Update(ctx, id, fields); err != nil {
			return nil, notFound(err)
		}
		if _, ok := fields["status"]; ok {
			s.contentChanged(ctx)
		}
	}
	d, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

// Delete removes the distributor and everything it owns, then, best effort,
// the stored files of its device documents
func (s *DefaultService) Delete(ctx context.Context, id uint64) error {
	keys, err := s.repository.FileKeys(ctx, id)
	if err != nil {
		return errors.Internal(err)
	}
	if err := s.repository.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.contentChanged(ctx)

	if s.blobs == nil {
		return nil
	}
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			logger.FromContext(ctx).Warn("stored file not removed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}
