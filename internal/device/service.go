package device

import (
	"context"
	"distributor-portal/internal/customer"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"distributor-portal/internal/logger"
	"distributor-portal/internal/utils"
	defError "errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BlobRemover deletes stored files
type BlobRemover interface {
	Delete(ctx context.Context, key string) error
}

// Versions bumps cache version counters
type Versions interface {
	IncrementVersion(ctx context.Context, key string)
}

type Service interface {
	Create(ctx context.Context, actor domain.Principal, form Form) (*domain.Device, error)
	Get(ctx context.Context, actor domain.Principal, id uint64) (*domain.Device, error)
	List(ctx context.Context, actor domain.Principal, f Filter, p utils.Pagination) (utils.Page[Listing], error)
	Update(ctx context.Context, actor domain.Principal, id uint64, form Form) (*domain.Device, error)
	Delete(ctx context.Context, actor domain.Principal, id uint64) error
}

type DefaultService struct {
	repository DeviceRepository
	blobs      BlobRemover
	versions   Versions
}

// NewService creates the device service. blobs may be nil when file storage
// is disabled.
func NewService(repository DeviceRepository, blobs BlobRemover, versions Versions) Service {
	return &DefaultService{repository: repository, blobs: blobs, versions: versions}
}

// releasesChanged expires cached release listings, which depend on device
// ownership
func (s *DefaultService) releasesChanged(ctx context.Context) {
	if s.versions != nil {
		s.versions.IncrementVersion(ctx, domain.ContentVersionKey(domain.KindRelease))
	}
}

func validate(form Form) (domain.DeviceStatus, error) {
	status := domain.DeviceActive
	if form.Status != "" {
		st, err := domain.ParseDeviceStatus(form.Status)
		if err != nil {
			return "", errors.UnprocessableEntity("Invalid device status", err)
		}
		status = st
	}
	probe := domain.Device{InstallationDate: form.InstallationDate, WarrantyExpiry: form.WarrantyExpiry}
	if !probe.WarrantyConsistent() {
		return "", &errors.APIError{
			Status:  http.StatusUnprocessableEntity,
			Message: "Validation failed",
			Fields:  map[string]string{"warranty_expiry": "must not be before installation_date"},
		}
	}
	return status, nil
}

// authorizeCustomer checks the actor may place devices under the customer
func (s *DefaultService) authorizeCustomer(ctx context.Context, actor domain.Principal, customerID uint64) error {
	owner, err := s.repository.CustomerOwner(ctx, customerID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Customer not found", err)
		}
		return errors.Internal(err)
	}
	if !actor.CanAccessTenant(owner) {
		return errors.NotFound("Customer not found", nil)
	}
	return nil
}

func (s *DefaultService) ensureSerialFree(ctx context.Context, serial string, exceptID uint64) error {
	taken, err := s.repository.SerialTaken(ctx, serial, exceptID)
	if err != nil {
		return errors.Internal(err)
	}
	if taken {
		return errors.Conflict("A device with this serial number already exists", nil)
	}
	return nil
}

func apply(d *domain.Device, form Form, status domain.DeviceStatus) {
	d.CustomerID = form.CustomerID
	d.ProductID = form.ProductID
	d.SerialNumber = strings.TrimSpace(form.SerialNumber)
	d.Name = form.Name
	d.Model = form.Model
	d.Status = status
	d.InstallationDate = form.InstallationDate
	d.WarrantyExpiry = form.WarrantyExpiry
	d.Location = form.Location
	d.Notes = form.Notes
}

func saveError(err error) error {
	if defError.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Conflict("A device with this serial number already exists", err)
	}
	return errors.Internal(err)
}

func (s *DefaultService) Create(ctx context.Context, actor domain.Principal, form Form) (*domain.Device, error) {
	status, err := validate(form)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeCustomer(ctx, actor, form.CustomerID); err != nil {
		return nil, err
	}
	if err := s.ensureSerialFree(ctx, strings.TrimSpace(form.SerialNumber), 0); err != nil {
		return nil, err
	}

	d := &domain.Device{}
	apply(d, form, status)
	if err := s.repository.Create(ctx, d); err != nil {
		return nil, saveError(err)
	}
	s.releasesChanged(ctx)
	return d, nil
}

func (s *DefaultService) Get(ctx context.Context, actor domain.Principal, id uint64) (*domain.Device, error) {
	d, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Device not found", err)
		}
		return nil, errors.Internal(err)
	}
	if d.Customer == nil || !actor.CanAccessTenant(d.Customer.DistributorID) {
		return nil, errors.NotFound("Device not found", nil)
	}
	return d, nil
}

func (s *DefaultService) List(ctx context.Context, actor domain.Principal, f Filter, p utils.Pagination) (utils.Page[Listing], error) {
	if !actor.PlatformAdmin && !actor.Tenant.Valid() {
		return utils.NewPage[Listing](nil, 0, p), nil
	}
	owner, err := customer.OwnerFor(actor, f.DistributorID)
	if err != nil {
		return utils.Page[Listing]{}, err
	}
	f.DistributorID = owner
	if f.Status != "" {
		st, err := domain.ParseDeviceStatus(f.Status)
		if err != nil {
			return utils.Page[Listing]{}, errors.BadRequest("Invalid status filter", err)
		}
		f.Status = string(st)
	}

	rows, total, err := s.repository.List(ctx, f, p)
	if err != nil {
		return utils.Page[Listing]{}, errors.Internal(err)
	}
	return utils.NewPage(rows, total, p), nil
}

func (s *DefaultService) Update(ctx context.Context, actor domain.Principal, id uint64, form Form) (*domain.Device, error) {
	status, err := validate(form)
	if err != nil {
		return nil, err
	}
	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if form.CustomerID != d.CustomerID {
		if err := s.authorizeCustomer(ctx, actor, form.CustomerID); err != nil {
			return nil, err
		}
	}
	if err := s.ensureSerialFree(ctx, strings.TrimSpace(form.SerialNumber), d.ID); err != nil {
		return nil, err
	}

	apply(d, form, status)
	d.Customer = nil
	if err := s.repository.Save(ctx, d); err != nil {
		return nil, saveError(err)
	}
	s.releasesChanged(ctx)
	return d, nil
}

// Delete removes the device and, best effort, its stored files
func (s *DefaultService) Delete(ctx context.Context, actor domain.Principal, id uint64) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	keys, err := s.repository.FileKeys(ctx, id)
	if err != nil {
		return errors.Internal(err)
	}
	if err := s.repository.Delete(ctx, id); err != nil {
		return errors.Internal(err)
	}
	s.releasesChanged(ctx)

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
