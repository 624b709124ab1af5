package content

import (
	"context"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"distributor-portal/internal/logger"
	"distributor-portal/internal/notification"
	"distributor-portal/internal/utils"
	"distributor-portal/internal/worker"
	defError "errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const visibleTTL = 10 * time.Minute

type Visibility interface {
	Visible(ctx context.Context, kind domain.ContentKind, tenant domain.TenantID) ([]domain.Shareable, error)
	IsVisible(ctx context.Context, kind domain.ContentKind, item domain.Shareable, tenant domain.TenantID) (bool, error)
}

// Cache is satisfied by *redis.Cache
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetVersion(ctx context.Context, key string) int64
	IncrementVersion(ctx context.Context, key string)
}

// Jobs is satisfied by *worker.WorkerPool
type Jobs interface {
	Submit(name string, t worker.Task) bool
}

type Service interface {
	Create(ctx context.Context, actor domain.Principal, kind domain.ContentKind, form Form) (any, error)
	Get(ctx context.Context, kind domain.ContentKind, id uint64) (any, error)
	List(ctx context.Context, kind domain.ContentKind, status string, p utils.Pagination) (any, error)
	Update(ctx context.Context, kind domain.ContentKind, id uint64, form Form) (any, error)
	Publish(ctx context.Context, kind domain.ContentKind, id uint64, notify bool) (*PublishResult, error)
	Archive(ctx context.Context, kind domain.ContentKind, id uint64) (any, error)
	Delete(ctx context.Context, kind domain.ContentKind, id uint64) error
	Sharing(ctx context.Context, kind domain.ContentKind, id uint64) (*Sharing, error)
	SetSharing(ctx context.Context, kind domain.ContentKind, id uint64, req SharingRequest) (*Sharing, error)
	Visible(ctx context.Context, actor domain.Principal, kind domain.ContentKind) (any, error)
	ShowVisible(ctx context.Context, actor domain.Principal, kind domain.ContentKind, id uint64) (any, error)
	Notify(ctx context.Context, kind domain.ContentKind, id uint64, onlyUnnotified bool) (*notification.Result, error)
	NotificationStatus(ctx context.Context, kind domain.ContentKind, id uint64) ([]domain.NotificationRecord, error)
}

type DefaultService struct {
	repository ContentRepository
	visibility Visibility
	notifier   notification.Service
	cache      Cache
	jobs       Jobs
}

func NewService(repository ContentRepository, visibility Visibility, notifier notification.Service, cache Cache, jobs Jobs) Service {
	return &DefaultService{
		repository: repository,
		visibility: visibility,
		notifier:   notifier,
		cache:      cache,
		jobs:       jobs,
	}
}

func (s *DefaultService) invalidate(ctx context.Context, kind domain.ContentKind) {
	s.cache.IncrementVersion(ctx, domain.ContentVersionKey(kind))
}

func (s *DefaultService) find(ctx context.Context, kind domain.ContentKind, id uint64) (any, error) {
	model, err := s.repository.Find(ctx, kind, id)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Content not found", err)
		}
		return nil, errors.Internal(err)
	}
	return model, nil
}

func (s *DefaultService) Create(ctx context.Context, actor domain.Principal, kind domain.ContentKind, form Form) (any, error) {
	model, err := newModel(kind)
	if err != nil {
		return nil, errors.BadRequest("Unknown content kind", err)
	}
	if fields := apply(model, form); len(fields) > 0 {
		apiErr := errors.UnprocessableEntity("Validation failed", nil)
		apiErr.Fields = fields
		return nil, apiErr
	}
	base := baseOf(model)
	base.Status = domain.ContentDraft
	base.CreatedByID = actor.UserID

	if err := s.repository.Create(ctx, model); err != nil {
		return nil, errors.Internal(err)
	}
	return model, nil
}

func (s *DefaultService) Get(ctx context.Context, kind domain.ContentKind, id uint64) (any, error) {
	return s.find(ctx, kind, id)
}

func (s *DefaultService) List(ctx context.Context, kind domain.ContentKind, status string, p utils.Pagination) (any, error) {
	var st domain.ContentStatus
	if status != "" {
		parsed, err := domain.ParseContentStatus(status)
		if err != nil {
			return nil, errors.BadRequest("Invalid status filter", err)
		}
		st = parsed
	}
	page, err := s.repository.List(ctx, kind, st, p)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return page, nil
}

func (s *DefaultService) Update(ctx context.Context, kind domain.ContentKind, id uint64, form Form) (any, error) {
	model, err := s.find(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if fields := apply(model, form); len(fields) > 0 {
		apiErr := errors.UnprocessableEntity("Validation failed", nil)
		apiErr.Fields = fields
		return nil, apiErr
	}
	if err := s.repository.Save(ctx, model); err != nil {
		return nil, errors.Internal(err)
	}
	s.invalidate(ctx, kind)
	return model, nil
}

// Publish makes an item visible. With notify set, delivery to the entitled
// users is queued on the worker pool and only reaches users not yet notified.
func (s *DefaultService) Publish(ctx context.Context, kind domain.ContentKind, id uint64, notify bool) (*PublishResult, error) {
	model, err := s.find(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	base := baseOf(model)
	if base.ContentStatus() != domain.ContentPublished {
		base.Status = domain.ContentPublished
		if err := s.repository.Save(ctx, model); err != nil {
			return nil, errors.Internal(err)
		}
		s.invalidate(ctx, kind)
	}

	result := &PublishResult{Item: model}
	if !notify {
		return result, nil
	}

	log := logger.FromContext(ctx)
	task := func(ctx context.Context) error {
		res, err := s.notifier.Notify(ctx, kind, id, true)
		if err != nil {
			return err
		}
		log.Info("publish notification finished",
			zap.String("content_kind", string(kind)),
			zap.Uint64("content_id", id),
			zap.Int("sent", res.SentCount),
			zap.Int("recipients", res.TotalRecipients),
			zap.Int("errors", len(res.Errors)),
		)
		return nil
	}
	if s.jobs.Submit(fmt.Sprintf("notify:%s:%d", kind, id), task) {
		result.NotifyQueued = true
	} else {
		result.NotifyRejected = true
		log.Warn("notification not queued", zap.String("content_kind", string(kind)), zap.Uint64("content_id", id))
	}
	return result, nil
}

func (s *DefaultService) Archive(ctx context.Context, kind domain.ContentKind, id uint64) (any, error) {
	model, err := s.find(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	base := baseOf(model)
	if base.ContentStatus() == domain.ContentArchived {
		return model, nil
	}
	base.Status = domain.ContentArchived
	if err := s.repository.Save(ctx, model); err != nil {
		return nil, errors.Internal(err)
	}
	s.invalidate(ctx, kind)
	return model, nil
}

func (s *DefaultService) Delete(ctx context.Context, kind domain.ContentKind, id uint64) error {
	if err := s.repository.Delete(ctx, kind, id); err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Content not found", err)
		}
		return errors.Internal(err)
	}
	s.invalidate(ctx, kind)
	return nil
}

func (s *DefaultService) Sharing(ctx context.Context, kind domain.ContentKind, id uint64) (*Sharing, error) {
	if _, err := s.find(ctx, kind, id); err != nil {
		return nil, err
	}
	sharing, err := s.repository.Sharing(ctx, kind, id)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return sharing, nil
}

// SetSharing replaces the distributor (and for releases device) allow-lists.
// Empty lists make the item visible to every distributor again.
func (s *DefaultService) SetSharing(ctx context.Context, kind domain.ContentKind, id uint64, req SharingRequest) (*Sharing, error) {
	if _, err := s.find(ctx, kind, id); err != nil {
		return nil, err
	}
	distributors := dedupe(req.DistributorIDs)
	devices := dedupe(req.DeviceIDs)

	fields := map[string]string{}
	if len(devices) > 0 && kind != domain.KindRelease {
		fields["device_ids"] = "only software releases can be shared with devices"
	}
	missing, err := s.repository.MissingDistributors(ctx, distributors)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if len(missing) > 0 {
		fields["distributor_ids"] = fmt.Sprintf("unknown ids %v", missing)
	}
	if kind == domain.KindRelease {
		missing, err := s.repository.MissingDevices(ctx, devices)
		if err != nil {
			return nil, errors.Internal(err)
		}
		if len(missing) > 0 {
			fields["device_ids"] = fmt.Sprintf("unknown ids %v", missing)
		}
	}
	if len(fields) > 0 {
		apiErr := errors.UnprocessableEntity("Validation failed", nil)
		apiErr.Fields = fields
		return nil, apiErr
	}

	if err := s.repository.SetSharing(ctx, kind, id, distributors, devices); err != nil {
		return nil, errors.Internal(err)
	}
	s.invalidate(ctx, kind)
	return s.Sharing(ctx, kind, id)
}

// Visible lists the published content of a kind the actor's tenant may see.
// Listings are cached per kind and tenant until the kind's version changes.
func (s *DefaultService) Visible(ctx context.Context, actor domain.Principal, kind domain.ContentKind) (any, error) {
	if !actor.Tenant.Valid() {
		return []domain.Shareable{}, nil
	}

	key := fmt.Sprintf("content:visible:%s:%d:v%d", kind, actor.Tenant, s.cache.GetVersion(ctx, domain.ContentVersionKey(kind)))
	if target := visibleTarget(kind); target != nil {
		if found, _ := s.cache.Get(ctx, key, target); found {
			return target, nil
		}
	}

	items, err := s.visibility.Visible(ctx, kind, actor.Tenant)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if err := s.cache.Set(ctx, key, items, visibleTTL); err != nil {
		logger.FromContext(ctx).Debug("visible listing not cached", zap.String("key", key), zap.Error(err))
	}
	return items, nil
}

// ShowVisible returns one item if the actor's tenant may see it. Hidden items
// are reported as missing.
func (s *DefaultService) ShowVisible(ctx context.Context, actor domain.Principal, kind domain.ContentKind, id uint64) (any, error) {
	model, err := s.find(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.visibility.IsVisible(ctx, kind, shareable(model), actor.Tenant)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if !ok {
		return nil, errors.NotFound("Content not found", nil)
	}
	return model, nil
}

func (s *DefaultService) Notify(ctx context.Context, kind domain.ContentKind, id uint64, onlyUnnotified bool) (*notification.Result, error) {
	return s.notifier.Notify(ctx, kind, id, onlyUnnotified)
}

func (s *DefaultService) NotificationStatus(ctx context.Context, kind domain.ContentKind, id uint64) ([]domain.NotificationRecord, error) {
	return s.notifier.Status(ctx, kind, id)
}
