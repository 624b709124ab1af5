package document

import (
	"context"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"distributor-portal/internal/logger"
	"distributor-portal/internal/storage"
	defError "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Blobs stores document files
type Blobs interface {
	Put(ctx context.Context, prefix string, r io.Reader, size int64, name, mime string) (storage.Object, error)
	PresignedURL(ctx context.Context, key, downloadName string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service interface {
	Upload(ctx context.Context, actor domain.Principal, in UploadInput, file io.Reader) (*domain.DeviceDocument, error)
	List(ctx context.Context, actor domain.Principal, deviceID uint64, latestOnly bool) ([]domain.DeviceDocument, error)
	Get(ctx context.Context, actor domain.Principal, id uint64) (*DocumentResponse, error)
	Update(ctx context.Context, actor domain.Principal, id uint64, req UpdateRequest) (*domain.DeviceDocument, error)
	SetShared(ctx context.Context, actor domain.Principal, id uint64, shared bool) (*domain.DeviceDocument, error)
	Archive(ctx context.Context, actor domain.Principal, id uint64) (*domain.DeviceDocument, error)
	Delete(ctx context.Context, actor domain.Principal, id uint64) error
	History(ctx context.Context, actor domain.Principal, deviceID, documentID uint64) ([]domain.DocumentHistoryEntry, error)
}

type DefaultService struct {
	repository DocumentRepository
	blobs      Blobs
	linkTTL    time.Duration
}

// NewService creates the document service. Without blobs only metadata is
// kept.
func NewService(repository DocumentRepository, blobs Blobs, linkTTL time.Duration) Service {
	if linkTTL <= 0 {
		linkTTL = 15 * time.Minute
	}
	return &DefaultService{repository: repository, blobs: blobs, linkTTL: linkTTL}
}

func (s *DefaultService) authorizeDevice(ctx context.Context, actor domain.Principal, deviceID uint64) error {
	owner, err := s.repository.DeviceOwner(ctx, deviceID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Device not found", err)
		}
		return errors.Internal(err)
	}
	if !actor.CanAccessTenant(owner) {
		return errors.NotFound("Device not found", nil)
	}
	return nil
}

// load fetches a document the actor may access
func (s *DefaultService) load(ctx context.Context, actor domain.Principal, id uint64) (*domain.DeviceDocument, error) {
	doc, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Document not found", err)
		}
		return nil, errors.Internal(err)
	}
	if err := s.authorizeDevice(ctx, actor, doc.DeviceID); err != nil {
		if errors.Is(err, http.StatusNotFound) {
			return nil, errors.NotFound("Document not found", nil)
		}
		return nil, err
	}
	return doc, nil
}

func (s *DefaultService) Upload(ctx context.Context, actor domain.Principal, in UploadInput, file io.Reader) (*domain.DeviceDocument, error) {
	if err := s.authorizeDevice(ctx, actor, in.DeviceID); err != nil {
		return nil, err
	}

	doc := &domain.DeviceDocument{
		DeviceID:          in.DeviceID,
		Title:             strings.TrimSpace(in.Title),
		Type:              in.Type,
		Version:           strings.TrimSpace(in.Version),
		PreviousVersionID: in.PreviousVersionID,
		FileName:          in.FileName,
		FileSize:          in.FileSize,
		MimeType:          in.MimeType,
		Status:            domain.DocumentActive,
		UploadedByID:      actor.UserID,
	}
	if in.ShareWithCustomer {
		now := time.Now().UTC()
		doc.SharedWithCustomer = true
		doc.SharedAt = &now
	}

	if s.blobs != nil && file != nil {
		obj, err := s.blobs.Put(ctx, fmt.Sprintf("devices/%d", in.DeviceID), file, in.FileSize, in.FileName, in.MimeType)
		if err != nil {
			return nil, errors.Internal(fmt.Errorf("store file: %w", err))
		}
		doc.FileKey = obj.Key
		doc.FileSize = obj.Size
	}

	if err := s.repository.Create(ctx, doc, actor.UserID); err != nil {
		s.removeBlob(ctx, doc.FileKey)
		switch {
		case defError.Is(err, ErrNotLatest):
			return nil, errors.Conflict("Only the latest version can receive a new version", err)
		case defError.Is(err, gorm.ErrRecordNotFound):
			return nil, errors.NotFound("Previous version not found", err)
		}
		return nil, errors.Internal(err)
	}
	return doc, nil
}

func (s *DefaultService) removeBlob(ctx context.Context, key string) {
	if s.blobs == nil || key == "" {
		return
	}
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.FromContext(ctx).Warn("stored file not removed", zap.String("key", key), zap.Error(err))
	}
}

func (s *DefaultService) List(ctx context.Context, actor domain.Principal, deviceID uint64, latestOnly bool) ([]domain.DeviceDocument, error) {
	if err := s.authorizeDevice(ctx, actor, deviceID); err != nil {
		return nil, err
	}
	docs, err := s.repository.ListByDevice(ctx, deviceID, latestOnly)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return docs, nil
}

func (s *DefaultService) Get(ctx context.Context, actor domain.Principal, id uint64) (*DocumentResponse, error) {
	doc, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	resp := &DocumentResponse{DeviceDocument: *doc}
	if s.blobs != nil && doc.FileKey != "" {
		link, err := s.blobs.PresignedURL(ctx, doc.FileKey, doc.FileName, s.linkTTL)
		if err != nil {
			logger.FromContext(ctx).Warn("presign failed", zap.Uint64("document_id", doc.ID), zap.Error(err))
		} else {
			resp.DownloadURL = link
		}
	}
	return resp, nil
}

func (s *DefaultService) Update(ctx context.Context, actor domain.Principal, id uint64, req UpdateRequest) (*domain.DeviceDocument, error) {
	doc, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if req.Title != nil {
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Version != nil {
		fields["version"] = strings.TrimSpace(*req.Version)
	}
	if len(fields) == 0 {
		return doc, nil
	}
	if err := s.repository.Update(ctx, doc, fields, domain.HistoryUpdated, actor.UserID); err != nil {
		return nil, errors.Internal(err)
	}
	return doc, nil
}

// SetShared shares or unshares a document with the device's end customer.
// Only active documents can be shared.
func (s *DefaultService) SetShared(ctx context.Context, actor domain.Principal, id uint64, shared bool) (*domain.DeviceDocument, error) {
	doc, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if doc.SharedWithCustomer == shared {
		return doc, nil
	}

	action := domain.HistoryUnshared
	fields := map[string]any{"shared_with_customer": shared, "shared_at": nil}
	if shared {
		if doc.Status != domain.DocumentActive {
			return nil, errors.UnprocessableEntity("Only active documents can be shared", nil)
		}
		action = domain.HistoryShared
		fields["shared_at"] = time.Now().UTC()
	}

	if err := s.repository.Update(ctx, doc, fields, action, actor.UserID); err != nil {
		return nil, errors.Internal(err)
	}
	return doc, nil
}

// Archive hides a document from customers without deleting it
func (s *DefaultService) Archive(ctx context.Context, actor domain.Principal, id uint64) (*domain.DeviceDocument, error) {
	doc, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if doc.Status == domain.DocumentArchived {
		return doc, nil
	}
	fields := map[string]any{
		"status":               domain.DocumentArchived,
		"shared_with_customer": false,
		"shared_at":            nil,
	}
	if err := s.repository.Update(ctx, doc, fields, domain.HistoryUpdated, actor.UserID); err != nil {
		return nil, errors.Internal(err)
	}
	return doc, nil
}

func (s *DefaultService) Delete(ctx context.Context, actor domain.Principal, id uint64) error {
	doc, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repository.Delete(ctx, doc, actor.UserID); err != nil {
		return errors.Internal(err)
	}
	s.removeBlob(ctx, doc.FileKey)
	return nil
}

func (s *DefaultService) History(ctx context.Context, actor domain.Principal, deviceID, documentID uint64) ([]domain.DocumentHistoryEntry, error) {
	if err := s.authorizeDevice(ctx, actor, deviceID); err != nil {
		return nil, err
	}
	entries, err := s.repository.History(ctx, deviceID, documentID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return entries, nil
}
