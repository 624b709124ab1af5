// Package notification fans content updates out to entitled distributor users
// and records each delivery so a pair is never mailed twice.
package notification

import (
	"context"
	"distributor-portal/internal/domain"
	apperrors "distributor-portal/internal/errors"
	"distributor-portal/internal/logger"
	"distributor-portal/internal/mail"
	"distributor-portal/internal/metrics"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ContentSource resolves content and its entitled distributors
type ContentSource interface {
	FindContent(ctx context.Context, kind domain.ContentKind, id uint64) (domain.Shareable, error)
	EntitledDistributors(ctx context.Context, kind domain.ContentKind, item domain.Shareable) ([]domain.TenantID, error)
}

// Claimer hands out short lived per-pair locks
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string)
}

type Options struct {
	Concurrency int
	SendTimeout time.Duration
	ClaimTTL    time.Duration
	PortalURL   string
}

type DeliveryError struct {
	ContentID uint64 `json:"content_id"`
	UserID    uint64 `json:"user_id"`
	Email     string `json:"email"`
	Error     string `json:"error"`
}

type Result struct {
	Success         bool            `json:"success"`
	SentCount       int             `json:"sent_count"`
	TotalRecipients int             `json:"total_recipients"`
	SkippedCount    int             `json:"skipped_count"`
	Errors          []DeliveryError `json:"errors,omitempty"`
}

type Service interface {
	Notify(ctx context.Context, kind domain.ContentKind, contentID uint64, onlyUnnotified bool) (*Result, error)
	Status(ctx context.Context, kind domain.ContentKind, contentID uint64) ([]domain.NotificationRecord, error)
}

type Dispatcher struct {
	content ContentSource
	repo    Repository
	mailer  mail.Mailer
	claims  Claimer
	opts    Options
	now     func() time.Time
}

func NewDispatcher(content ContentSource, repo Repository, mailer mail.Mailer, claims Claimer, opts Options) *Dispatcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = 2 * time.Minute
	}
	return &Dispatcher{
		content: content,
		repo:    repo,
		mailer:  mailer,
		claims:  claims,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (d *Dispatcher) loadPublished(ctx context.Context, kind domain.ContentKind, contentID uint64) (domain.Shareable, error) {
	if _, err := domain.ParseContentKind(string(kind)); err != nil {
		return nil, apperrors.BadRequest("Unknown content kind", err)
	}
	item, err := d.content.FindContent(ctx, kind, contentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Content not found", err)
		}
		return nil, apperrors.Internal(err)
	}
	if item.ContentStatus() != domain.ContentPublished {
		return nil, apperrors.UnprocessableEntity("Only published content can be notified", nil)
	}
	return item, nil
}

// Notify mails every entitled user about the content item. With
// onlyUnnotified, users already marked as notified are skipped. Delivery
// failures are collected in the result and leave the pair retryable.
func (d *Dispatcher) Notify(ctx context.Context, kind domain.ContentKind, contentID uint64, onlyUnnotified bool) (*Result, error) {
	log := logger.FromContext(ctx).With(
		zap.String("content_kind", string(kind)),
		zap.Uint64("content_id", contentID),
	)

	item, err := d.loadPublished(ctx, kind, contentID)
	if err != nil {
		return nil, err
	}

	tenants, err := d.content.EntitledDistributors(ctx, kind, item)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	recipients, err := d.repo.Recipients(ctx, tenants)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	records, err := d.repo.EnsureRecords(ctx, kind, contentID, recipients)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	result := &Result{TotalRecipients: len(recipients), Errors: []DeliveryError{}}
	pending := make([]Recipient, 0, len(recipients))
	for _, rc := range recipients {
		if rec, ok := records[rc.UserID]; onlyUnnotified && ok && rec.Sent() {
			result.SkippedCount++
			continue
		}
		pending = append(pending, rc)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(d.opts.Concurrency)
	for _, rc := range pending {
		g.Go(func() error {
			res, err := d.deliver(ctx, kind, item, rc, onlyUnnotified)

			mu.Lock()
			defer mu.Unlock()
			switch res {
			case outcomeSent:
				result.SentCount++
			case outcomeSkipped:
				result.SkippedCount++
			case outcomeFailed:
				log.Error("notification delivery failed",
					zap.Uint64("user_id", rc.UserID),
					zap.String("email", rc.Email),
					zap.Error(err),
				)
				result.Errors = append(result.Errors, DeliveryError{
					ContentID: contentID,
					UserID:    rc.UserID,
					Email:     rc.Email,
					Error:     err.Error(),
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	metrics.NotificationsSent.WithLabelValues(string(kind)).Add(float64(result.SentCount))
	metrics.NotificationsSkipped.WithLabelValues(string(kind)).Add(float64(result.SkippedCount))
	metrics.NotificationsFailed.WithLabelValues(string(kind)).Add(float64(len(result.Errors)))

	result.Success = true
	log.Info("notification batch finished",
		zap.Int("total_recipients", result.TotalRecipients),
		zap.Int("sent", result.SentCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("failed", len(result.Errors)),
	)
	return result, nil
}

func claimKey(kind domain.ContentKind, contentID, userID uint64) string {
	return fmt.Sprintf("notify:%s:%d:%d", kind, contentID, userID)
}

// deliver sends to one recipient. The claim keeps a concurrent run off the
// same pair and the record is re-read once the claim is held.
func (d *Dispatcher) deliver(ctx context.Context, kind domain.ContentKind, item domain.Shareable, rc Recipient, onlyUnnotified bool) (outcome, error) {
	key := claimKey(kind, item.ContentID(), rc.UserID)
	claimed, err := d.claims.Claim(ctx, key, d.opts.ClaimTTL)
	switch {
	case err != nil:
		logger.FromContext(ctx).Warn("notification claim unavailable, sending unguarded",
			zap.String("key", key), zap.Error(err))
	case !claimed:
		return outcomeSkipped, nil
	default:
		defer d.claims.Release(context.WithoutCancel(ctx), key)
	}

	if onlyUnnotified {
		sent, err := d.repo.IsNotified(ctx, kind, item.ContentID(), rc.UserID)
		if err != nil {
			return outcomeFailed, err
		}
		if sent {
			return outcomeSkipped, nil
		}
	}

	html, err := render(kind, item, rc, d.opts.PortalURL)
	if err != nil {
		return outcomeFailed, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()
	if err := d.mailer.Send(sendCtx, mail.Message{
		To:      rc.Email,
		Subject: subject(kind, item),
		HTML:    html,
	}); err != nil {
		return outcomeFailed, err
	}

	if _, err := d.repo.MarkNotified(context.WithoutCancel(ctx), kind, item.ContentID(), rc.UserID, d.now()); err != nil {
		return outcomeFailed, fmt.Errorf("delivered but not recorded: %w", err)
	}
	return outcomeSent, nil
}

// Status lists the delivery records of a content item
func (d *Dispatcher) Status(ctx context.Context, kind domain.ContentKind, contentID uint64) ([]domain.NotificationRecord, error) {
	if _, err := domain.ParseContentKind(string(kind)); err != nil {
		return nil, apperrors.BadRequest("Unknown content kind", err)
	}
	records, err := d.repo.List(ctx, kind, contentID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return records, nil
}
