package notification

import (
	"context"
	"distributor-portal/internal/domain"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Recipient is a user entitled to receive a content notification
type Recipient struct {
	UserID        uint64
	DistributorID uint64
	Name          string
	Email         string
}

type Repository interface {
	Recipients(ctx context.Context, tenants []domain.TenantID) ([]Recipient, error)
	EnsureRecords(ctx context.Context, kind domain.ContentKind, contentID uint64, recipients []Recipient) (map[uint64]domain.NotificationRecord, error)
	MarkNotified(ctx context.Context, kind domain.ContentKind, contentID, userID uint64, at time.Time) (bool, error)
	IsNotified(ctx context.Context, kind domain.ContentKind, contentID, userID uint64) (bool, error)
	List(ctx context.Context, kind domain.ContentKind, contentID uint64) ([]domain.NotificationRecord, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

// Recipients loads the users of the given distributors that are not
// inactive, deduplicated by user id and by email.
func (r *RepositoryImpl) Recipients(ctx context.Context, tenants []domain.TenantID) ([]Recipient, error) {
	if len(tenants) == 0 {
		return []Recipient{}, nil
	}
	ids := make([]uint64, len(tenants))
	for i, t := range tenants {
		ids[i] = t.DistributorID()
	}

	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("distributor_id IN ?", ids).
		Where("status <> ?", domain.StatusInactive).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return dedupe(users), nil
}

func dedupe(users []domain.User) []Recipient {
	seenID := make(map[uint64]struct{}, len(users))
	seenEmail := make(map[string]struct{}, len(users))
	out := make([]Recipient, 0, len(users))
	for _, u := range users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" {
			continue
		}
		if _, ok := seenID[u.ID]; ok {
			continue
		}
		if _, ok := seenEmail[email]; ok {
			continue
		}
		seenID[u.ID] = struct{}{}
		seenEmail[email] = struct{}{}
		out = append(out, Recipient{
			UserID:        u.ID,
			DistributorID: u.DistributorID,
			Name:          u.Name,
			Email:         u.Email,
		})
	}
	return out
}

// EnsureRecords inserts a pending record for every recipient that has none
// and returns all records of the content keyed by user id. Existing records
// are left untouched.
func (r *RepositoryImpl) EnsureRecords(ctx context.Context, kind domain.ContentKind, contentID uint64, recipients []Recipient) (map[uint64]domain.NotificationRecord, error) {
	db := r.db.WithContext(ctx)
	if len(recipients) > 0 {
		rows := make([]domain.NotificationRecord, len(recipients))
		for i, rc := range recipients {
			rows[i] = domain.NotificationRecord{
				ContentKind: kind,
				ContentID:   contentID,
				UserID:      rc.UserID,
				Email:       rc.Email,
			}
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_kind"}, {Name: "content_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).CreateInBatches(&rows, 200).Error
		if err != nil {
			return nil, err
		}
	}

	records, err := r.List(ctx, kind, contentID)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]domain.NotificationRecord, len(records))
	for _, rec := range records {
		out[rec.UserID] = rec
	}
	return out, nil
}

// MarkNotified stamps one pair. It reports false when the pair was already
// stamped, so a concurrent run never moves the timestamp.
func (r *RepositoryImpl) MarkNotified(ctx context.Context, kind domain.ContentKind, contentID, userID uint64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.NotificationRecord{}).
		Where("content_kind = ? AND content_id = ? AND user_id = ? AND notified_at IS NULL", kind, contentID, userID).
		Update("notified_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *RepositoryImpl) IsNotified(ctx context.Context, kind domain.ContentKind, contentID, userID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.NotificationRecord{}).
		Where("content_kind = ? AND content_id = ? AND user_id = ? AND notified_at IS NOT NULL", kind, contentID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *RepositoryImpl) List(ctx context.Context, kind domain.ContentKind, contentID uint64) ([]domain.NotificationRecord, error) {
	var records []domain.NotificationRecord
	err := r.db.WithContext(ctx).
		Where("content_kind = ? AND content_id = ?", kind, contentID).
		Order("user_id").
		Find(&records).Error
	return records, err
}
