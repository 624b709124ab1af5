package domain

import "time"

// NotificationRecord tracks delivery of one content item to one user.
// NotifiedAt only ever moves from nil to a timestamp; rows are never deleted.
type NotificationRecord struct {
	ID          uint64      `json:"id"`
	ContentKind ContentKind `json:"content_kind" gorm:"size:32;not null;uniqueIndex:idx_notification_pair"`
	ContentID   uint64      `json:"content_id" gorm:"not null;uniqueIndex:idx_notification_pair"`
	UserID      uint64      `json:"user_id" gorm:"not null;uniqueIndex:idx_notification_pair"`
	Email       string      `json:"email" gorm:"size:255"`
	NotifiedAt  *time.Time  `json:"notified_at"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (r *NotificationRecord) Sent() bool {
	return r.NotifiedAt != nil
}
