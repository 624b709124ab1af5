package domain

import (
	"time"

	"gorm.io/gorm"
)

// User belongs to exactly one Distributor.
type User struct {
	ID            uint64        `json:"id"`
	DistributorID uint64        `json:"distributor_id" gorm:"not null;index"`
	Distributor   *Distributor  `json:"-"`
	Name          string        `json:"name" gorm:"size:255"`
	Email         string        `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Password      string        `json:"-" gorm:"-"` // input only, not stored in db
	PasswordHash  string        `json:"-"`
	Role          UserRole      `json:"role" gorm:"size:32;not null;default:'user'"`
	Status        AccountStatus `json:"status" gorm:"size:32;not null;default:'pending'"`
	PlatformAdmin bool          `json:"platform_admin" gorm:"default:false"`
	TokenVersion  uint64        `json:"-" gorm:"default:0"`
	InvitedAt     *time.Time    `json:"invited_at"`
	LastLoginAt   *time.Time    `json:"last_login_at"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Role = UserRole(canonical(string(u.Role)))
	u.Status = AccountStatus(canonical(string(u.Status)))
	return nil
}

// SafeUser represents a user without sensitive information
type SafeUser struct {
	ID            uint64        `json:"id"`
	DistributorID uint64        `json:"distributor_id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Role          UserRole      `json:"role"`
	Status        AccountStatus `json:"status"`
	PlatformAdmin bool          `json:"platform_admin"`
	InvitedAt     *time.Time    `json:"invited_at,omitempty"`
	LastLoginAt   *time.Time    `json:"last_login_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

func (u *User) ToSafeUser() SafeUser {
	return SafeUser{
		ID:            u.ID,
		DistributorID: u.DistributorID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		Status:        u.Status,
		PlatformAdmin: u.PlatformAdmin,
		InvitedAt:     u.InvitedAt,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
}

func (u *User) Principal() Principal {
	return Principal{
		UserID:        u.ID,
		Tenant:        TenantID(u.DistributorID),
		Role:          u.Role,
		PlatformAdmin: u.PlatformAdmin,
	}
}
