package domain

import (
	"time"

	"gorm.io/gorm"
)

// Distributor is a tenant company.
type Distributor struct {
	ID           uint64        `json:"id"`
	Name         string        `json:"name" gorm:"size:255;not null"`
	Territory    string        `json:"territory" gorm:"size:255"`
	AccountType  AccountType   `json:"account_type" gorm:"size:32;not null;default:'non_exclusive'"`
	Status       AccountStatus `json:"status" gorm:"size:32;not null;default:'pending';index"`
	ContactName  string        `json:"contact_name" gorm:"size:255"`
	ContactEmail string        `json:"contact_email" gorm:"size:255"`
	ContactPhone string        `json:"contact_phone" gorm:"size:64"`
	Address      string        `json:"address"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Users        []User        `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Customers    []Customer    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (d *Distributor) BeforeSave(tx *gorm.DB) error {
	d.Status = AccountStatus(canonical(string(d.Status)))
	d.AccountType = AccountType(canonical(string(d.AccountType)))
	return nil
}

func (d *Distributor) IsActive() bool {
	return d.Status == StatusActive
}
