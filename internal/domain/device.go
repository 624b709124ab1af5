package domain

import (
	"time"

	"gorm.io/gorm"
)

type Device struct {
	ID               uint64           `json:"id"`
	CustomerID       uint64           `json:"customer_id" gorm:"not null;index"`
	Customer         *Customer        `json:"-"`
	ProductID        *uint64          `json:"product_id" gorm:"index"`
	SerialNumber     string           `json:"serial_number" gorm:"size:128;uniqueIndex;not null"`
	Name             string           `json:"name" gorm:"size:255"`
	Model            string           `json:"model" gorm:"size:255"`
	Status           DeviceStatus     `json:"status" gorm:"size:32;not null;default:'active'"`
	InstallationDate *time.Time       `json:"installation_date"`
	WarrantyExpiry   *time.Time       `json:"warranty_expiry"`
	Location         string           `json:"location"`
	Notes            string           `json:"notes"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Documents        []DeviceDocument `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (d *Device) BeforeSave(tx *gorm.DB) error {
	d.Status = DeviceStatus(canonical(string(d.Status)))
	return nil
}

// WarrantyConsistent reports whether the warranty expiry does not precede
// the installation date. Either date being unset is consistent.
func (d *Device) WarrantyConsistent() bool {
	if d.InstallationDate == nil || d.WarrantyExpiry == nil {
		return true
	}
	return !d.WarrantyExpiry.Before(*d.InstallationDate)
}
