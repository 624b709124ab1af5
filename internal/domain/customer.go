package domain

import "time"

type Customer struct {
	ID            uint64    `json:"id"`
	DistributorID uint64    `json:"distributor_id" gorm:"not null;index"`
	Name          string    `json:"name" gorm:"size:255;not null"`
	ContactName   string    `json:"contact_name" gorm:"size:255"`
	ContactEmail  string    `json:"contact_email" gorm:"size:255"`
	ContactPhone  string    `json:"contact_phone" gorm:"size:64"`
	Address       string    `json:"address"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Devices       []Device  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// Product is an entry of the global catalog.
type Product struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	SKU         string    `json:"sku" gorm:"size:128;uniqueIndex;not null"`
	Category    string    `json:"category" gorm:"size:128"`
	Description string    `json:"description"`
	Active      bool      `json:"active" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
