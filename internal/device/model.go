package device

import (
	"distributor-portal/internal/domain"
	"time"
)

type Form struct {
	CustomerID       uint64     `json:"customer_id" binding:"required"`
	ProductID        *uint64    `json:"product_id"`
	SerialNumber     string     `json:"serial_number" binding:"required,max=128"`
	Name             string     `json:"name" binding:"max=255"`
	Model            string     `json:"model" binding:"max=255"`
	Status           string     `json:"status" binding:"omitempty,oneof=active inactive maintenance decommissioned"`
	InstallationDate *time.Time `json:"installation_date"`
	WarrantyExpiry   *time.Time `json:"warranty_expiry"`
	Location         string     `json:"location"`
	Notes            string     `json:"notes"`
}

// Listing is a device joined with its customer for list views
type Listing struct {
	domain.Device
	CustomerName  string `json:"customer_name"`
	DistributorID uint64 `json:"distributor_id"`
}

type Filter struct {
	DistributorID uint64
	CustomerID    uint64
	Status        string
	Search        string
}
