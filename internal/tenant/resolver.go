// Package tenant maps an authenticated principal to the distributor that
// owns it.
package tenant

import (
	"context"
	"distributor-portal/internal/domain"
	"errors"

	"gorm.io/gorm"
)

type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

type linkage struct {
	DistributorID uint64
	Status        domain.AccountStatus
}

// Resolve returns the owning distributor of userID. A missing profile, a
// missing distributor or an inactive distributor all resolve to NoTenant;
// only storage failures are errors.
func (r *Resolver) Resolve(ctx context.Context, userID uint64) (domain.TenantID, error) {
	if userID == 0 {
		return domain.NoTenant, nil
	}

	var row linkage
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.distributor_id, distributors.status").
		Joins("JOIN distributors ON distributors.id = users.distributor_id").
		Where("users.id = ?", userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NoTenant, nil
	}
	if err != nil {
		return domain.NoTenant, err
	}

	if row.DistributorID == 0 || domain.AccountStatus(row.Status) == domain.StatusInactive {
		return domain.NoTenant, nil
	}
	return domain.TenantID(row.DistributorID), nil
}
