package domain

// TenantID identifies the distributor that owns a principal. NoTenant means
// the principal has no profile or no distributor linkage and is entitled to
// nothing.
type TenantID uint64

const NoTenant TenantID = 0

func (t TenantID) Valid() bool {
	return t != NoTenant
}

func (t TenantID) DistributorID() uint64 {
	return uint64(t)
}

// Principal is the authenticated caller. It is passed explicitly into
// services instead of being read from ambient request state.
type Principal struct {
	UserID        uint64
	Tenant        TenantID
	Role          UserRole
	PlatformAdmin bool
}

// CanManageCompany reports whether the principal may administer users of the
// given distributor.
func (p Principal) CanManageCompany(distributorID uint64) bool {
	if p.PlatformAdmin {
		return true
	}
	return p.Tenant.Valid() && p.Tenant.DistributorID() == distributorID && p.Role == RoleAdmin
}

// CanAccessTenant reports whether the principal may read or write data
// belonging to the given distributor.
func (p Principal) CanAccessTenant(distributorID uint64) bool {
	if p.PlatformAdmin {
		return true
	}
	return p.Tenant.Valid() && p.Tenant.DistributorID() == distributorID
}
