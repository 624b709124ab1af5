package visibility

import "distributor-portal/internal/domain"

// ReleaseScope is the sharing state of one software release.
type ReleaseScope struct {
	ReleaseID    uint64
	Target       domain.TargetType
	Distributors map[domain.TenantID]struct{}
	Devices      map[uint64]struct{}
}

func NewReleaseScope(r domain.SoftwareRelease) ReleaseScope {
	return ReleaseScope{
		ReleaseID:    r.ID,
		Target:       r.Target(),
		Distributors: map[domain.TenantID]struct{}{},
		Devices:      map[uint64]struct{}{},
	}
}

func (s ReleaseScope) Unrestricted() bool {
	return len(s.Distributors) == 0 && len(s.Devices) == 0
}

// ReleaseVisible is the union rule: the tenant is listed directly, or one of
// its devices is listed, or the release has no restriction of either kind and
// targets everyone.
func ReleaseVisible(scope ReleaseScope, tenant domain.TenantID, tenantDevices map[uint64]struct{}) bool {
	if !tenant.Valid() {
		return false
	}
	if scope.Unrestricted() {
		return scope.Target == domain.TargetAll
	}
	if _, ok := scope.Distributors[tenant]; ok {
		return true
	}
	for id := range tenantDevices {
		if _, ok := scope.Devices[id]; ok {
			return true
		}
	}
	return false
}

// ResolveVisibleReleases filters releases for one tenant. Releases without a
// scope entry are treated as unrestricted.
func ResolveVisibleReleases(
	releases []domain.SoftwareRelease,
	scopes map[uint64]ReleaseScope,
	tenant domain.TenantID,
	tenantDevices map[uint64]struct{},
) []domain.SoftwareRelease {
	out := make([]domain.SoftwareRelease, 0, len(releases))
	if !tenant.Valid() {
		return out
	}
	for _, r := range releases {
		if r.ContentStatus() != domain.ContentPublished {
			continue
		}
		scope, ok := scopes[r.ID]
		if !ok {
			scope = NewReleaseScope(r)
		}
		if ReleaseVisible(scope, tenant, tenantDevices) {
			out = append(out, r)
		}
	}
	return out
}

// EntitledReleaseTenants expands a scope into distributors. deviceOwners maps
// listed device ids to the distributor owning them through a customer; all
// is the tenant universe used for unrestricted "all" releases.
func EntitledReleaseTenants(scope ReleaseScope, deviceOwners map[uint64]domain.TenantID, all []domain.TenantID) []domain.TenantID {
	if scope.Unrestricted() {
		if scope.Target == domain.TargetAll {
			return all
		}
		return nil
	}

	seen := make(map[domain.TenantID]struct{}, len(scope.Distributors))
	out := make([]domain.TenantID, 0, len(scope.Distributors))
	add := func(t domain.TenantID) {
		if !t.Valid() {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for t := range scope.Distributors {
		add(t)
	}
	for deviceID := range scope.Devices {
		add(deviceOwners[deviceID])
	}
	return out
}
