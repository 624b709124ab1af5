package visibility

import (
	"distributor-portal/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
)

func material(id uint64, status domain.ContentStatus) domain.TrainingMaterial {
	return domain.TrainingMaterial{ContentBase: domain.ContentBase{ID: id, Title: "m", Status: status}}
}

func TestResolveVisible_UnrestrictedIsVisibleToEveryTenant(t *testing.T) {
	item := material(1, domain.ContentPublished)
	allow := AllowList{}

	for _, tenant := range []domain.TenantID{1, 2, 3} {
		got := ResolveVisible([]domain.TrainingMaterial{item}, allow, tenant)
		assert.Equal(t, []domain.TrainingMaterial{item}, got, "tenant %d", tenant)
	}
}

func TestResolveVisible_RestrictedIsAllowListOnly(t *testing.T) {
	item := material(1, domain.ContentPublished)
	allow := AllowList{}
	allow.Add(1, 1)

	assert.Equal(t, []domain.TrainingMaterial{item}, ResolveVisible([]domain.TrainingMaterial{item}, allow, 1))
	assert.Empty(t, ResolveVisible([]domain.TrainingMaterial{item}, allow, 2))
}

func TestResolveVisible_NoTenantSeesNothing(t *testing.T) {
	items := []domain.TrainingMaterial{
		material(1, domain.ContentPublished),
		material(2, domain.ContentPublished),
	}
	allow := AllowList{}
	allow.Add(2, domain.NoTenant)

	assert.Empty(t, ResolveVisible(items, allow, domain.NoTenant))
}

func TestResolveVisible_StatusFilteredBeforeSharing(t *testing.T) {
	items := []domain.TrainingMaterial{
		material(1, domain.ContentDraft),
		material(2, domain.ContentArchived),
		material(3, "Published"),
	}

	got := ResolveVisible(items, AllowList{}, 7)
	if assert.Len(t, got, 1) {
		assert.Equal(t, uint64(3), got[0].ID)
	}
}

func TestResolveVisible_KeepsOrderAndMixesRules(t *testing.T) {
	items := []domain.TrainingMaterial{
		material(1, domain.ContentPublished),
		material(2, domain.ContentPublished),
		material(3, domain.ContentPublished),
	}
	allow := AllowList{}
	allow.Add(2, 9)
	allow.Add(3, 5)
	allow.Add(3, 9)

	got := ResolveVisible(items, allow, 5)
	ids := []uint64{}
	for _, g := range got {
		ids = append(ids, g.ID)
	}
	assert.Equal(t, []uint64{1, 3}, ids)
}

func release(id uint64, target domain.TargetType) domain.SoftwareRelease {
	return domain.SoftwareRelease{
		ContentBase: domain.ContentBase{ID: id, Status: domain.ContentPublished},
		TargetType:  target,
	}
}

func TestReleaseVisible(t *testing.T) {
	d1 := domain.TenantID(1)
	d2 := domain.TenantID(2)
	d1Devices := map[uint64]struct{}{100: {}, 101: {}}

	all := NewReleaseScope(release(1, domain.TargetAll))
	devicesOnly := NewReleaseScope(release(2, domain.TargetDevices))
	devicesOnly.Devices[100] = struct{}{}
	direct := NewReleaseScope(release(3, domain.TargetDistributors))
	direct.Distributors[d2] = struct{}{}
	emptyDevices := NewReleaseScope(release(4, domain.TargetDevices))

	tests := []struct {
		name    string
		scope   ReleaseScope
		tenant  domain.TenantID
		devices map[uint64]struct{}
		want    bool
	}{
		{"unrestricted all", all, d1, nil, true},
		{"device of tenant listed", devicesOnly, d1, d1Devices, true},
		{"device of other tenant listed", devicesOnly, d2, nil, false},
		{"direct listing", direct, d2, nil, true},
		{"not listed directly", direct, d1, d1Devices, false},
		{"targeted but no rows", emptyDevices, d1, d1Devices, false},
		{"no tenant", all, domain.NoTenant, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReleaseVisible(tt.scope, tt.tenant, tt.devices))
		})
	}
}

func TestEntitledReleaseTenants_UnionIsDeduplicated(t *testing.T) {
	scope := NewReleaseScope(release(1, domain.TargetDevices))
	scope.Distributors[1] = struct{}{}
	scope.Devices[100] = struct{}{}
	scope.Devices[200] = struct{}{}
	owners := map[uint64]domain.TenantID{100: 1, 200: 2}

	got := EntitledReleaseTenants(scope, owners, []domain.TenantID{1, 2, 3})
	assert.ElementsMatch(t, []domain.TenantID{1, 2}, got)
}

func TestEntitledReleaseTenants_Unrestricted(t *testing.T) {
	universe := []domain.TenantID{1, 2, 3}

	assert.Equal(t, universe, EntitledReleaseTenants(NewReleaseScope(release(1, domain.TargetAll)), nil, universe))
	assert.Empty(t, EntitledReleaseTenants(NewReleaseScope(release(2, domain.TargetDistributors)), nil, universe))
}
