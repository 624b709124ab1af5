// Package visibility decides which shareable content a distributor may see.
//
// Sharing uses allow-list semantics: a content item without junction rows is
// visible to every tenant, an item with rows is visible only to the listed
// tenants. Unpublished content and the NoTenant principal never see anything.
package visibility

import "distributor-portal/internal/domain"

type tenantSet map[domain.TenantID]struct{}

// AllowList holds the junction rows of a batch of content items, keyed by
// content id. Items absent from the map are unrestricted.
type AllowList map[uint64]tenantSet

func (a AllowList) Add(contentID uint64, tenant domain.TenantID) {
	set, ok := a[contentID]
	if !ok {
		set = tenantSet{}
		a[contentID] = set
	}
	set[tenant] = struct{}{}
}

func (a AllowList) Restricted(contentID uint64) bool {
	return len(a[contentID]) > 0
}

// Allows applies the default-open rule for one item
func (a AllowList) Allows(contentID uint64, tenant domain.TenantID) bool {
	if !tenant.Valid() {
		return false
	}
	set := a[contentID]
	if len(set) == 0 {
		return true
	}
	_, ok := set[tenant]
	return ok
}

// Tenants returns the allow-listed tenants of one item
func (a AllowList) Tenants(contentID uint64) []domain.TenantID {
	out := make([]domain.TenantID, 0, len(a[contentID]))
	for t := range a[contentID] {
		out = append(out, t)
	}
	return out
}

// ResolveVisible keeps the published items the tenant is entitled to, in
// input order. Status is checked before sharing.
func ResolveVisible[T domain.Shareable](items []T, allow AllowList, tenant domain.TenantID) []T {
	out := make([]T, 0, len(items))
	if !tenant.Valid() {
		return out
	}
	for _, item := range items {
		if item.ContentStatus() != domain.ContentPublished {
			continue
		}
		if allow.Allows(item.ContentID(), tenant) {
			out = append(out, item)
		}
	}
	return out
}
