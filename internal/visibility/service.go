package visibility

import (
	"context"
	"distributor-portal/internal/domain"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Visible lists the published content of a kind that tenant may see
func (s *Service) Visible(ctx context.Context, kind domain.ContentKind, tenant domain.TenantID) ([]domain.Shareable, error) {
	if !tenant.Valid() {
		return []domain.Shareable{}, nil
	}

	if kind == domain.KindRelease {
		releases, err := s.VisibleReleases(ctx, tenant)
		if err != nil {
			return nil, err
		}
		out := make([]domain.Shareable, len(releases))
		for i := range releases {
			out[i] = releases[i]
		}
		return out, nil
	}

	items, err := s.repo.Published(ctx, kind)
	if err != nil {
		return nil, err
	}
	allow, err := s.repo.AllowList(ctx, kind, contentIDs(items))
	if err != nil {
		return nil, err
	}
	return ResolveVisible(items, allow, tenant), nil
}

func (s *Service) VisibleReleases(ctx context.Context, tenant domain.TenantID) ([]domain.SoftwareRelease, error) {
	if !tenant.Valid() {
		return []domain.SoftwareRelease{}, nil
	}
	releases, err := s.repo.PublishedReleases(ctx)
	if err != nil {
		return nil, err
	}
	scopes, err := s.repo.ReleaseScopes(ctx, releases)
	if err != nil {
		return nil, err
	}
	devices, err := s.repo.TenantDeviceIDs(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return ResolveVisibleReleases(releases, scopes, tenant, devices), nil
}

// IsVisible checks a single item, used when a tenant opens a detail page
func (s *Service) IsVisible(ctx context.Context, kind domain.ContentKind, item domain.Shareable, tenant domain.TenantID) (bool, error) {
	if !tenant.Valid() || item.ContentStatus() != domain.ContentPublished {
		return false, nil
	}

	if rel, ok := item.(domain.SoftwareRelease); ok {
		scopes, err := s.repo.ReleaseScopes(ctx, []domain.SoftwareRelease{rel})
		if err != nil {
			return false, err
		}
		devices, err := s.repo.TenantDeviceIDs(ctx, tenant)
		if err != nil {
			return false, err
		}
		return ReleaseVisible(scopes[rel.ID], tenant, devices), nil
	}

	allow, err := s.repo.AllowList(ctx, kind, []uint64{item.ContentID()})
	if err != nil {
		return false, err
	}
	return allow.Allows(item.ContentID(), tenant), nil
}

// EntitledDistributors returns the active distributors entitled to an item,
// regardless of its publication status.
func (s *Service) EntitledDistributors(ctx context.Context, kind domain.ContentKind, item domain.Shareable) ([]domain.TenantID, error) {
	active, err := s.repo.ActiveDistributors(ctx)
	if err != nil {
		return nil, err
	}

	var entitled []domain.TenantID
	if rel, ok := item.(domain.SoftwareRelease); ok {
		scopes, err := s.repo.ReleaseScopes(ctx, []domain.SoftwareRelease{rel})
		if err != nil {
			return nil, err
		}
		scope := scopes[rel.ID]
		deviceIDs := make([]uint64, 0, len(scope.Devices))
		for id := range scope.Devices {
			deviceIDs = append(deviceIDs, id)
		}
		owners, err := s.repo.DeviceOwners(ctx, deviceIDs)
		if err != nil {
			return nil, err
		}
		entitled = EntitledReleaseTenants(scope, owners, active)
	} else {
		allow, err := s.repo.AllowList(ctx, kind, []uint64{item.ContentID()})
		if err != nil {
			return nil, err
		}
		if !allow.Restricted(item.ContentID()) {
			return active, nil
		}
		entitled = allow.Tenants(item.ContentID())
	}

	return intersect(entitled, active), nil
}

func (s *Service) FindContent(ctx context.Context, kind domain.ContentKind, id uint64) (domain.Shareable, error) {
	return s.repo.FindContent(ctx, kind, id)
}

func contentIDs(items []domain.Shareable) []uint64 {
	ids := make([]uint64, len(items))
	for i, item := range items {
		ids[i] = item.ContentID()
	}
	return ids
}

// intersect keeps the entries of a that are in b
func intersect(a, b []domain.TenantID) []domain.TenantID {
	keep := make(map[domain.TenantID]struct{}, len(b))
	for _, t := range b {
		keep[t] = struct{}{}
	}
	out := make([]domain.TenantID, 0, len(a))
	for _, t := range a {
		if _, ok := keep[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
