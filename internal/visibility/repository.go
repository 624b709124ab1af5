package visibility

import (
	"context"
	"distributor-portal/internal/domain"
	"fmt"

	"gorm.io/gorm"
)

// junction describes the fixed distributor junction table of a content kind.
type junction struct {
	table         string
	contentColumn string
}

var distributorJunctions = map[domain.ContentKind]junction{
	domain.KindTraining:      {table: "training_material_distributors", contentColumn: "training_material_id"},
	domain.KindMarketing:     {table: "marketing_asset_distributors", contentColumn: "marketing_asset_id"},
	domain.KindDocumentation: {table: "documentation_distributors", contentColumn: "documentation_id"},
	domain.KindAnnouncement:  {table: "announcement_distributors", contentColumn: "announcement_id"},
	domain.KindRelease:       {table: "software_release_distributors", contentColumn: "software_release_id"},
}

func junctionFor(kind domain.ContentKind) (junction, error) {
	j, ok := distributorJunctions[kind]
	if !ok {
		return junction{}, fmt.Errorf("no sharing relation for content kind %q", kind)
	}
	return j, nil
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type shareRow struct {
	ContentID     uint64
	DistributorID uint64
}

// AllowList loads the distributor junction rows of the given items
func (r *Repository) AllowList(ctx context.Context, kind domain.ContentKind, contentIDs []uint64) (AllowList, error) {
	allow := AllowList{}
	if len(contentIDs) == 0 {
		return allow, nil
	}
	j, err := junctionFor(kind)
	if err != nil {
		return nil, err
	}

	var rows []shareRow
	err = r.db.WithContext(ctx).
		Table(j.table).
		Select(j.contentColumn+" AS content_id, distributor_id").
		Where(j.contentColumn+" IN ?", contentIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		allow.Add(row.ContentID, domain.TenantID(row.DistributorID))
	}
	return allow, nil
}

// ReleaseScopes loads distributor and device restrictions of the releases
func (r *Repository) ReleaseScopes(ctx context.Context, releases []domain.SoftwareRelease) (map[uint64]ReleaseScope, error) {
	scopes := make(map[uint64]ReleaseScope, len(releases))
	if len(releases) == 0 {
		return scopes, nil
	}
	ids := make([]uint64, 0, len(releases))
	for _, rel := range releases {
		scopes[rel.ID] = NewReleaseScope(rel)
		ids = append(ids, rel.ID)
	}

	var dists []domain.SoftwareReleaseDistributor
	if err := r.db.WithContext(ctx).Where("software_release_id IN ?", ids).Find(&dists).Error; err != nil {
		return nil, err
	}
	for _, d := range dists {
		scopes[d.SoftwareReleaseID].Distributors[domain.TenantID(d.DistributorID)] = struct{}{}
	}

	var devices []domain.SoftwareReleaseDevice
	if err := r.db.WithContext(ctx).Where("software_release_id IN ?", ids).Find(&devices).Error; err != nil {
		return nil, err
	}
	for _, d := range devices {
		scopes[d.SoftwareReleaseID].Devices[d.DeviceID] = struct{}{}
	}
	return scopes, nil
}

// TenantDeviceIDs returns every device owned by the tenant through its customers
func (r *Repository) TenantDeviceIDs(ctx context.Context, tenant domain.TenantID) (map[uint64]struct{}, error) {
	out := map[uint64]struct{}{}
	if !tenant.Valid() {
		return out, nil
	}
	var ids []uint64
	err := r.db.WithContext(ctx).
		Table("devices").
		Joins("JOIN customers ON customers.id = devices.customer_id").
		Where("customers.distributor_id = ?", tenant.DistributorID()).
		Pluck("devices.id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

type ownerRow struct {
	DeviceID      uint64
	DistributorID uint64
}

// DeviceOwners maps device ids to their owning distributor
func (r *Repository) DeviceOwners(ctx context.Context, deviceIDs []uint64) (map[uint64]domain.TenantID, error) {
	out := make(map[uint64]domain.TenantID, len(deviceIDs))
	if len(deviceIDs) == 0 {
		return out, nil
	}
	var rows []ownerRow
	err := r.db.WithContext(ctx).
		Table("devices").
		Select("devices.id AS device_id, customers.distributor_id").
		Joins("JOIN customers ON customers.id = devices.customer_id").
		Where("devices.id IN ?", deviceIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.DeviceID] = domain.TenantID(row.DistributorID)
	}
	return out, nil
}

// ActiveDistributors returns every distributor currently able to receive content
func (r *Repository) ActiveDistributors(ctx context.Context) ([]domain.TenantID, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&domain.Distributor{}).
		Where("status = ?", domain.StatusActive).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.TenantID, len(ids))
	for i, id := range ids {
		out[i] = domain.TenantID(id)
	}
	return out, nil
}

// Published loads every published item of a kind, newest first
func (r *Repository) Published(ctx context.Context, kind domain.ContentKind) ([]domain.Shareable, error) {
	db := r.db.WithContext(ctx)
	switch kind {
	case domain.KindTraining:
		return published[domain.TrainingMaterial](db)
	case domain.KindMarketing:
		return published[domain.MarketingAsset](db)
	case domain.KindDocumentation:
		return published[domain.Documentation](db)
	case domain.KindAnnouncement:
		return published[domain.Announcement](db)
	case domain.KindRelease:
		return published[domain.SoftwareRelease](db)
	}
	return nil, fmt.Errorf("unknown content kind %q", kind)
}

// PublishedReleases is Published for releases, keeping the concrete type
func (r *Repository) PublishedReleases(ctx context.Context) ([]domain.SoftwareRelease, error) {
	var rows []domain.SoftwareRelease
	err := r.db.WithContext(ctx).
		Where(publishedStatus, domain.ContentPublished).
		Order("published_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// FindContent loads one item of any status. gorm.ErrRecordNotFound is
// returned unchanged.
func (r *Repository) FindContent(ctx context.Context, kind domain.ContentKind, id uint64) (domain.Shareable, error) {
	db := r.db.WithContext(ctx)
	switch kind {
	case domain.KindTraining:
		return first[domain.TrainingMaterial](db, id)
	case domain.KindMarketing:
		return first[domain.MarketingAsset](db, id)
	case domain.KindDocumentation:
		return first[domain.Documentation](db, id)
	case domain.KindAnnouncement:
		return first[domain.Announcement](db, id)
	case domain.KindRelease:
		return first[domain.SoftwareRelease](db, id)
	}
	return nil, fmt.Errorf("unknown content kind %q", kind)
}

// publishedStatus matches stored statuses regardless of casing
const publishedStatus = "LOWER(TRIM(status)) = ?"

func published[T domain.Shareable](db *gorm.DB) ([]domain.Shareable, error) {
	var rows []T
	if err := db.Where(publishedStatus, domain.ContentPublished).
		Order("published_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Shareable, len(rows))
	for i := range rows {
		out[i] = rows[i]
	}
	return out, nil
}

func first[T domain.Shareable](db *gorm.DB, id uint64) (domain.Shareable, error) {
	var row T
	if err := db.First(&row, id).Error; err != nil {
		return nil, err
	}
	return row, nil
}
