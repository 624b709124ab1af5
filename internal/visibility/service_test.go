package visibility

import (
	"context"
	"distributor-portal/internal/db/dbtest"
	"distributor-portal/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	d1, d2, d3 domain.Distributor
	deviceX    domain.Device
}

func seed(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.New(t)
	f := fixture{db: conn}

	for _, d := range []*domain.Distributor{&f.d1, &f.d2, &f.d3} {
		d.Name = "dist"
		d.Status = domain.StatusActive
		d.AccountType = domain.AccountNonExclusive
		require.NoError(t, conn.Create(d).Error)
	}

	customer := domain.Customer{DistributorID: f.d1.ID, Name: "Clinic"}
	require.NoError(t, conn.Create(&customer).Error)
	f.deviceX = domain.Device{CustomerID: customer.ID, SerialNumber: "SN-X", Status: domain.DeviceActive}
	require.NoError(t, conn.Create(&f.deviceX).Error)
	return f
}

func ids(items []domain.Shareable) []uint64 {
	out := []uint64{}
	for _, i := range items {
		out = append(out, i.ContentID())
	}
	return out
}

func TestVisible_UnrestrictedPublishedForAllDistributors(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	svc := NewService(NewRepository(f.db))

	item := domain.TrainingMaterial{ContentBase: domain.ContentBase{Title: "Intro", Status: domain.ContentPublished}}
	require.NoError(t, f.db.Create(&item).Error)
	draft := domain.TrainingMaterial{ContentBase: domain.ContentBase{Title: "WIP", Status: domain.ContentDraft}}
	require.NoError(t, f.db.Create(&draft).Error)

	for _, d := range []domain.Distributor{f.d1, f.d2, f.d3} {
		got, err := svc.Visible(ctx, domain.KindTraining, domain.TenantID(d.ID))
		require.NoError(t, err)
		assert.Equal(t, []uint64{item.ID}, ids(got))
	}

	got, err := svc.Visible(ctx, domain.KindTraining, domain.NoTenant)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestVisible_RestrictedToOneDistributor(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	svc := NewService(NewRepository(f.db))

	item := domain.Announcement{ContentBase: domain.ContentBase{Title: "News", Status: domain.ContentPublished}}
	require.NoError(t, f.db.Create(&item).Error)
	require.NoError(t, f.db.Create(&domain.AnnouncementDistributor{AnnouncementID: item.ID, DistributorID: f.d1.ID}).Error)

	got, err := svc.Visible(ctx, domain.KindAnnouncement, domain.TenantID(f.d2.ID))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.Visible(ctx, domain.KindAnnouncement, domain.TenantID(f.d1.ID))
	require.NoError(t, err)
	assert.Equal(t, []uint64{item.ID}, ids(got))
}

func TestVisibleReleases_DeviceTargeting(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	svc := NewService(NewRepository(f.db))

	rel := domain.SoftwareRelease{
		ContentBase: domain.ContentBase{Title: "FW 2.0", Status: domain.ContentPublished},
		Version:     "2.0.0",
		TargetType:  domain.TargetDevices,
	}
	require.NoError(t, f.db.Create(&rel).Error)
	require.NoError(t, f.db.Create(&domain.SoftwareReleaseDevice{SoftwareReleaseID: rel.ID, DeviceID: f.deviceX.ID}).Error)

	got, err := svc.VisibleReleases(ctx, domain.TenantID(f.d1.ID))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rel.ID, got[0].ID)

	got, err = svc.VisibleReleases(ctx, domain.TenantID(f.d2.ID))
	require.NoError(t, err)
	assert.Empty(t, got)

	entitled, err := svc.EntitledDistributors(ctx, domain.KindRelease, rel)
	require.NoError(t, err)
	assert.Equal(t, []domain.TenantID{domain.TenantID(f.d1.ID)}, entitled)
}

func TestEntitledDistributors_SkipsInactive(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	svc := NewService(NewRepository(f.db))

	require.NoError(t, f.db.Model(&f.d3).Update("status", domain.StatusInactive).Error)

	doc := domain.Documentation{ContentBase: domain.ContentBase{Title: "API", Status: domain.ContentPublished}}
	require.NoError(t, f.db.Create(&doc).Error)

	entitled, err := svc.EntitledDistributors(ctx, domain.KindDocumentation, doc)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.TenantID{domain.TenantID(f.d1.ID), domain.TenantID(f.d2.ID)}, entitled)

	require.NoError(t, f.db.Create(&domain.DocumentationDistributor{DocumentationID: doc.ID, DistributorID: f.d3.ID}).Error)
	entitled, err = svc.EntitledDistributors(ctx, domain.KindDocumentation, doc)
	require.NoError(t, err)
	assert.Empty(t, entitled)
}

func TestIsVisible(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	svc := NewService(NewRepository(f.db))

	asset := domain.MarketingAsset{ContentBase: domain.ContentBase{Title: "Brochure", Status: domain.ContentPublished}}
	require.NoError(t, f.db.Create(&asset).Error)
	require.NoError(t, f.db.Create(&domain.MarketingAssetDistributor{MarketingAssetID: asset.ID, DistributorID: f.d2.ID}).Error)

	ok, err := svc.IsVisible(ctx, domain.KindMarketing, asset, domain.TenantID(f.d2.ID))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsVisible(ctx, domain.KindMarketing, asset, domain.TenantID(f.d1.ID))
	require.NoError(t, err)
	assert.False(t, ok)
}
