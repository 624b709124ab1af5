package distributor

import (
	"context"
	"distributor-portal/internal/db/dbtest"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"distributor-portal/internal/utils"
	"distributor-portal/internal/visibility"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockBlobs struct {
	mock.Mock
}

func (m *MockBlobs) Delete(ctx context.Context, key string) error {
	return m.Called(key).Error(0)
}

type recordingVersions struct {
	bumped map[string]int
}

func (v *recordingVersions) IncrementVersion(ctx context.Context, key string) {
	v.bumped[key]++
}

func newService(t *testing.T) (*gorm.DB, Service) {
	t.Helper()
	conn := dbtest.New(t)
	return conn, NewService(NewRepository(conn), nil, nil)
}

func TestCreate_WithFirstUser(t *testing.T) {
	conn, svc := newService(t)

	d, first, err := svc.Create(context.Background(), CreateRequest{
		Name:        "Acme Medical",
		AccountType: "non-exclusive",
		FirstUser:   &FirstUserForm{Name: "Ann", Email: "Ann@Acme.test", Password: "password123"},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.AccountNonExclusive, d.AccountType)
	assert.Equal(t, domain.StatusActive, d.Status)
	require.NotNil(t, first)
	assert.Equal(t, "ann@acme.test", first.Email)
	assert.Equal(t, domain.RoleAdmin, first.Role)

	var stored domain.User
	require.NoError(t, conn.First(&stored, first.ID).Error)
	assert.Equal(t, d.ID, stored.DistributorID)
}

func TestCreate_DuplicateFirstUserRollsBack(t *testing.T) {
	conn, svc := newService(t)
	ctx := context.Background()
	form := &FirstUserForm{Name: "Ann", Email: "ann@acme.test", Password: "password123"}

	_, _, err := svc.Create(ctx, CreateRequest{Name: "One", FirstUser: form})
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, CreateRequest{Name: "Two", FirstUser: form})
	assert.True(t, errors.Is(err, http.StatusConflict))

	var count int64
	conn.Model(&domain.Distributor{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestListAndGet(t *testing.T) {
	_, svc := newService(t)
	ctx := context.Background()
	a, _, err := svc.Create(ctx, CreateRequest{Name: "Alpha", Territory: "North"})
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, CreateRequest{Name: "Beta", Status: "pending"})
	require.NoError(t, err)

	page, err := svc.List(ctx, Filter{Status: "Active"}, utils.Pagination{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Alpha", page.Data[0].Name)

	page, err = svc.List(ctx, Filter{Search: "nor"}, utils.Pagination{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)

	_, err = svc.List(ctx, Filter{Status: "gone"}, utils.Pagination{Page: 1, PageSize: 20})
	assert.True(t, errors.Is(err, http.StatusBadRequest))

	member := domain.Principal{UserID: 1, Tenant: domain.TenantID(a.ID), Role: domain.RoleUser}
	got, err := svc.Get(ctx, member, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = svc.Get(ctx, member, a.ID+1)
	assert.True(t, errors.Is(err, http.StatusForbidden))
}

func TestUpdate(t *testing.T) {
	_, svc := newService(t)
	ctx := context.Background()
	d, _, err := svc.Create(ctx, CreateRequest{Name: "Alpha"})
	require.NoError(t, err)

	status := "INACTIVE"
	updated, err := svc.Update(ctx, d.ID, UpdateRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, updated.Status)

	_, err = svc.Update(ctx, d.ID+100, UpdateRequest{Status: &status})
	assert.True(t, errors.Is(err, http.StatusNotFound))
}

func TestDelete_Cascades(t *testing.T) {
	conn := dbtest.New(t)
	blobs := new(MockBlobs)
	versions := &recordingVersions{bumped: map[string]int{}}
	svc := NewService(NewRepository(conn), blobs, versions)
	ctx := context.Background()
	d, _, err := svc.Create(ctx, CreateRequest{
		Name:      "Alpha",
		FirstUser: &FirstUserForm{Name: "Ann", Email: "ann@acme.test", Password: "password123"},
	})
	require.NoError(t, err)
	other, _, err := svc.Create(ctx, CreateRequest{Name: "Beta"})
	require.NoError(t, err)

	customer := domain.Customer{DistributorID: d.ID, Name: "Clinic"}
	require.NoError(t, conn.Create(&customer).Error)
	device := domain.Device{CustomerID: customer.ID, SerialNumber: "SN-1"}
	require.NoError(t, conn.Create(&device).Error)
	doc := domain.DeviceDocument{DeviceID: device.ID, Title: "Manual", Type: domain.DocManual, Version: "1", FileKey: "devices/1/manual.pdf"}
	require.NoError(t, conn.Create(&doc).Error)
	rel := domain.SoftwareRelease{ContentBase: domain.ContentBase{Title: "FW"}, Version: "1", TargetType: domain.TargetDevices}
	require.NoError(t, conn.Create(&rel).Error)
	require.NoError(t, conn.Create(&domain.SoftwareReleaseDevice{SoftwareReleaseID: rel.ID, DeviceID: device.ID}).Error)
	require.NoError(t, conn.Create(&domain.SoftwareReleaseDistributor{SoftwareReleaseID: rel.ID, DistributorID: d.ID}).Error)
	require.NoError(t, conn.Create(&domain.SoftwareReleaseDistributor{SoftwareReleaseID: rel.ID, DistributorID: other.ID}).Error)
	blobs.On("Delete", "devices/1/manual.pdf").Return(nil)

	require.NoError(t, svc.Delete(ctx, d.ID))
	blobs.AssertExpectations(t)

	for _, model := range []any{&domain.User{}, &domain.Customer{}, &domain.Device{}, &domain.DeviceDocument{}, &domain.SoftwareReleaseDevice{}} {
		var count int64
		require.NoError(t, conn.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T", model)
	}
	var remaining []domain.SoftwareReleaseDistributor
	require.NoError(t, conn.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, other.ID, remaining[0].DistributorID)

	for _, kind := range domain.ContentKinds {
		assert.Equal(t, 1, versions.bumped[domain.ContentVersionKey(kind)], kind)
	}

	assert.True(t, errors.Is(svc.Delete(ctx, d.ID), http.StatusNotFound))
}

func TestDelete_ContentSharedOnlyWithItStaysHidden(t *testing.T) {
	conn, svc := newService(t)
	ctx := context.Background()
	d1, _, err := svc.Create(ctx, CreateRequest{Name: "One"})
	require.NoError(t, err)
	d2, _, err := svc.Create(ctx, CreateRequest{Name: "Two"})
	require.NoError(t, err)

	item := domain.TrainingMaterial{ContentBase: domain.ContentBase{Title: "Partner course", Status: domain.ContentPublished}}
	require.NoError(t, conn.Create(&item).Error)
	require.NoError(t, conn.Create(&domain.TrainingMaterialDistributor{TrainingMaterialID: item.ID, DistributorID: d1.ID}).Error)

	vis := visibility.NewService(visibility.NewRepository(conn))
	got, err := vis.Visible(ctx, domain.KindTraining, domain.TenantID(d2.ID))
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, svc.Delete(ctx, d1.ID))

	got, err = vis.Visible(ctx, domain.KindTraining, domain.TenantID(d2.ID))
	require.NoError(t, err)
	assert.Empty(t, got)

	entitled, err := vis.EntitledDistributors(ctx, domain.KindTraining, item)
	require.NoError(t, err)
	assert.Empty(t, entitled)
}

func TestUpdate_StatusChangeExpiresListings(t *testing.T) {
	conn := dbtest.New(t)
	versions := &recordingVersions{bumped: map[string]int{}}
	svc := NewService(NewRepository(conn), nil, versions)
	ctx := context.Background()
	d, _, err := svc.Create(ctx, CreateRequest{Name: "Alpha"})
	require.NoError(t, err)

	territory := "South"
	_, err = svc.Update(ctx, d.ID, UpdateRequest{Territory: &territory})
	require.NoError(t, err)
	assert.Empty(t, versions.bumped)

	status := "inactive"
	_, err = svc.Update(ctx, d.ID, UpdateRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 1, versions.bumped[domain.ContentVersionKey(domain.KindAnnouncement)])
}
