package device

import (
	"context"
	"distributor-portal/internal/db/dbtest"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"distributor-portal/internal/utils"
	"distributor-portal/internal/visibility"
	"net/http"
	"testing"
	"time"

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

// countingRepo records writes so tests can assert that none happened
type countingRepo struct {
	DeviceRepository
	creates int
}

func (r *countingRepo) Create(ctx context.Context, d *domain.Device) error {
	r.creates++
	return r.DeviceRepository.Create(ctx, d)
}

type fixture struct {
	db       *gorm.DB
	repo     *countingRepo
	blobs    *MockBlobs
	versions *recordingVersions
	svc      Service
	owner    domain.Principal
	outsider domain.Principal
	customer domain.Customer
}

func setup(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.New(t)
	d1 := domain.Distributor{Name: "One", Status: domain.StatusActive}
	d2 := domain.Distributor{Name: "Two", Status: domain.StatusActive}
	require.NoError(t, conn.Create(&d1).Error)
	require.NoError(t, conn.Create(&d2).Error)
	c := domain.Customer{DistributorID: d1.ID, Name: "Clinic"}
	require.NoError(t, conn.Create(&c).Error)

	repo := &countingRepo{DeviceRepository: NewRepository(conn)}
	blobs := new(MockBlobs)
	versions := &recordingVersions{bumped: map[string]int{}}
	return fixture{
		db:       conn,
		repo:     repo,
		blobs:    blobs,
		versions: versions,
		svc:      NewService(repo, blobs, versions),
		owner:    domain.Principal{UserID: 1, Tenant: domain.TenantID(d1.ID), Role: domain.RoleUser},
		outsider: domain.Principal{UserID: 2, Tenant: domain.TenantID(d2.ID), Role: domain.RoleAdmin},
		customer: c,
	}
}

func TestCreate_DuplicateSerialIsRejectedBeforeWrite(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.owner, Form{CustomerID: f.customer.ID, SerialNumber: "SN-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.creates)

	_, err = f.svc.Create(ctx, f.owner, Form{CustomerID: f.customer.ID, SerialNumber: " SN-1 "})
	assert.True(t, errors.Is(err, http.StatusConflict))
	assert.Equal(t, 1, f.repo.creates)
}

func TestCreate_WarrantyBeforeInstallation(t *testing.T) {
	f := setup(t)
	installed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	expires := installed.AddDate(0, -1, 0)

	_, err := f.svc.Create(context.Background(), f.owner, Form{
		CustomerID:       f.customer.ID,
		SerialNumber:     "SN-2",
		InstallationDate: &installed,
		WarrantyExpiry:   &expires,
	})

	require.True(t, errors.Is(err, http.StatusUnprocessableEntity))
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Fields, "warranty_expiry")
	assert.Equal(t, 0, f.repo.creates)
}

func TestCreate_ForeignCustomer(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Create(context.Background(), f.outsider, Form{CustomerID: f.customer.ID, SerialNumber: "SN-3"})
	assert.True(t, errors.Is(err, http.StatusNotFound))
}

func TestUpdateListDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d, err := f.svc.Create(ctx, f.owner, Form{CustomerID: f.customer.ID, SerialNumber: "SN-4", Name: "Scanner"})
	require.NoError(t, err)
	other, err := f.svc.Create(ctx, f.owner, Form{CustomerID: f.customer.ID, SerialNumber: "SN-5"})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.owner, d.ID, Form{CustomerID: f.customer.ID, SerialNumber: "SN-5"})
	assert.True(t, errors.Is(err, http.StatusConflict))

	updated, err := f.svc.Update(ctx, f.owner, d.ID, Form{CustomerID: f.customer.ID, SerialNumber: "SN-4", Status: "Maintenance"})
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceMaintenance, updated.Status)
	assert.Equal(t, 3, f.versions.bumped[domain.ContentVersionKey(domain.KindRelease)])

	page, err := f.svc.List(ctx, f.owner, Filter{Status: "maintenance"}, utils.Pagination{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Clinic", page.Data[0].CustomerName)

	page, err = f.svc.List(ctx, domain.Principal{UserID: 9}, Filter{}, utils.Pagination{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Empty(t, page.Data)

	doc := domain.DeviceDocument{DeviceID: other.ID, Title: "Manual", Type: domain.DocManual, Version: "1", FileKey: "devices/x/manual.pdf"}
	require.NoError(t, f.db.Create(&doc).Error)
	f.blobs.On("Delete", "devices/x/manual.pdf").Return(nil)

	assert.True(t, errors.Is(f.svc.Delete(ctx, f.outsider, other.ID), http.StatusNotFound))
	require.NoError(t, f.svc.Delete(ctx, f.owner, other.ID))
	f.blobs.AssertExpectations(t)

	var count int64
	f.db.Model(&domain.DeviceDocument{}).Count(&count)
	assert.Zero(t, count)
}

func TestDelete_DeviceTargetedReleaseStaysClosed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d, err := f.svc.Create(ctx, f.owner, Form{CustomerID: f.customer.ID, SerialNumber: "SN-6"})
	require.NoError(t, err)
	releaseKey := domain.ContentVersionKey(domain.KindRelease)
	assert.Equal(t, 1, f.versions.bumped[releaseKey])

	rel := domain.SoftwareRelease{ContentBase: domain.ContentBase{Title: "FW", Status: domain.ContentPublished}, Version: "4.1"}
	require.NoError(t, f.db.Create(&rel).Error)
	require.NoError(t, f.db.Create(&domain.SoftwareReleaseDevice{SoftwareReleaseID: rel.ID, DeviceID: d.ID}).Error)

	vis := visibility.NewService(visibility.NewRepository(f.db))
	got, err := vis.VisibleReleases(ctx, f.outsider.Tenant)
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, f.svc.Delete(ctx, f.owner, d.ID))
	assert.Equal(t, 2, f.versions.bumped[releaseKey])

	got, err = vis.VisibleReleases(ctx, f.outsider.Tenant)
	require.NoError(t, err)
	assert.Empty(t, got)

	var rows int64
	require.NoError(t, f.db.Model(&domain.SoftwareReleaseDevice{}).Where("software_release_id = ?", rel.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}
