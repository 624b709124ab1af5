package document

import (
	"context"
	"distributor-portal/internal/db/dbtest"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"distributor-portal/internal/storage"
	"fmt"
	"io"
	"net/http"
	"strings"
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

func (m *MockBlobs) Put(ctx context.Context, prefix string, r io.Reader, size int64, name, mime string) (storage.Object, error) {
	args := m.Called(prefix, name)
	return args.Get(0).(storage.Object), args.Error(1)
}

func (m *MockBlobs) PresignedURL(ctx context.Context, key, downloadName string, ttl time.Duration) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockBlobs) Delete(ctx context.Context, key string) error {
	return m.Called(key).Error(0)
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	owner    domain.Principal
	outsider domain.Principal
	device   domain.Device
}

func setup(t *testing.T, blobs Blobs) fixture {
	t.Helper()
	conn := dbtest.New(t)
	d1 := domain.Distributor{Name: "One", Status: domain.StatusActive}
	d2 := domain.Distributor{Name: "Two", Status: domain.StatusActive}
	require.NoError(t, conn.Create(&d1).Error)
	require.NoError(t, conn.Create(&d2).Error)
	c := domain.Customer{DistributorID: d1.ID, Name: "Clinic"}
	require.NoError(t, conn.Create(&c).Error)
	dev := domain.Device{CustomerID: c.ID, SerialNumber: "SN-1"}
	require.NoError(t, conn.Create(&dev).Error)

	return fixture{
		db:       conn,
		svc:      NewService(NewRepository(conn), blobs, time.Minute),
		owner:    domain.Principal{UserID: 1, Tenant: domain.TenantID(d1.ID), Role: domain.RoleUser},
		outsider: domain.Principal{UserID: 2, Tenant: domain.TenantID(d2.ID), Role: domain.RoleAdmin},
		device:   dev,
	}
}

func (f fixture) upload(t *testing.T, in UploadInput) *domain.DeviceDocument {
	t.Helper()
	in.DeviceID = f.device.ID
	if in.Type == "" {
		in.Type = domain.DocManual
	}
	doc, err := f.svc.Upload(context.Background(), f.owner, in, strings.NewReader("pdf"))
	require.NoError(t, err)
	return doc
}

func (f fixture) latestCount(t *testing.T, title string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.DeviceDocument{}).
		Where("device_id = ? AND title = ? AND is_latest = ?", f.device.ID, title, true).
		Count(&n).Error)
	return n
}

func TestUpload_NewVersionSupersedesPrevious(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	v1 := f.upload(t, UploadInput{Title: "Manual"})
	assert.Equal(t, "1", v1.Version)

	v2 := f.upload(t, UploadInput{Title: "Manual", PreviousVersionID: &v1.ID})
	assert.Equal(t, "2", v2.Version)
	require.NotNil(t, v2.PreviousVersionID)
	assert.Equal(t, v1.ID, *v2.PreviousVersionID)

	// same lineage by title and type without an explicit predecessor
	v3 := f.upload(t, UploadInput{Title: "Manual", Version: "2025-A"})
	require.NotNil(t, v3.PreviousVersionID)
	assert.Equal(t, v2.ID, *v3.PreviousVersionID)

	assert.EqualValues(t, 1, f.latestCount(t, "Manual"))

	old, err := f.svc.Get(ctx, f.owner, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentSuperseded, old.Status)
	assert.False(t, old.IsLatest)

	latest, err := f.svc.List(ctx, f.owner, f.device.ID, true)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, v3.ID, latest[0].ID)

	all, err := f.svc.List(ctx, f.owner, f.device.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpload_VersionOfSupersededIsConflict(t *testing.T) {
	f := setup(t, nil)
	v1 := f.upload(t, UploadInput{Title: "Manual"})
	f.upload(t, UploadInput{Title: "Manual", PreviousVersionID: &v1.ID})

	_, err := f.svc.Upload(context.Background(), f.owner, UploadInput{
		DeviceID: f.device.ID, Title: "Manual", Type: domain.DocManual, PreviousVersionID: &v1.ID,
	}, nil)
	assert.True(t, errors.Is(err, http.StatusConflict))
	assert.EqualValues(t, 1, f.latestCount(t, "Manual"))
}

func TestUpload_MissingPreviousIsNotFound(t *testing.T) {
	f := setup(t, nil)
	missing := uint64(999)
	_, err := f.svc.Upload(context.Background(), f.owner, UploadInput{
		DeviceID: f.device.ID, Title: "Manual", Type: domain.DocManual, PreviousVersionID: &missing,
	}, nil)
	assert.True(t, errors.Is(err, http.StatusNotFound))
}

func TestUpload_OtherTenantDeviceIsHidden(t *testing.T) {
	f := setup(t, nil)
	_, err := f.svc.Upload(context.Background(), f.outsider, UploadInput{
		DeviceID: f.device.ID, Title: "Manual", Type: domain.DocManual,
	}, nil)
	assert.True(t, errors.Is(err, http.StatusNotFound))

	_, err = f.svc.List(context.Background(), f.outsider, f.device.ID, true)
	assert.True(t, errors.Is(err, http.StatusNotFound))
}

func TestUpload_StoresFileAndRemovesItWhenInsertFails(t *testing.T) {
	blobs := new(MockBlobs)
	f := setup(t, blobs)
	prefix := fmt.Sprintf("devices/%d", f.device.ID)
	blobs.On("Put", prefix, "manual.pdf").Return(storage.Object{Key: prefix + "/k-manual.pdf", Size: 3}, nil)
	blobs.On("Delete", prefix+"/k-manual.pdf").Return(nil)

	v1 := f.upload(t, UploadInput{Title: "Manual", FileName: "manual.pdf"})
	assert.Equal(t, prefix+"/k-manual.pdf", v1.FileKey)
	assert.EqualValues(t, 3, v1.FileSize)
	f.upload(t, UploadInput{Title: "Manual", FileName: "manual.pdf"})

	_, err := f.svc.Upload(context.Background(), f.owner, UploadInput{
		DeviceID: f.device.ID, Title: "Manual", Type: domain.DocManual, FileName: "manual.pdf", PreviousVersionID: &v1.ID,
	}, strings.NewReader("pdf"))
	assert.True(t, errors.Is(err, http.StatusConflict))
	blobs.AssertCalled(t, "Delete", prefix+"/k-manual.pdf")
}

func TestGet_AddsDownloadLink(t *testing.T) {
	blobs := new(MockBlobs)
	f := setup(t, blobs)
	blobs.On("Put", mock.Anything, mock.Anything).Return(storage.Object{Key: "k", Size: 3}, nil)
	blobs.On("PresignedURL", "k").Return("https://files.test/k", nil)

	doc := f.upload(t, UploadInput{Title: "Datasheet", FileName: "ds.pdf"})
	resp, err := f.svc.Get(context.Background(), f.owner, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/k", resp.DownloadURL)
}

func TestSetShared_OnlyActiveDocumentsAndHistory(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	v1 := f.upload(t, UploadInput{Title: "Manual"})
	v2 := f.upload(t, UploadInput{Title: "Manual"})

	_, err := f.svc.SetShared(ctx, f.owner, v1.ID, true)
	assert.True(t, errors.Is(err, http.StatusUnprocessableEntity))

	shared, err := f.svc.SetShared(ctx, f.owner, v2.ID, true)
	require.NoError(t, err)
	assert.True(t, shared.SharedWithCustomer)
	assert.NotNil(t, shared.SharedAt)

	unshared, err := f.svc.SetShared(ctx, f.owner, v2.ID, false)
	require.NoError(t, err)
	assert.False(t, unshared.SharedWithCustomer)
	assert.Nil(t, unshared.SharedAt)

	entries, err := f.svc.History(ctx, f.owner, f.device.ID, v2.ID)
	require.NoError(t, err)
	actions := make([]domain.HistoryAction, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	assert.Equal(t, []domain.HistoryAction{domain.HistoryUnshared, domain.HistoryShared, domain.HistoryCreated}, actions)
}

func TestArchive_UnsharesDocument(t *testing.T) {
	f := setup(t, nil)
	doc := f.upload(t, UploadInput{Title: "Certificate", Type: domain.DocCertificate, ShareWithCustomer: true})
	assert.True(t, doc.SharedWithCustomer)

	archived, err := f.svc.Archive(context.Background(), f.owner, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentArchived, archived.Status)
	assert.False(t, archived.SharedWithCustomer)
}

func TestDelete_LatestPromotesPredecessor(t *testing.T) {
	blobs := new(MockBlobs)
	f := setup(t, blobs)
	ctx := context.Background()
	blobs.On("Put", mock.Anything, "v1.pdf").Return(storage.Object{Key: "k1", Size: 3}, nil)
	blobs.On("Put", mock.Anything, "v2.pdf").Return(storage.Object{Key: "k2", Size: 3}, nil)
	blobs.On("Delete", "k2").Return(nil)
	blobs.On("PresignedURL", mock.Anything).Return("", nil)

	v1 := f.upload(t, UploadInput{Title: "Manual", FileName: "v1.pdf"})
	v2 := f.upload(t, UploadInput{Title: "Manual", FileName: "v2.pdf"})

	require.NoError(t, f.svc.Delete(ctx, f.owner, v2.ID))
	blobs.AssertCalled(t, "Delete", "k2")

	promoted, err := f.svc.Get(ctx, f.owner, v1.ID)
	require.NoError(t, err)
	assert.True(t, promoted.IsLatest)
	assert.Equal(t, domain.DocumentActive, promoted.Status)
	assert.EqualValues(t, 1, f.latestCount(t, "Manual"))

	entries, err := f.svc.History(ctx, f.owner, f.device.ID, v2.ID)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, domain.HistoryDeleted, entries[0].Action)
}

func TestDelete_MiddleVersionRelinksSuccessor(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	v1 := f.upload(t, UploadInput{Title: "Manual"})
	v2 := f.upload(t, UploadInput{Title: "Manual"})
	v3 := f.upload(t, UploadInput{Title: "Manual"})

	require.NoError(t, f.svc.Delete(ctx, f.owner, v2.ID))

	got, err := f.svc.Get(ctx, f.owner, v3.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PreviousVersionID)
	assert.Equal(t, v1.ID, *got.PreviousVersionID)
	assert.True(t, got.IsLatest)
}
