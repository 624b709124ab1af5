package product

import (
	"context"
	"distributor-portal/internal/db/dbtest"
	"distributor-portal/internal/domain"
	"distributor-portal/internal/errors"
	"distributor-portal/internal/utils"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductLifecycle(t *testing.T) {
	conn := dbtest.New(t)
	svc := NewService(NewRepository(conn))
	ctx := context.Background()

	p, err := svc.Create(ctx, Form{Name: "Analyzer X", SKU: " ax-100 ", Category: "lab"})
	require.NoError(t, err)
	assert.Equal(t, "AX-100", p.SKU)
	assert.True(t, p.Active)

	_, err = svc.Create(ctx, Form{Name: "Copy", SKU: "AX-100"})
	assert.True(t, errors.Is(err, http.StatusConflict))

	inactive := false
	other, err := svc.Create(ctx, Form{Name: "Legacy", SKU: "LG-1", Active: &inactive})
	require.NoError(t, err)

	page, err := svc.List(ctx, domain.Principal{UserID: 1, Tenant: 1}, Filter{}, utils.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, p.ID, page.Data[0].ID)

	page, err = svc.List(ctx, domain.Principal{UserID: 1, PlatformAdmin: true}, Filter{}, utils.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Meta.Total)

	_, err = svc.Update(ctx, other.ID, Form{Name: "Legacy", SKU: "ax-100"})
	assert.True(t, errors.Is(err, http.StatusConflict))
}

func TestDelete_UnlinksDevices(t *testing.T) {
	conn := dbtest.New(t)
	svc := NewService(NewRepository(conn))
	ctx := context.Background()

	p, err := svc.Create(ctx, Form{Name: "Analyzer X", SKU: "AX-1"})
	require.NoError(t, err)
	d := domain.Distributor{Name: "One", Status: domain.StatusActive}
	require.NoError(t, conn.Create(&d).Error)
	c := domain.Customer{DistributorID: d.ID, Name: "Clinic"}
	require.NoError(t, conn.Create(&c).Error)
	dev := domain.Device{CustomerID: c.ID, SerialNumber: "SN-1", ProductID: &p.ID}
	require.NoError(t, conn.Create(&dev).Error)

	require.NoError(t, svc.Delete(ctx, p.ID))
	var reloaded domain.Device
	require.NoError(t, conn.First(&reloaded, dev.ID).Error)
	assert.Nil(t, reloaded.ProductID)

	err = svc.Delete(ctx, p.ID)
	assert.True(t, errors.Is(err, http.StatusNotFound))
}
