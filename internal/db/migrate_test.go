package db_test

import (
	"distributor-portal/internal/db"
	"distributor-portal/internal/db/dbtest"
	"distributor-portal/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_NormalizesStoredEnums(t *testing.T) {
	conn := dbtest.New(t)

	rel := domain.SoftwareRelease{ContentBase: domain.ContentBase{Title: "FW"}, Version: "1.0"}
	require.NoError(t, conn.Create(&rel).Error)
	require.NoError(t, conn.Model(&rel).UpdateColumns(map[string]any{"status": "Published ", "target_type": "DEVICES"}).Error)
	dist := domain.Distributor{Name: "Legacy", Status: domain.StatusActive}
	require.NoError(t, conn.Create(&dist).Error)
	require.NoError(t, conn.Model(&dist).UpdateColumn("status", "Active").Error)

	require.NoError(t, db.Migrate(conn))

	var stored domain.SoftwareRelease
	require.NoError(t, conn.First(&stored, rel.ID).Error)
	assert.Equal(t, domain.ContentPublished, stored.Status)
	assert.Equal(t, domain.TargetDevices, stored.TargetType)

	var storedDist domain.Distributor
	require.NoError(t, conn.First(&storedDist, dist.ID).Error)
	assert.Equal(t, domain.StatusActive, storedDist.Status)
}
