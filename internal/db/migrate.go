package db

import (
	"distributor-portal/internal/domain"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Models lists every table in dependency order
func Models() []any {
	return []any{
		&domain.Distributor{},
		&domain.User{},
		&domain.Customer{},
		&domain.Product{},
		&domain.Device{},
		&domain.DeviceDocument{},
		&domain.DocumentHistoryEntry{},
		&domain.TrainingMaterial{},
		&domain.MarketingAsset{},
		&domain.Documentation{},
		&domain.Announcement{},
		&domain.SoftwareRelease{},
		&domain.TrainingMaterialDistributor{},
		&domain.MarketingAssetDistributor{},
		&domain.DocumentationDistributor{},
		&domain.AnnouncementDistributor{},
		&domain.SoftwareReleaseDistributor{},
		&domain.SoftwareReleaseDevice{},
		&domain.NotificationRecord{},
	}
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := normalizeEnums(db); err != nil {
		return fmt.Errorf("migrate: normalize: %w", err)
	}
	return nil
}

// enumColumns are the stored enum columns imported rows may carry in mixed
// casing
var enumColumns = []struct {
	model  any
	column string
}{
	{&domain.TrainingMaterial{}, "status"},
	{&domain.MarketingAsset{}, "status"},
	{&domain.Documentation{}, "status"},
	{&domain.Announcement{}, "status"},
	{&domain.SoftwareRelease{}, "status"},
	{&domain.SoftwareRelease{}, "target_type"},
	{&domain.Distributor{}, "status"},
	{&domain.User{}, "status"},
	{&domain.Device{}, "status"},
	{&domain.DeviceDocument{}, "status"},
}

// normalizeEnums lower-cases and trims stored enum values
func normalizeEnums(db *gorm.DB) error {
	for _, ec := range enumColumns {
		expr := "LOWER(TRIM(" + ec.column + "))"
		err := db.Model(ec.model).
			Where(ec.column + " <> " + expr).
			UpdateColumn(ec.column, gorm.Expr(expr)).Error
		if err != nil {
			return fmt.Errorf("%T.%s: %w", ec.model, ec.column, err)
		}
	}
	return nil
}

// SeedAdmin creates the operator company and a platform admin when the
// database is empty (for development)
func SeedAdmin(db *gorm.DB, email, password string) (bool, error) {
	var existing domain.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		operator := domain.Distributor{
			Name:        "Portal Operator",
			AccountType: domain.AccountExclusive,
			Status:      domain.StatusActive,
		}
		if err := tx.Create(&operator).Error; err != nil {
			return err
		}
		return tx.Create(&domain.User{
			DistributorID: operator.ID,
			Name:          "Platform Admin",
			Email:         email,
			PasswordHash:  string(hash),
			Role:          domain.RoleAdmin,
			Status:        domain.StatusActive,
			PlatformAdmin: true,
		}).Error
	})
	return err == nil, err
}
