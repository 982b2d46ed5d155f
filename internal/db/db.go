package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/compraventavalledeuco/compraventavalledeuco/internal/config"
)

// Connect opens a GORM database connection using APP_DATABASE_URL (PostgreSQL URL).
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}

	// PrepareStmt: true prevents the GORM postgres migrator from forcing simple protocol
	// for "SELECT * FROM table LIMIT 1", which would otherwise trigger "insufficient arguments".
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}

	return gdb, nil
}

// Migrate auto-migrates the analytics tables. Split out of Connect so
// tests can run it against an in-memory database.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&ViewRecord{}, &Click{}, &PageVisit{}, &Listing{}, &AdminUser{})
}

// EnsureBootstrapAdmin makes sure there is at least one admin user
// corresponding to the bootstrap credentials in config. If a user with
// that username already exists, it is left as-is.
func EnsureBootstrapAdmin(gdb *gorm.DB, cfg *config.Config) error {
	if cfg.AdminUser == "" || cfg.AdminPassword == "" {
		return nil
	}

	var count int64
	if err := gdb.Model(&AdminUser{}).Where("username = ?", cfg.AdminUser).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &AdminUser{
		Username:     cfg.AdminUser,
		PasswordHash: string(hash),
	}

	return gdb.Create(admin).Error
}

// ResetListingViews deletes every view record for a listing. Used by the
// back office to zero out a listing's counters after test traffic or a
// fraud incident.
func ResetListingViews(gdb *gorm.DB, listingID uint) (int64, error) {
	res := gdb.Where("listing_id = ?", listingID).Delete(&ViewRecord{})
	return res.RowsAffected, res.Error
}
