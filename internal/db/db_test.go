package db

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/compraventavalledeuco/compraventavalledeuco/internal/config"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))
	return gdb
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	gdb := newTestDB(t)
	cfg := &config.Config{AdminUser: "admin", AdminPassword: "s3cret"}

	require.NoError(t, EnsureBootstrapAdmin(gdb, cfg))

	var admin AdminUser
	require.NoError(t, gdb.Where("username = ?", "admin").First(&admin).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("s3cret")))

	// Idempotent: a second run leaves the existing row alone.
	require.NoError(t, EnsureBootstrapAdmin(gdb, cfg))
	var count int64
	require.NoError(t, gdb.Model(&AdminUser{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestResetListingViews(t *testing.T) {
	gdb := newTestDB(t)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		require.NoError(t, gdb.Create(&ViewRecord{
			ListingID:      7,
			VisitorAddress: "203.0.113.9",
			Admitted:       true,
			OccurredAt:     now,
		}).Error)
	}
	require.NoError(t, gdb.Create(&ViewRecord{
		ListingID:      8,
		VisitorAddress: "203.0.113.9",
		Admitted:       true,
		OccurredAt:     now,
	}).Error)

	deleted, err := ResetListingViews(gdb, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	var remaining int64
	require.NoError(t, gdb.Model(&ViewRecord{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestRunRetentionOnce(t *testing.T) {
	gdb := newTestDB(t)
	now := time.Now().UTC()

	require.NoError(t, gdb.Create(&ViewRecord{
		ListingID: 7, VisitorAddress: "203.0.113.9", Admitted: true,
		OccurredAt: now.AddDate(0, 0, -400),
	}).Error)
	require.NoError(t, gdb.Create(&ViewRecord{
		ListingID: 7, VisitorAddress: "203.0.113.9", Admitted: true,
		OccurredAt: now.Add(-time.Hour),
	}).Error)
	require.NoError(t, gdb.Create(&PageVisit{
		Page: "index", CreatedAt: now.AddDate(0, 0, -400),
	}).Error)
	require.NoError(t, gdb.Create(&PageVisit{
		Page: "index", CreatedAt: now.Add(-time.Hour),
	}).Error)

	require.NoError(t, runRetentionOnce(gdb, 365))

	var views, visits int64
	require.NoError(t, gdb.Model(&ViewRecord{}).Count(&views).Error)
	require.NoError(t, gdb.Model(&PageVisit{}).Count(&visits).Error)
	assert.Equal(t, int64(1), views)
	assert.Equal(t, int64(1), visits)
}
