package handlers

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	dbpkg "github.com/compraventavalledeuco/compraventavalledeuco/internal/db"
	"github.com/compraventavalledeuco/compraventavalledeuco/internal/geo"
)

func TestMain(m *testing.M) {
	// Counters register against the default registry once per process.
	InitPrometheusMetrics()
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, dbpkg.Migrate(gdb))
	return gdb
}

func seedListing(t *testing.T, gdb *gorm.DB, id uint, active bool) {
	t.Helper()
	require.NoError(t, gdb.Create(&dbpkg.Listing{
		ID:             id,
		Title:          "Toyota Hilux 2019",
		Price:          18500000,
		WhatsappNumber: "+5492611234567",
		IsActive:       active,
	}).Error)
}

func newRequestCtx(addr, userAgent string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set("X-Forwarded-For", addr)
	if userAgent != "" {
		ctx.Request.Header.SetUserAgent(userAgent)
	}
	return ctx
}

func bodyJSON(t *testing.T, ctx *fasthttp.RequestCtx) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &out))
	return out
}

func TestTrackView(t *testing.T) {
	const ua = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"

	t.Run("AdmitsFirstVisit", func(t *testing.T) {
		gdb := newTestDB(t)
		seedListing(t, gdb, 7, true)
		handler := TrackView(gdb, geo.Static{})

		ctx := newRequestCtx("203.0.113.9", ua)
		ctx.SetUserValue("id", "7")
		handler(ctx)

		require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
		out := bodyJSON(t, ctx)
		assert.Equal(t, true, out["admitted"])
		assert.Equal(t, true, out["first_of_day"])

		var rec dbpkg.ViewRecord
		require.NoError(t, gdb.First(&rec).Error)
		assert.Equal(t, "203.0.113.9", rec.VisitorAddress)
		assert.Equal(t, "mobile", rec.DeviceClass)
	})

	t.Run("DeniesImmediateRepeat", func(t *testing.T) {
		gdb := newTestDB(t)
		seedListing(t, gdb, 7, true)
		handler := TrackView(gdb, geo.Static{})

		ctx := newRequestCtx("203.0.113.9", ua)
		ctx.SetUserValue("id", "7")
		handler(ctx)

		ctx = newRequestCtx("203.0.113.9", ua)
		ctx.SetUserValue("id", "7")
		handler(ctx)

		out := bodyJSON(t, ctx)
		assert.Equal(t, false, out["admitted"])
		assert.Contains(t, out["denial_reason"], "cooldown_")

		var total int64
		require.NoError(t, gdb.Model(&dbpkg.ViewRecord{}).Count(&total).Error)
		assert.Equal(t, int64(2), total)
	})

	t.Run("InactiveListingIsNotFound", func(t *testing.T) {
		gdb := newTestDB(t)
		seedListing(t, gdb, 7, false)
		handler := TrackView(gdb, geo.Static{})

		ctx := newRequestCtx("203.0.113.9", ua)
		ctx.SetUserValue("id", "7")
		handler(ctx)

		assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
	})

	t.Run("BadListingID", func(t *testing.T) {
		gdb := newTestDB(t)
		handler := TrackView(gdb, geo.Static{})

		ctx := newRequestCtx("203.0.113.9", ua)
		ctx.SetUserValue("id", "zero")
		handler(ctx)

		assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestTrackClick(t *testing.T) {
	t.Run("OfferClickRecordsAmountAndRedirect", func(t *testing.T) {
		gdb := newTestDB(t)
		seedListing(t, gdb, 7, true)
		handler := TrackClick(gdb)

		ctx := newRequestCtx("203.0.113.9", "")
		ctx.SetUserValue("id", "7")
		ctx.SetUserValue("type", "offer")
		ctx.QueryArgs().Set("offer", "17.500.000")
		handler(ctx)

		require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
		out := bodyJSON(t, ctx)
		redirect, _ := out["redirect"].(string)
		assert.Contains(t, redirect, "https://wa.me/5492611234567")

		var click dbpkg.Click
		require.NoError(t, gdb.First(&click).Error)
		assert.Equal(t, "offer", click.ClickType)
		assert.EqualValues(t, 17500000, click.Details["offer_amount"])
	})

	t.Run("UnknownClickType", func(t *testing.T) {
		gdb := newTestDB(t)
		seedListing(t, gdb, 7, true)
		handler := TrackClick(gdb)

		ctx := newRequestCtx("203.0.113.9", "")
		ctx.SetUserValue("id", "7")
		ctx.SetUserValue("type", "carrier-pigeon")
		handler(ctx)

		assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestTrackPageVisit(t *testing.T) {
	gdb := newTestDB(t)
	handler := TrackPageVisit(gdb)

	ctx := newRequestCtx("203.0.113.9", "Mozilla/5.0")
	ctx.SetUserValue("page", "index")
	handler(ctx)
	assert.Equal(t, fasthttp.StatusAccepted, ctx.Response.StatusCode())

	var visit dbpkg.PageVisit
	require.NoError(t, gdb.First(&visit).Error)
	assert.Equal(t, "index", visit.Page)

	ctx = newRequestCtx("203.0.113.9", "Mozilla/5.0")
	ctx.SetUserValue("page", "admin-secrets")
	handler(ctx)
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestLoginSubmit(t *testing.T) {
	gdb := newTestDB(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, gdb.Create(&dbpkg.AdminUser{Username: "admin", PasswordHash: string(hash)}).Error)

	handler := LoginSubmit(gdb)

	t.Run("ValidCredentialsSetCookie", func(t *testing.T) {
		ctx := &fasthttp.RequestCtx{}
		ctx.Request.Header.SetMethod(fasthttp.MethodPost)
		ctx.Request.Header.SetContentType("application/x-www-form-urlencoded")
		ctx.Request.SetBodyString("username=admin&password=s3cret")
		handler(ctx)

		assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Header.PeekCookie("session_admin")), "admin")
	})

	t.Run("WrongPassword", func(t *testing.T) {
		ctx := &fasthttp.RequestCtx{}
		ctx.Request.Header.SetMethod(fasthttp.MethodPost)
		ctx.Request.Header.SetContentType("application/x-www-form-urlencoded")
		ctx.Request.SetBodyString("username=admin&password=nope")
		handler(ctx)

		assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	})
}
