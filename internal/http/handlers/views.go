package handlers

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/compraventavalledeuco/compraventavalledeuco/internal/analytics"
	dbpkg "github.com/compraventavalledeuco/compraventavalledeuco/internal/db"
	"github.com/compraventavalledeuco/compraventavalledeuco/internal/geo"
)

var (
	viewAttemptsTotal *prometheus.CounterVec
	viewDenialsTotal  *prometheus.CounterVec
	clicksTotal       *prometheus.CounterVec
	pageVisitsTotal   *prometheus.CounterVec
)

func InitPrometheusMetrics() {
	viewAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vucomarket",
			Name:      "view_attempts_total",
			Help:      "Total listing view attempts by admission outcome and device class.",
		},
		[]string{"outcome", "device"},
	)
	viewDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vucomarket",
			Name:      "view_denials_total",
			Help:      "Denied listing view attempts by anti-fraud rule.",
		},
		[]string{"rule"},
	)
	clicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vucomarket",
			Name:      "contact_clicks_total",
			Help:      "Total contact-button clicks by type.",
		},
		[]string{"type"},
	)
	pageVisitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vucomarket",
			Name:      "page_visits_total",
			Help:      "Total tracked page visits by page.",
		},
		[]string{"page"},
	)
	prometheus.MustRegister(viewAttemptsTotal, viewDenialsTotal, clicksTotal, pageVisitsTotal)
}

// denialRule folds the parameterized cooldown reason into one label so
// the rule cardinality stays fixed.
func denialRule(reason string) string {
	if len(reason) >= 8 && reason[:8] == "cooldown" {
		return "cooldown"
	}
	return reason
}

// TrackView records one listing-detail view attempt and reports the
// verdict. Called once per page view by the marketplace frontend.
func TrackView(gdb *gorm.DB, locator geo.Locator) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		listingID, ok := pathID(ctx)
		if !ok {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid listing id")
			return
		}

		var listing dbpkg.Listing
		if err := gdb.Where("id = ? AND is_active = ?", listingID, true).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				errResponse(ctx, fasthttp.StatusNotFound, "listing not found")
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		address := clientAddr(ctx)
		signature := string(ctx.Request.Header.UserAgent())
		if len(signature) > 500 {
			signature = signature[:500]
		}
		referrer := string(ctx.Request.Header.Referer())

		rec, err := analytics.RecordAttempt(gdb, locator, listingID, address, signature, referrer)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to record view")
			return
		}

		outcome := "denied"
		if rec.Admitted {
			outcome = "admitted"
		} else if rec.DenialReason != nil {
			viewDenialsTotal.WithLabelValues(denialRule(*rec.DenialReason)).Inc()
		}
		viewAttemptsTotal.WithLabelValues(outcome, rec.DeviceClass).Inc()

		resp := map[string]any{
			"admitted":     rec.Admitted,
			"first_of_day": rec.FirstOfDay,
		}
		if rec.DenialReason != nil {
			resp["denial_reason"] = *rec.DenialReason
		}
		jsonResponse(ctx, resp)
	}
}

// TrackPageVisit appends a PageVisit row for non-listing pages.
// Best-effort: insert failures are logged by the caller's request logger
// only; the endpoint always answers 202.
func TrackPageVisit(gdb *gorm.DB) fasthttp.RequestHandler {
	allowed := map[string]bool{"index": true, "gestores": true, "seller": true}
	return func(ctx *fasthttp.RequestCtx) {
		page, _ := ctx.UserValue("page").(string)
		if !allowed[page] {
			errResponse(ctx, fasthttp.StatusBadRequest, "unknown page")
			return
		}

		signature := string(ctx.Request.Header.UserAgent())
		if len(signature) > 500 {
			signature = signature[:500]
		}
		visit := dbpkg.PageVisit{
			CreatedAt:       time.Now().UTC(),
			Page:            page,
			VisitorAddress:  clientAddr(ctx),
			ClientSignature: signature,
			Referrer:        string(ctx.Request.Header.Referer()),
		}
		if err := gdb.Create(&visit).Error; err == nil {
			pageVisitsTotal.WithLabelValues(page).Inc()
		}

		ctx.SetStatusCode(fasthttp.StatusAccepted)
	}
}
