package handlers

import (
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/compraventavalledeuco/compraventavalledeuco/internal/analytics"
	dbpkg "github.com/compraventavalledeuco/compraventavalledeuco/internal/db"
)

// ListingStats returns the anti-fraud aware view summary for one listing.
func ListingStats(gdb *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustAdmin(ctx); !ok {
			return
		}
		listingID, ok := pathID(ctx)
		if !ok {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid listing id")
			return
		}
		days := queryInt(ctx, "days", 30, 365)

		stats, err := analytics.StatsForListing(gdb, listingID, days)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query listing stats")
			return
		}
		jsonResponse(ctx, map[string]any{
			"listing_id":      listingID,
			"total_views":     stats.Total,
			"counted_views":   stats.Counted,
			"blocked_views":   stats.Blocked,
			"unique_visitors": stats.UniqueVisitors,
			"devices":         stats.ByDevice,
			"period_days":     stats.PeriodDays,
		})
	}
}

// DailyViews returns the per-day admitted view series for charts.
// Without a listing_id parameter it aggregates across all listings.
func DailyViews(gdb *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustAdmin(ctx); !ok {
			return
		}
		days := queryInt(ctx, "days", 30, 365)
		listingID := uint(queryInt(ctx, "listing_id", 0, 1<<30))

		series, err := analytics.DailySeries(gdb, listingID, days)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query daily views")
			return
		}
		jsonResponse(ctx, map[string]any{"series": series})
	}
}

// TopListingsHandler returns the most viewed listings with their titles.
func TopListingsHandler(gdb *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustAdmin(ctx); !ok {
			return
		}
		days := queryInt(ctx, "days", 30, 365)
		limit := queryInt(ctx, "limit", 10, 100)

		rows, err := analytics.TopListings(gdb, days, limit)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query top listings")
			return
		}

		ids := make([]uint, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.ListingID)
		}
		titles := make(map[uint]string, len(ids))
		if len(ids) > 0 {
			var listings []dbpkg.Listing
			if err := gdb.Where("id IN ?", ids).Find(&listings).Error; err != nil {
				errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load listings")
				return
			}
			for _, l := range listings {
				titles[l.ID] = l.Title
			}
		}

		out := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			out = append(out, map[string]any{
				"listing_id": r.ListingID,
				"title":      titles[r.ListingID],
				"views":      r.Views,
			})
		}
		jsonResponse(ctx, map[string]any{"listings": out})
	}
}

// Dashboard returns the back-office landing numbers: listing counts,
// total admitted views, whatsapp clicks and landing-page traffic.
func Dashboard(gdb *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustAdmin(ctx); !ok {
			return
		}

		var activeListings, totalListings int64
		if err := gdb.Model(&dbpkg.Listing{}).Where("is_active = ?", true).Count(&activeListings).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to count listings")
			return
		}
		if err := gdb.Model(&dbpkg.Listing{}).Count(&totalListings).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to count listings")
			return
		}

		var totalViews, countedViews int64
		if err := gdb.Model(&dbpkg.ViewRecord{}).Count(&totalViews).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to count views")
			return
		}
		if err := gdb.Model(&dbpkg.ViewRecord{}).Where("admitted = ?", true).Count(&countedViews).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to count views")
			return
		}

		var whatsappClicks int64
		if err := gdb.Model(&dbpkg.Click{}).Where("click_type = ?", "whatsapp").Count(&whatsappClicks).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to count clicks")
			return
		}

		dayStart := time.Now().UTC().Truncate(24 * time.Hour)
		var indexVisits, todayVisits int64
		if err := gdb.Model(&dbpkg.PageVisit{}).Where("page = ?", "index").Count(&indexVisits).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to count page visits")
			return
		}
		if err := gdb.Model(&dbpkg.PageVisit{}).
			Where("page = ? AND created_at >= ?", "index", dayStart).
			Count(&todayVisits).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to count page visits")
			return
		}

		jsonResponse(ctx, map[string]any{
			"active_listings": activeListings,
			"total_listings":  totalListings,
			"total_views":     totalViews,
			"counted_views":   countedViews,
			"whatsapp_clicks": whatsappClicks,
			"index_visits":    indexVisits,
			"today_visits":    todayVisits,
		})
	}
}

// RecentViews lists the latest view attempts, admitted and denied, for
// the back-office audit table.
func RecentViews(gdb *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustAdmin(ctx); !ok {
			return
		}
		limit := queryInt(ctx, "limit", 25, 200)

		var recs []dbpkg.ViewRecord
		if err := gdb.Order("occurred_at DESC").Limit(limit).Find(&recs).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query recent views")
			return
		}

		rows := make([]map[string]any, 0, len(recs))
		for _, r := range recs {
			row := map[string]any{
				"listing_id":  r.ListingID,
				"occurred_at": r.OccurredAt.UTC().Format(time.RFC3339),
				"fingerprint": r.Fingerprint,
				"device":      r.DeviceClass,
				"browser":     r.Browser,
				"os":          r.OS,
				"admitted":    r.Admitted,
			}
			if r.DenialReason != nil {
				row["denial_reason"] = *r.DenialReason
			}
			rows = append(rows, row)
		}
		jsonResponse(ctx, map[string]any{"views": rows})
	}
}

// ResetViews deletes all view records for a listing (administrative purge).
func ResetViews(gdb *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustAdmin(ctx); !ok {
			return
		}
		listingID, ok := pathID(ctx)
		if !ok {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid listing id")
			return
		}

		deleted, err := dbpkg.ResetListingViews(gdb, listingID)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to reset views")
			return
		}
		jsonResponse(ctx, map[string]any{"listing_id": listingID, "deleted": deleted})
	}
}
