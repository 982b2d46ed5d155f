package analytics

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	dbpkg "github.com/compraventavalledeuco/compraventavalledeuco/internal/db"
	"github.com/compraventavalledeuco/compraventavalledeuco/internal/geo"
)

// PersistenceError reports a failed ledger append. The caller decides
// whether to fail the page view or degrade; the ledger itself never
// retries or silently drops a record.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist view record: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RecordAttempt evaluates the anti-fraud rules for one listing-detail
// visit and appends exactly one ViewRecord, admitted or not. The geo
// lookup is best-effort: it can return empty fields but never fails the
// attempt.
func RecordAttempt(gdb *gorm.DB, locator geo.Locator, listingID uint, address, signature, referrer string) (*dbpkg.ViewRecord, error) {
	now := time.Now().UTC()

	verdict, err := Decide(gdb, listingID, address, now)
	if err != nil {
		return nil, err
	}

	info := ClassifyClient(signature)
	loc := locator.Lookup(address)

	rec := &dbpkg.ViewRecord{
		ListingID:       listingID,
		VisitorAddress:  address,
		ClientSignature: signature,
		Fingerprint:     Fingerprint(address, signature),
		DeviceClass:     info.DeviceClass,
		Browser:         info.Browser,
		OS:              info.OS,
		Referrer:        referrer,
		City:            loc.City,
		Country:         loc.Country,
		FirstOfDay:      verdict.FirstOfDay,
		Admitted:        verdict.Admitted,
		OccurredAt:      now,
	}
	if !verdict.Admitted {
		reason := verdict.DenialReason
		rec.DenialReason = &reason
	}

	if err := gdb.Create(rec).Error; err != nil {
		return nil, &PersistenceError{Err: err}
	}
	return rec, nil
}

// Stats summarizes a listing's view traffic over a trailing window.
type Stats struct {
	Total          int64            `json:"total_views"`
	Counted        int64            `json:"counted_views"`
	Blocked        int64            `json:"blocked_views"`
	UniqueVisitors int64            `json:"unique_visitors"`
	ByDevice       map[string]int64 `json:"devices"`
	PeriodDays     int              `json:"period_days"`
}

// StatsForListing aggregates view records for one listing over the last
// windowDays. Blocked is total minus admitted; unique visitors and the
// device breakdown count admitted records only.
func StatsForListing(gdb *gorm.DB, listingID uint, windowDays int) (Stats, error) {
	from := time.Now().UTC().AddDate(0, 0, -windowDays)

	stats := Stats{ByDevice: map[string]int64{}, PeriodDays: windowDays}

	// Session makes the condition chain reusable for several finishers.
	base := gdb.Model(&dbpkg.ViewRecord{}).
		Where("listing_id = ? AND occurred_at >= ?", listingID, from).
		Session(&gorm.Session{})

	if err := base.Count(&stats.Total).Error; err != nil {
		return Stats{}, err
	}
	if err := base.Where("admitted = ?", true).Count(&stats.Counted).Error; err != nil {
		return Stats{}, err
	}
	stats.Blocked = stats.Total - stats.Counted

	if err := base.
		Where("admitted = ?", true).
		Distinct("visitor_address").
		Count(&stats.UniqueVisitors).Error; err != nil {
		return Stats{}, err
	}

	type deviceRow struct {
		DeviceClass string
		Count       int64
	}
	var rows []deviceRow
	if err := base.
		Where("admitted = ?", true).
		Select("device_class, count(*) as count").
		Group("device_class").
		Scan(&rows).Error; err != nil {
		return Stats{}, err
	}
	for _, r := range rows {
		stats.ByDevice[r.DeviceClass] = r.Count
	}

	return stats, nil
}

// DailyPoint is one calendar day (UTC) of admitted views.
type DailyPoint struct {
	Date   string `json:"date"`
	Views  int64  `json:"views"`
	Unique int64  `json:"unique"`
}

// DailySeries returns admitted views per UTC day over the last
// windowDays, ordered by date ascending. Days without admitted views are
// omitted. listingID 0 aggregates across all listings.
func DailySeries(gdb *gorm.DB, listingID uint, windowDays int) ([]DailyPoint, error) {
	from := time.Now().UTC().AddDate(0, 0, -windowDays)

	q := gdb.Model(&dbpkg.ViewRecord{}).
		Where("occurred_at >= ? AND admitted = ?", from, true).
		Select("occurred_at", "visitor_address")
	if listingID != 0 {
		q = q.Where("listing_id = ?", listingID)
	}

	var recs []dbpkg.ViewRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}

	// Group in Go so the day boundary is UTC regardless of the store's
	// date functions.
	type bucket struct {
		views  int64
		unique map[string]struct{}
	}
	buckets := make(map[string]*bucket)
	for _, r := range recs {
		day := r.OccurredAt.UTC().Format("2006-01-02")
		b := buckets[day]
		if b == nil {
			b = &bucket{unique: make(map[string]struct{})}
			buckets[day] = b
		}
		b.views++
		b.unique[r.VisitorAddress] = struct{}{}
	}

	series := make([]DailyPoint, 0, len(buckets))
	for day, b := range buckets {
		series = append(series, DailyPoint{Date: day, Views: b.views, Unique: int64(len(b.unique))})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, nil
}

// ListingViews is one row of the most-viewed ranking.
type ListingViews struct {
	ListingID uint  `json:"listing_id"`
	Views     int64 `json:"views"`
}

// TopListings ranks listings by admitted views over the last windowDays,
// descending, truncated to limit. Ties break on listing_id ascending so
// the ordering is deterministic.
func TopListings(gdb *gorm.DB, windowDays, limit int) ([]ListingViews, error) {
	from := time.Now().UTC().AddDate(0, 0, -windowDays)

	var rows []ListingViews
	err := gdb.Model(&dbpkg.ViewRecord{}).
		Where("occurred_at >= ? AND admitted = ?", from, true).
		Select("listing_id, count(*) as views").
		Group("listing_id").
		Order("count(*) DESC, listing_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
