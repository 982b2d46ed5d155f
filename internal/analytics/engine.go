package analytics

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	dbpkg "github.com/compraventavalledeuco/compraventavalledeuco/internal/db"
)

// Anti-fraud policy. Fixed, not runtime-configurable.
const (
	// CooldownMinutes is the minimum gap between admitted views of the
	// same listing by the same visitor address (3 hours).
	CooldownMinutes = 180
	// MaxViewsPerDay is the daily cap of admitted views of the same
	// listing by the same visitor address (UTC day).
	MaxViewsPerDay = 10
	// RateLimitMinutes is the sliding window for spam detection.
	RateLimitMinutes = 5
	// RateLimitMax is the maximum view attempts, admitted or not and
	// across all listings, per visitor address within the window.
	RateLimitMax = 15
)

// Denial reasons. The cooldown reason carries the remaining minutes,
// e.g. "cooldown_170min".
const (
	ReasonDailyLimit = "daily_limit_exceeded"
	ReasonRateLimit  = "rate_limit_spam_detected"
)

// Verdict is the outcome of evaluating one view attempt.
type Verdict struct {
	Admitted bool

	// DenialReason is set exactly when Admitted is false.
	DenialReason string

	// FirstOfDay is true when this is the visitor's first admitted view
	// of the listing on the current UTC day. Implies Admitted.
	FirstOfDay bool
}

// Decide evaluates the anti-fraud rules for one view attempt against the
// persisted history. Rules short-circuit in order of specificity:
// per-listing cooldown, then per-listing daily cap, then the
// cross-listing rate limiter. A visitor blocked by the cooldown is never
// also charged against the daily cap in the same attempt.
//
// The evaluation is read-then-append over shared history, not an atomic
// check-and-increment: two concurrent attempts from the same visitor can
// both be admitted inside the cooldown window. Accepted trade-off for a
// low-traffic site.
func Decide(gdb *gorm.DB, listingID uint, address string, now time.Time) (Verdict, error) {
	dayStart := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)

	// 1. Cooldown: latest record for this listing+visitor, admitted or not.
	var last []dbpkg.ViewRecord
	err := gdb.Where("listing_id = ? AND visitor_address = ?", listingID, address).
		Order("occurred_at DESC").
		Limit(1).
		Find(&last).Error
	if err != nil {
		return Verdict{}, err
	}
	if len(last) > 0 {
		minutesAgo := now.Sub(last[0].OccurredAt).Minutes()
		if minutesAgo < CooldownMinutes {
			// Truncate, don't round: "cooldown_170min" after 10m01s.
			remaining := int(CooldownMinutes - minutesAgo)
			return Verdict{DenialReason: fmt.Sprintf("cooldown_%dmin", remaining)}, nil
		}
	}

	// 2. Daily cap over the current UTC day.
	var viewsToday int64
	err = gdb.Model(&dbpkg.ViewRecord{}).
		Where("listing_id = ? AND visitor_address = ?", listingID, address).
		Where("occurred_at >= ? AND occurred_at < ?", dayStart, dayStart.AddDate(0, 0, 1)).
		Count(&viewsToday).Error
	if err != nil {
		return Verdict{}, err
	}
	if viewsToday >= MaxViewsPerDay {
		return Verdict{DenialReason: ReasonDailyLimit}, nil
	}

	// 3. Rate limit: all attempts from this address, any listing.
	var recent int64
	err = gdb.Model(&dbpkg.ViewRecord{}).
		Where("visitor_address = ?", address).
		Where("occurred_at >= ?", now.Add(-RateLimitMinutes*time.Minute)).
		Count(&recent).Error
	if err != nil {
		return Verdict{}, err
	}
	if recent >= RateLimitMax {
		return Verdict{DenialReason: ReasonRateLimit}, nil
	}

	return Verdict{Admitted: true, FirstOfDay: viewsToday == 0}, nil
}
