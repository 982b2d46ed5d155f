package db

import (
	"time"

	"gorm.io/datatypes"
)

// ViewRecord is one row per visit attempt on a listing detail page,
// admitted or not. Denied attempts are kept so the anti-fraud rules can
// be evaluated against full history and dashboards can show blocked
// traffic. Rows are never updated after creation.
type ViewRecord struct {
	ID uint `gorm:"primaryKey"`

	ListingID uint `gorm:"index;not null"`

	// VisitorAddress is the raw network address of the requester.
	// ClientSignature is the raw User-Agent string (may be empty).
	VisitorAddress  string `gorm:"size:64;index"`
	ClientSignature string `gorm:"size:500"`

	// Fingerprint is sha256(address + ":" + signature), used to cluster
	// repeat visits from the same visitor.
	Fingerprint string `gorm:"size:64;index"`

	DeviceClass string `gorm:"size:16"`
	Browser     string `gorm:"size:32"`
	OS          string `gorm:"size:32"`

	Referrer string `gorm:"size:512"`

	City    *string `gorm:"size:128"`
	Country *string `gorm:"size:64"`

	// FirstOfDay marks the visitor's first admitted view of this listing
	// on the current UTC day. Implies Admitted.
	FirstOfDay bool `gorm:"column:is_first_admitted_today"`

	Admitted     bool
	DenialReason *string `gorm:"size:64"`

	OccurredAt time.Time `gorm:"index;not null"`
}

// Click tracks contact-button clicks (whatsapp, offer) on a listing.
type Click struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	ListingID uint   `gorm:"index;not null"`
	ClickType string `gorm:"size:32;index;not null"`

	VisitorAddress  string `gorm:"size:64"`
	ClientSignature string `gorm:"size:500"`

	// Details holds click-type specific data (e.g. offer amount) without
	// schema changes.
	Details datatypes.JSONMap `gorm:"type:json"`
}

// PageVisit is a lightweight visit log for non-listing pages (landing
// page, seller profiles). Best-effort: a failed insert never breaks the
// page.
type PageVisit struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	Page            string `gorm:"size:64;index;not null"`
	VisitorAddress  string `gorm:"size:64"`
	ClientSignature string `gorm:"size:500"`
	Referrer        string `gorm:"size:512"`
}

// Listing is the vehicle for-sale record the marketplace shows. Only the
// columns the analytics surface needs are modeled here; the CRUD back
// office owns the rest.
type Listing struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Title string `gorm:"size:200;not null"`
	Price int64

	// WhatsappNumber is the seller contact used to build redirect URLs
	// for contact clicks.
	WhatsappNumber string `gorm:"size:32"`

	// SellerKeyword groups listings of the same seller for the public
	// seller profile page.
	SellerKeyword string `gorm:"size:64;index"`

	IsActive bool `gorm:"default:true;index"`
}

// AdminUser can sign in to the back-office endpoints. The bootstrap
// admin (from env) is created as a row on startup.
type AdminUser struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"size:255;not null"`
}
