package db

import (
	"time"

	"gorm.io/datatypes"
)

// Visibility values for sightings. PUBLIC sightings appear in the
// shared feed; PRIVATE ones are only visible to their owner (and admins).
const (
	VisibilityPublic  = "PUBLIC"
	VisibilityPrivate = "PRIVATE"
)

// Enrichment status values. A sighting starts ENRICHING and each
// attempt lands it in exactly one of ENRICHED or FAILED; a retry resets
// it to ENRICHING.
const (
	EnrichmentEnriching = "ENRICHING"
	EnrichmentEnriched  = "ENRICHED"
	EnrichmentFailed    = "FAILED"
)

// Sighting is a single logged aircraft sighting. The identifying
// fields (Icao24, Callsign, Timestamp) drive the OpenSky enrichment
// query; the rest is user-entered log data.
type Sighting struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// OwnerUserID identifies the user who created the sighting.
	OwnerUserID string `gorm:"index;not null" json:"owner_user_id"`

	// Timestamp is when the sighting occurred.
	Timestamp time.Time `gorm:"not null" json:"timestamp"`

	// AirportCode is the IATA or ICAO code of the airport.
	AirportCode string `gorm:"size:8;not null" json:"airport_code"`

	LocationText  string `gorm:"size:255" json:"location_text,omitempty"`
	Airline       string `gorm:"size:128" json:"airline,omitempty"`
	Callsign      string `gorm:"size:16" json:"callsign,omitempty"`
	Icao24        string `gorm:"size:8" json:"icao24,omitempty"`
	Registration  string `gorm:"size:16" json:"registration,omitempty"`
	AircraftModel string `gorm:"size:128" json:"aircraft_model,omitempty"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	Visibility string `gorm:"size:16;not null;default:PRIVATE" json:"visibility"`

	// EnrichmentStatus is the only externally visible signal of the
	// async pipeline's outcome. Clients poll it after create/retry.
	EnrichmentStatus string `gorm:"size:16;not null;default:ENRICHING" json:"enrichment_status"`

	// Attributes holds arbitrary key/value pairs for this sighting so
	// future enrichment passes can attach data without schema changes.
	Attributes datatypes.JSONMap `gorm:"type:json" json:"attributes,omitempty"`
}

// Photo stores metadata for an uploaded sighting photo. The file bytes
// themselves live in the photo storage backend; StorageKey identifies
// them there.
type Photo struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time `json:"created_at"`

	SightingID  uint   `gorm:"index;not null" json:"sighting_id"`
	OwnerUserID string `gorm:"index;not null" json:"owner_user_id"`

	StorageKey string `gorm:"size:255;not null" json:"-"`
	URL        string `gorm:"size:512;not null" json:"url"`
}

// CacheEntry persists raw OpenSky responses keyed by a hash of the
// query that produced them. Expired rows are not deleted proactively;
// freshness is checked at read time and stale entries remain usable as
// a degraded fallback.
type CacheEntry struct {
	ID uint `gorm:"primaryKey"`

	// QueryHash uniquely identifies the query shape.
	QueryHash string `gorm:"uniqueIndex;size:64;not null"`

	// Response is the raw body returned by OpenSky.
	Response string `gorm:"type:text;not null"`

	ExpiresAt time.Time `gorm:"not null"`
}

// User represents an account that can own sightings and API keys. The
// bootstrap admin user (from env) is created as a row on startup.
type User struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username     string `gorm:"uniqueIndex;size:64;not null" json:"username"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
}

// APIKey is a bearer token for calling the API. Each key belongs to a
// user; inactive keys are rejected at the auth middleware.
type APIKey struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uint   `gorm:"index;not null" json:"user_id"`
	Name   string `gorm:"size:128;not null" json:"name"`
	Key    string `gorm:"uniqueIndex;size:255;not null" json:"-"`
	Active bool   `gorm:"default:true" json:"active"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// UserRole stores server-side role grants, independent of anything a
// client presents. Absence of a row means the default "USER" role.
type UserRole struct {
	UserID string `gorm:"primaryKey;size:64" json:"user_id"`

	Role string `gorm:"size:32;not null" json:"role"`

	GrantedAt time.Time `gorm:"not null" json:"granted_at"`
	GrantedBy string    `gorm:"size:64" json:"granted_by,omitempty"`
	Notes     string    `gorm:"size:255" json:"notes,omitempty"`
}
