package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	AdminUser     string
	AdminPassword string

	// AdminAPIKey, when set, is seeded as an active bearer key for the
	// bootstrap admin so the API is usable before any key is minted.
	AdminAPIKey string

	DatabaseURL string

	ListenAddr string

	// OpenSky API connection. Credentials are optional; anonymous
	// access works with a lower provider-side quota.
	OpenSkyBaseURL      string
	OpenSkyClientID     string
	OpenSkyClientSecret string

	// OpenSkyQuotaCapacity tokens per OpenSkyQuotaWindow, shared by all
	// enrichment attempts process-wide. OpenSky grants ~400 requests/day
	// to authenticated users; the default of 300 leaves headroom.
	OpenSkyQuotaCapacity int
	OpenSkyQuotaWindow   time.Duration

	// Inbound per-caller limits. Authenticated callers get a higher
	// allowance than anonymous (per-IP) ones.
	UserRatePerHour int
	AnonRatePerHour int

	// CacheTTL is how long a cached OpenSky response stays fresh.
	CacheTTL time.Duration

	// Enrichment worker pool sizing.
	EnrichWorkers   int
	EnrichQueueSize int

	// PhotoDir is where uploaded photo files are stored on disk.
	PhotoDir string
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		AdminUser:     getenv("APP_ADMIN_USER", "admin"),
		AdminPassword: getenv("APP_ADMIN_PASSWORD", "changeme"),
		AdminAPIKey:   getenv("APP_ADMIN_API_KEY", ""),
		DatabaseURL:   os.Getenv("APP_DATABASE_URL"),
		ListenAddr:    getenv("APP_LISTEN_ADDR", ":8080"),

		OpenSkyBaseURL:      getenv("OPENSKY_BASE_URL", "https://opensky-network.org/api"),
		OpenSkyClientID:     getenv("OPENSKY_CLIENT_ID", ""),
		OpenSkyClientSecret: getenv("OPENSKY_CLIENT_SECRET", ""),

		OpenSkyQuotaCapacity: getenvInt("OPENSKY_QUOTA_CAPACITY", 300),
		OpenSkyQuotaWindow:   time.Duration(getenvInt("OPENSKY_QUOTA_WINDOW_HOURS", 24)) * time.Hour,

		UserRatePerHour: getenvInt("RATE_LIMIT_USER_PER_HOUR", 100),
		AnonRatePerHour: getenvInt("RATE_LIMIT_ANON_PER_HOUR", 20),

		CacheTTL: time.Duration(getenvInt("OPENSKY_CACHE_TTL_HOURS", 24)) * time.Hour,

		EnrichWorkers:   getenvInt("ENRICH_WORKERS", 4),
		EnrichQueueSize: getenvInt("ENRICH_QUEUE_SIZE", 256),

		PhotoDir: getenv("APP_PHOTO_DIR", "photos"),
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
