package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"flightlogbook/internal/cache"
	"flightlogbook/internal/config"
	"flightlogbook/internal/db"
	"flightlogbook/internal/enrich"
	"flightlogbook/internal/http/handlers"
	appmw "flightlogbook/internal/http/middleware"
	"flightlogbook/internal/opensky"
	"flightlogbook/internal/ratelimit"
	"flightlogbook/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := db.EnsureBootstrapAdmin(sqlDB, cfg); err != nil {
		log.Fatalf("failed to ensure bootstrap admin: %v", err)
	}
	if err := db.EnsureBootstrapAPIKey(sqlDB, cfg); err != nil {
		log.Fatalf("failed to ensure bootstrap API key: %v", err)
	}

	enrich.InitMetrics()
	appmw.InitMetrics()

	// Single process-wide bucket protecting the OpenSky quota; all
	// enrichment attempts and live lookups contend on it.
	openskyQuota := ratelimit.NewBucket(ratelimit.Policy{
		Capacity:       cfg.OpenSkyQuotaCapacity,
		RefillAmount:   cfg.OpenSkyQuotaCapacity,
		RefillInterval: cfg.OpenSkyQuotaWindow,
	})

	// Per-caller inbound buckets, with idle eviction so the map does
	// not grow forever with distinct user ids and IPs.
	inboundRegistry := ratelimit.NewRegistry()
	inboundRegistry.StartEvictionWorker(30*time.Minute, 3*time.Hour)

	responseCache := cache.New(&db.CacheStore{DB: sqlDB}, cfg.CacheTTL)
	openskyClient := opensky.NewClient(cfg.OpenSkyBaseURL, cfg.OpenSkyClientID, cfg.OpenSkyClientSecret)

	worker := enrich.NewWorker(responseCache, openskyQuota, openskyClient, &db.SightingStore{DB: sqlDB}, cfg.EnrichQueueSize)
	worker.Start(cfg.EnrichWorkers)

	photoStore, err := storage.NewDiskStore(cfg.PhotoDir)
	if err != nil {
		log.Fatalf("failed to init photo storage: %v", err)
	}

	r := router.New()

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})
	r.GET("/metrics", handlers.MetricsHandler())

	r.ServeFiles("/photos/{filepath:*}", cfg.PhotoDir)

	// Public lookups (still rate-limited at the gate).
	r.GET("/api/lookup/airports", handlers.SearchAirports())
	r.GET("/api/lookup/airports/all", handlers.AllAirports())
	r.GET("/api/lookup/airports/{code}", handlers.AirportByCode())
	r.GET("/api/lookup/aircraft", handlers.SearchAircraft(openskyClient, openskyQuota))

	// Sightings. Public reads resolve the caller when a key is present
	// so private sightings stay visible to their owners.
	r.GET("/api/sightings", appmw.OptionalAuth(sqlDB)(handlers.PublicSightings(sqlDB)))
	r.GET("/api/sightings/{id}", appmw.OptionalAuth(sqlDB)(handlers.GetSighting(sqlDB)))
	r.GET("/api/sightings/me", appmw.BearerAuth(sqlDB)(handlers.MySightings(sqlDB)))
	r.GET("/api/sightings/admin/all", appmw.BearerAuth(sqlDB)(handlers.AllSightings(sqlDB)))
	r.POST("/api/sightings", appmw.BearerAuth(sqlDB)(handlers.CreateSighting(sqlDB, worker)))
	r.PUT("/api/sightings/{id}", appmw.BearerAuth(sqlDB)(handlers.UpdateSighting(sqlDB)))
	r.DELETE("/api/sightings/{id}", appmw.BearerAuth(sqlDB)(handlers.DeleteSighting(sqlDB)))
	r.POST("/api/sightings/{id}/enrich", appmw.BearerAuth(sqlDB)(handlers.RetryEnrichment(sqlDB, worker)))

	// Photos.
	r.GET("/api/sightings/{id}/photos", handlers.SightingPhotos(sqlDB))
	r.POST("/api/photos", appmw.BearerAuth(sqlDB)(handlers.UploadPhoto(sqlDB, photoStore)))
	r.DELETE("/api/photos/{id}", appmw.BearerAuth(sqlDB)(handlers.DeletePhoto(sqlDB, photoStore)))

	// Admin.
	r.POST("/api/admin/roles/grant", appmw.BearerAuth(sqlDB)(handlers.GrantRole(sqlDB)))
	r.POST("/api/admin/roles/revoke/{user_id}", appmw.BearerAuth(sqlDB)(handlers.RevokeAdminRole(sqlDB)))
	r.POST("/api/admin/users", appmw.BearerAuth(sqlDB)(handlers.CreateUser(sqlDB)))
	r.POST("/api/admin/apikeys", appmw.BearerAuth(sqlDB)(handlers.CreateAPIKey(sqlDB)))
	r.POST("/api/admin/apikeys/{id}/deactivate", appmw.BearerAuth(sqlDB)(handlers.DeactivateAPIKey(sqlDB)))

	// Global middleware chain: request logger, then the inbound rate
	// limit gate, then the router.
	handler := handlers.RequestLogger(appmw.RateLimit(sqlDB, inboundRegistry, cfg)(r.Handler))

	server := &fasthttp.Server{Handler: handler}

	go func() {
		log.Printf("flightlogbook listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	if err := server.Shutdown(); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := worker.Shutdown(ctx); err != nil {
		log.Printf("enrichment queue did not drain: %v", err)
	}
}
