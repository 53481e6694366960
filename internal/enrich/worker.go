// Package enrich runs the asynchronous enrichment pipeline. A sighting
// create or retry hands the sighting to the worker pool and returns
// immediately; the attempt itself looks up the response cache, consults
// the shared OpenSky quota bucket, calls the API when permitted and
// lands the sighting in a terminal enrichment status. Nothing in here
// ever propagates an error back to the submitting request.
package enrich

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"flightlogbook/internal/cache"
	"flightlogbook/internal/db"
	"flightlogbook/internal/ratelimit"
)

var (
	metricsOnce   sync.Once
	attemptsTotal *prometheus.CounterVec
	fetchesTotal  *prometheus.CounterVec
	fetchDuration prometheus.Histogram
)

// InitMetrics registers the pipeline's prometheus collectors. Call
// before any enrichment runs.
func InitMetrics() {
	metricsOnce.Do(registerMetrics)
}

func registerMetrics() {
	attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flightlogbook",
			Name:      "enrichment_attempts_total",
			Help:      "Enrichment attempts by terminal outcome and data source.",
		},
		[]string{"outcome", "source"},
	)
	fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flightlogbook",
			Name:      "opensky_fetches_total",
			Help:      "External OpenSky states calls by result.",
		},
		[]string{"result"},
	)
	fetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "flightlogbook",
			Name:      "opensky_fetch_duration_seconds",
			Help:      "Duration of OpenSky states calls in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
	)
	prometheus.MustRegister(attemptsTotal, fetchesTotal, fetchDuration)
}

// SightingStore is the persistence collaborator for sightings.
type SightingStore interface {
	LoadByID(id uint) (*db.Sighting, error)
	Save(sighting *db.Sighting) error
}

// StatesFetcher is the external flight-data collaborator.
type StatesFetcher interface {
	FetchStates(query string) (string, error)
}

// Worker owns the enrichment queue and pool. All attempts across all
// sightings contend on the single shared quota bucket.
type Worker struct {
	cache     *cache.ResponseCache
	quota     *ratelimit.Bucket
	client    StatesFetcher
	sightings SightingStore

	queue chan *db.Sighting
	wg    sync.WaitGroup
	once  sync.Once
}

// NewWorker creates a worker pool with the given queue capacity.
func NewWorker(c *cache.ResponseCache, quota *ratelimit.Bucket, client StatesFetcher, sightings SightingStore, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Worker{
		cache:     c,
		quota:     quota,
		client:    client,
		sightings: sightings,
		queue:     make(chan *db.Sighting, queueSize),
	}
}

// Start launches n goroutines draining the queue.
func (w *Worker) Start(n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for sighting := range w.queue {
				w.runAttempt(sighting)
			}
		}()
	}
}

// Submit queues an enrichment attempt for the sighting and returns
// immediately. If the queue is saturated the attempt runs in its own
// goroutine so the submitting request is never blocked.
func (w *Worker) Submit(sighting *db.Sighting) {
	select {
	case w.queue <- sighting:
	default:
		go w.runAttempt(sighting)
	}
}

// Shutdown stops intake and waits for in-flight attempts to drain, up
// to the context deadline.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.once.Do(func() { close(w.queue) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runAttempt is the attempt boundary: whatever happens inside, the
// sighting ends in a terminal status and nothing escapes.
func (w *Worker) runAttempt(sighting *db.Sighting) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("enrichment panic for sighting %d: %v", sighting.ID, r)
			w.markFailed(sighting)
		}
	}()

	if err := w.enrich(sighting); err != nil {
		log.Printf("enrichment failed for sighting %d: %v", sighting.ID, err)
		w.markFailed(sighting)
	}
}

// enrich performs one attempt. The payload is only recorded as having
// been obtained; deeper field extraction from the states response is
// deliberately not done here.
func (w *Worker) enrich(sighting *db.Sighting) error {
	query := BuildQuery(sighting)
	key := QueryHash(query)

	lookup, err := w.cache.Get(key)
	if err != nil {
		// A broken cache read is equivalent to a miss.
		log.Printf("cache read error for sighting %d: %v", sighting.ID, err)
		lookup = cache.Lookup{}
	}

	var payload, source string
	switch {
	case lookup.Hit && lookup.Fresh:
		payload = lookup.Payload
		source = "cache"

	case w.quota.TryConsume(1):
		start := time.Now()
		body, fetchErr := w.client.FetchStates(query)
		fetchDuration.Observe(time.Since(start).Seconds())
		if fetchErr != nil {
			fetchesTotal.WithLabelValues("error").Inc()
			log.Printf("opensky fetch error for sighting %d: %v", sighting.ID, fetchErr)
			if !lookup.Hit {
				return w.fail(sighting)
			}
			payload = lookup.Payload
			source = "stale"
			break
		}
		fetchesTotal.WithLabelValues("success").Inc()
		if putErr := w.cache.Put(key, body); putErr != nil {
			log.Printf("cache write error for sighting %d: %v", sighting.ID, putErr)
		}
		payload = body
		source = "fetch"

	default:
		log.Printf("opensky quota exhausted (tokens=%d), sighting %d", w.quota.Available(), sighting.ID)
		if !lookup.Hit {
			return w.fail(sighting)
		}
		// Explicitly prefer out-of-date data over total failure.
		payload = lookup.Payload
		source = "stale"
	}

	log.Printf("opensky response for sighting %d (%s): %s", sighting.ID, source, truncate(payload, 100))
	sighting.EnrichmentStatus = db.EnrichmentEnriched
	if err := w.sightings.Save(sighting); err != nil {
		return err
	}
	attemptsTotal.WithLabelValues("enriched", source).Inc()
	return nil
}

// fail transitions the sighting to FAILED and persists it. It returns
// nil so callers do not double-fail via runAttempt.
func (w *Worker) fail(sighting *db.Sighting) error {
	w.markFailed(sighting)
	return nil
}

func (w *Worker) markFailed(sighting *db.Sighting) {
	sighting.EnrichmentStatus = db.EnrichmentFailed
	if err := w.sightings.Save(sighting); err != nil {
		log.Printf("failed to persist FAILED status for sighting %d: %v", sighting.ID, err)
	}
	attemptsTotal.WithLabelValues("failed", "none").Inc()
}

// BuildQuery derives the OpenSky lookup for a sighting. An aircraft
// identifier plus the event time gives a deterministic query; a bare
// callsign is a weaker fallback. With neither field the degenerate "/"
// query fails cleanly downstream instead of erroring here.
func BuildQuery(sighting *db.Sighting) string {
	if icao := strings.TrimSpace(sighting.Icao24); icao != "" {
		return fmt.Sprintf("/states/all?icao24=%s&time=%d", strings.ToLower(icao), sighting.Timestamp.UTC().Unix())
	}
	if callsign := strings.TrimSpace(sighting.Callsign); callsign != "" {
		return "/states/all?callsign=" + callsign
	}
	return "/"
}

// QueryHash computes the cache key for a query string.
func QueryHash(query string) string {
	sum := md5.Sum([]byte(query))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
