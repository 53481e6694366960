package middleware

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"flightlogbook/internal/config"
	dbpkg "flightlogbook/internal/db"
	httpctx "flightlogbook/internal/http/ctx"
	"flightlogbook/internal/ratelimit"
)

func gateConfig() *config.Config {
	return &config.Config{UserRatePerHour: 100, AnonRatePerHour: 20}
}

// newRequestCtx builds a request context the way fasthttp hands one to a
// handler. Anonymous requests never reach the database, so the gate is
// exercised with a nil *gorm.DB throughout.
func newRequestCtx(method, path string, headers map[string]string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	return ctx
}

func gated(registry *ratelimit.Registry, hits *int) fasthttp.RequestHandler {
	return RateLimit(nil, registry, gateConfig())(func(ctx *fasthttp.RequestCtx) {
		*hits++
		ctx.SetStatusCode(fasthttp.StatusOK)
	})
}

func TestGateAllowsUntilAnonCapacityThenRejects(t *testing.T) {
	registry := ratelimit.NewRegistry()
	var hits int
	handler := gated(registry, &hits)

	headers := map[string]string{"X-Forwarded-For": "203.0.113.9"}
	for i := 0; i < 20; i++ {
		ctx := newRequestCtx("GET", "/api/sightings", headers)
		handler(ctx)
		require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode(), "request %d should pass", i+1)
	}
	require.Equal(t, 20, hits)

	ctx := newRequestCtx("GET", "/api/sightings", headers)
	handler(ctx)
	assert.Equal(t, fasthttp.StatusTooManyRequests, ctx.Response.StatusCode())
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
	assert.JSONEq(t,
		`{"error":"Rate limit exceeded","message":"Too many requests. Please try again later."}`,
		string(ctx.Response.Body()))
	assert.Equal(t, 20, hits, "the rejected request must not reach the handler")
}

func TestGateAllowListBypassesBuckets(t *testing.T) {
	registry := ratelimit.NewRegistry()
	var hits int
	handler := gated(registry, &hits)

	for _, path := range []string{"/healthz", "/metrics", "/metrics?prefix=flightlogbook"} {
		for i := 0; i < 50; i++ {
			ctx := newRequestCtx("GET", path, nil)
			handler(ctx)
			require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
		}
	}
	assert.Equal(t, 150, hits)
	assert.Equal(t, 0, registry.Len(), "allow-listed paths must not create buckets")
}

func TestGateKeysAnonymousCallersByForwardedIP(t *testing.T) {
	registry := ratelimit.NewRegistry()
	var hits int
	handler := gated(registry, &hits)

	// Two distinct forwarded addresses get independent budgets.
	for i := 0; i < 20; i++ {
		handler(newRequestCtx("GET", "/api/sightings", map[string]string{"X-Forwarded-For": "198.51.100.1"}))
	}
	ctx := newRequestCtx("GET", "/api/sightings", map[string]string{"X-Forwarded-For": "198.51.100.2"})
	handler(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, 2, registry.Len())
}

func TestGateUsesFirstForwardedForValue(t *testing.T) {
	registry := ratelimit.NewRegistry()
	var hits int
	handler := gated(registry, &hits)

	// The proxy-appended tail must not change the caller identity.
	first := map[string]string{"X-Forwarded-For": "198.51.100.7"}
	chained := map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.1, 10.0.0.2"}
	for i := 0; i < 20; i++ {
		handler(newRequestCtx("GET", "/api/sightings", first))
	}
	ctx := newRequestCtx("GET", "/api/sightings", chained)
	handler(ctx)
	assert.Equal(t, fasthttp.StatusTooManyRequests, ctx.Response.StatusCode(),
		"same first hop must share the same bucket")
	assert.Equal(t, 1, registry.Len())
}

func TestGateAuthenticatedCallerGetsUserPolicy(t *testing.T) {
	registry := ratelimit.NewRegistry()
	var hits int
	handler := gated(registry, &hits)

	// A caller resolved upstream short-circuits the token lookup.
	send := func() *fasthttp.RequestCtx {
		ctx := newRequestCtx("GET", "/api/sightings/me", nil)
		httpctx.SetUser(ctx, &dbpkg.User{ID: 42})
		handler(ctx)
		return ctx
	}

	for i := 0; i < 100; i++ {
		require.Equal(t, fasthttp.StatusOK, send().Response.StatusCode(), "request %d should pass", i+1)
	}
	assert.Equal(t, fasthttp.StatusTooManyRequests, send().Response.StatusCode())
	assert.Equal(t, 1, registry.Len())
}

func TestGateSeparatesUserAndAnonBudgets(t *testing.T) {
	registry := ratelimit.NewRegistry()
	var hits int
	handler := gated(registry, &hits)

	// Drain the anonymous budget for one address.
	headers := map[string]string{"X-Forwarded-For": "192.0.2.1"}
	for i := 0; i < 20; i++ {
		handler(newRequestCtx("GET", "/api/sightings", headers))
	}
	rejected := newRequestCtx("GET", "/api/sightings", headers)
	handler(rejected)
	require.Equal(t, fasthttp.StatusTooManyRequests, rejected.Response.StatusCode())

	// The same wire address with a resolved user is a different caller.
	ctx := newRequestCtx("GET", "/api/sightings", headers)
	httpctx.SetUser(ctx, &dbpkg.User{ID: 7})
	handler(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
}

func TestClientIPFallsBackToRemoteAddr(t *testing.T) {
	ctx := newRequestCtx("GET", "/api/sightings", nil)
	assert.NotEmpty(t, clientIP(ctx))
}

func TestGateDistinctUsersDistinctBuckets(t *testing.T) {
	registry := ratelimit.NewRegistry()
	var hits int
	handler := gated(registry, &hits)

	for id := uint(1); id <= 3; id++ {
		ctx := newRequestCtx("GET", "/api/sightings", nil)
		httpctx.SetUser(ctx, &dbpkg.User{ID: id})
		handler(ctx)
		require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode(), fmt.Sprintf("user %d", id))
	}
	assert.Equal(t, 3, registry.Len())
}
