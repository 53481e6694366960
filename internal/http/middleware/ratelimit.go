package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"flightlogbook/internal/config"
	dbpkg "flightlogbook/internal/db"
	httpctx "flightlogbook/internal/http/ctx"
	"flightlogbook/internal/ratelimit"
)

// rateLimitBody is the fixed machine-readable rejection payload. It
// deliberately carries no caller-identifying detail.
const rateLimitBody = `{"error":"Rate limit exceeded","message":"Too many requests. Please try again later."}`

// allowListPrefixes are operational endpoints that bypass the gate.
var allowListPrefixes = []string{"/healthz", "/metrics"}

var (
	gateMetricsOnce sync.Once
	gateRejections  *prometheus.CounterVec
)

// InitMetrics registers the gate's prometheus collectors.
func InitMetrics() {
	gateMetricsOnce.Do(func() {
		gateRejections = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flightlogbook",
				Name:      "rate_limit_rejections_total",
				Help:      "Inbound requests rejected by the rate-limit gate.",
			},
			[]string{"policy"},
		)
		prometheus.MustRegister(gateRejections)
	})
}

// RateLimit gates every inbound request on a per-caller token bucket:
// authenticated callers are keyed by user id, anonymous ones by client
// IP. Over-quota requests are rejected with 429 before reaching any
// business logic.
func RateLimit(db *gorm.DB, registry *ratelimit.Registry, cfg *config.Config) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	userPolicy := ratelimit.Policy{
		Capacity:       cfg.UserRatePerHour,
		RefillAmount:   cfg.UserRatePerHour,
		RefillInterval: time.Hour,
	}
	anonPolicy := ratelimit.Policy{
		Capacity:       cfg.AnonRatePerHour,
		RefillAmount:   cfg.AnonRatePerHour,
		RefillInterval: time.Hour,
	}

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			path := string(ctx.Path())
			for _, prefix := range allowListPrefixes {
				if strings.HasPrefix(path, prefix) {
					next(ctx)
					return
				}
			}

			key, policy, policyName := resolveRateKey(ctx, db, userPolicy, anonPolicy)
			bucket := registry.Resolve(key, policy)
			if !bucket.TryConsume(1) {
				if gateRejections != nil {
					gateRejections.WithLabelValues(policyName).Inc()
				}
				ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
				ctx.SetContentType("application/json")
				ctx.SetBodyString(rateLimitBody)
				return
			}
			next(ctx)
		}
	}
}

// resolveRateKey picks the bucket key and policy for the request:
// "user:<id>" with the authenticated policy when the caller presents a
// valid API key, else "ip:<addr>" with the anonymous policy. A single
// X-Forwarded-For header is honored (first value only) for proxied
// deployments.
func resolveRateKey(ctx *fasthttp.RequestCtx, db *gorm.DB, userPolicy, anonPolicy ratelimit.Policy) (string, ratelimit.Policy, string) {
	if resolveCaller(ctx, db) {
		if user, ok := httpctx.UserFromCtx(ctx); ok {
			return "user:" + dbpkg.UserIdent(user.ID), userPolicy, "user"
		}
	}
	return "ip:" + clientIP(ctx), anonPolicy, "anon"
}

func clientIP(ctx *fasthttp.RequestCtx) string {
	if fwd := string(ctx.Request.Header.Peek("X-Forwarded-For")); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	return ctx.RemoteIP().String()
}
