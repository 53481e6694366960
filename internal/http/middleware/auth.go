package middleware

import (
	"bytes"
	"strings"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "flightlogbook/internal/db"
	httpctx "flightlogbook/internal/http/ctx"
)

// resolveCaller looks up the bearer token and, when valid, attaches the
// owning user and their admin flag to the request context. Returns true
// when a caller was resolved.
func resolveCaller(ctx *fasthttp.RequestCtx, db *gorm.DB) bool {
	if _, ok := httpctx.UserFromCtx(ctx); ok {
		return true
	}

	auth := ctx.Request.Header.Peek("Authorization")
	const prefix = "Bearer "
	if len(auth) == 0 || !bytes.HasPrefix(auth, []byte(prefix)) {
		return false
	}

	token := strings.TrimSpace(string(auth[len(prefix):]))
	if token == "" {
		return false
	}

	var apiKey dbpkg.APIKey
	if err := db.Where("key = ? AND active = ?", token, true).Preload("User").First(&apiKey).Error; err != nil {
		return false
	}

	roles := &dbpkg.RoleStore{DB: db}
	httpctx.SetAPIKey(ctx, &apiKey)
	httpctx.SetUser(ctx, &apiKey.User)
	httpctx.SetIsAdmin(ctx, roles.IsAdmin(dbpkg.UserIdent(apiKey.UserID)))
	return true
}

// BearerAuth requires a valid, active API key; otherwise the request is
// rejected with 401 before reaching the handler.
func BearerAuth(db *gorm.DB) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if !resolveCaller(ctx, db) {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("missing or invalid API key")
				return
			}
			next(ctx)
		}
	}
}

// OptionalAuth resolves the caller when a valid key is presented but
// lets anonymous requests through. Public listings use this so that
// authenticated callers are rate-limited under their own key.
func OptionalAuth(db *gorm.DB) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			resolveCaller(ctx, db)
			next(ctx)
		}
	}
}
