package ctx

import (
	"github.com/valyala/fasthttp"

	dbpkg "flightlogbook/internal/db"
)

const (
	UserKey    = "user"
	APIKeyKey  = "apiKey"
	IsAdminKey = "isAdmin"
)

func SetUser(ctx *fasthttp.RequestCtx, user *dbpkg.User) {
	ctx.SetUserValue(UserKey, user)
}

func UserFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	v := ctx.UserValue(UserKey)
	if v == nil {
		return nil, false
	}
	u, ok := v.(*dbpkg.User)
	return u, ok && u != nil
}

func SetAPIKey(ctx *fasthttp.RequestCtx, apiKey *dbpkg.APIKey) {
	ctx.SetUserValue(APIKeyKey, apiKey)
}

func APIKeyFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.APIKey, bool) {
	v := ctx.UserValue(APIKeyKey)
	if v == nil {
		return nil, false
	}
	ak, ok := v.(*dbpkg.APIKey)
	return ak, ok
}

func SetIsAdmin(ctx *fasthttp.RequestCtx, isAdmin bool) {
	ctx.SetUserValue(IsAdminKey, isAdmin)
}

func IsAdminFromCtx(ctx *fasthttp.RequestCtx) bool {
	v := ctx.UserValue(IsAdminKey)
	b, ok := v.(bool)
	return ok && b
}
