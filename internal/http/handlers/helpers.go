package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/valyala/fasthttp"

	dbpkg "flightlogbook/internal/db"
	httpctx "flightlogbook/internal/http/ctx"
)

// MustUser returns the current user from context, or sends 401 and returns (nil, false).
func MustUser(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	user, ok := httpctx.UserFromCtx(ctx)
	if !ok {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString("unauthorized")
		return nil, false
	}
	return user, true
}

// callerIdent returns the string user id and admin flag for the current
// caller.
func callerIdent(ctx *fasthttp.RequestCtx, user *dbpkg.User) (string, bool) {
	return dbpkg.UserIdent(user.ID), httpctx.IsAdminFromCtx(ctx)
}

func jsonResponse(ctx *fasthttp.RequestCtx, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("failed to encode response")
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetBodyString(msg)
}

// pathID parses the {id} route parameter.
func pathID(ctx *fasthttp.RequestCtx) (uint, bool) {
	raw, _ := ctx.UserValue("id").(string)
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		errResponse(ctx, fasthttp.StatusBadRequest, "invalid id")
		return 0, false
	}
	return uint(n), true
}

// parsePage reads page/size query args. Page size is capped at 100 to
// prevent excessive data transfer.
func parsePage(ctx *fasthttp.RequestCtx, defaultSize int) (page, size int) {
	page = 0
	size = defaultSize
	if v := string(ctx.QueryArgs().Peek("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			page = n
		}
	}
	if v := string(ctx.QueryArgs().Peek("size")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			size = n
		}
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
