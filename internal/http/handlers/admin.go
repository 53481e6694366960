package handlers

import (
	"errors"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "flightlogbook/internal/db"
	httpctx "flightlogbook/internal/http/ctx"
)

// GrantRole assigns a role to a user. Admin only.
// POST /api/admin/roles/grant?user_id=...&role=...&notes=...
func GrantRole(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		caller, ok := MustUser(ctx)
		if !ok {
			return
		}
		if !httpctx.IsAdminFromCtx(ctx) {
			errResponse(ctx, fasthttp.StatusForbidden, "only admins can grant roles")
			return
		}

		userID := string(ctx.QueryArgs().Peek("user_id"))
		role := string(ctx.QueryArgs().Peek("role"))
		notes := string(ctx.QueryArgs().Peek("notes"))
		if userID == "" || role == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "user_id and role are required")
			return
		}

		callerID, _ := callerIdent(ctx, caller)
		roles := &dbpkg.RoleStore{DB: db}
		grant, err := roles.GrantRole(userID, role, callerID, notes)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to grant role")
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, grant)
	}
}

// RevokeAdminRole demotes a user back to USER. Admin only; revoking
// your own role is refused.
// POST /api/admin/roles/revoke/{user_id}
func RevokeAdminRole(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		caller, ok := MustUser(ctx)
		if !ok {
			return
		}
		if !httpctx.IsAdminFromCtx(ctx) {
			errResponse(ctx, fasthttp.StatusForbidden, "only admins can revoke roles")
			return
		}

		userID, _ := ctx.UserValue("user_id").(string)
		if userID == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "user_id is required")
			return
		}

		callerID, _ := callerIdent(ctx, caller)
		roles := &dbpkg.RoleStore{DB: db}
		if err := roles.RevokeAdminRole(userID, callerID); err != nil {
			if errors.Is(err, dbpkg.ErrSelfRevoke) {
				errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to revoke role")
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}
