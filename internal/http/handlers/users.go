package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	dbpkg "flightlogbook/internal/db"
	httpctx "flightlogbook/internal/http/ctx"
)

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateUser provisions a new account. Admin only.
func CreateUser(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUser(ctx); !ok {
			return
		}
		if !httpctx.IsAdminFromCtx(ctx) {
			errResponse(ctx, fasthttp.StatusForbidden, "only admins can create users")
			return
		}

		var req createUserRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Username == "" || len(req.Password) < 8 {
			errResponse(ctx, fasthttp.StatusBadRequest, "username and a password of at least 8 characters are required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to hash password")
			return
		}

		user := dbpkg.User{Username: req.Username, PasswordHash: string(hash)}
		if err := db.Create(&user).Error; err != nil {
			errResponse(ctx, fasthttp.StatusConflict, "failed to create user (username taken?)")
			return
		}
		jsonResponse(ctx, fasthttp.StatusCreated, user)
	}
}

type createAPIKeyRequest struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
}

type createAPIKeyResponse struct {
	dbpkg.APIKey
	// Key is returned exactly once, at creation time.
	Key string `json:"key"`
}

// CreateAPIKey mints a bearer token for a user. Admin only.
func CreateAPIKey(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUser(ctx); !ok {
			return
		}
		if !httpctx.IsAdminFromCtx(ctx) {
			errResponse(ctx, fasthttp.StatusForbidden, "only admins can create API keys")
			return
		}

		var req createAPIKeyRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.UserID == 0 || req.Name == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "user_id and name are required")
			return
		}

		var user dbpkg.User
		if err := db.First(&user, req.UserID).Error; err != nil {
			errResponse(ctx, fasthttp.StatusNotFound, "user not found")
			return
		}

		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to generate key")
			return
		}
		token := "flb_" + hex.EncodeToString(raw)

		apiKey := dbpkg.APIKey{
			UserID: req.UserID,
			Name:   req.Name,
			Key:    token,
			Active: true,
		}
		if err := db.Create(&apiKey).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist API key")
			return
		}

		jsonResponse(ctx, fasthttp.StatusCreated, createAPIKeyResponse{APIKey: apiKey, Key: token})
	}
}

// DeactivateAPIKey disables a key so the auth middleware rejects it.
// Admin only.
func DeactivateAPIKey(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUser(ctx); !ok {
			return
		}
		if !httpctx.IsAdminFromCtx(ctx) {
			errResponse(ctx, fasthttp.StatusForbidden, "only admins can manage API keys")
			return
		}

		id, ok := pathID(ctx)
		if !ok {
			return
		}
		result := db.Model(&dbpkg.APIKey{}).Where("id = ?", id).Update("active", false)
		if result.Error != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}
		if result.RowsAffected == 0 {
			errResponse(ctx, fasthttp.StatusNotFound, "API key not found")
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}
