package handlers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "flightlogbook/internal/db"
	"flightlogbook/internal/enrich"
	httpctx "flightlogbook/internal/http/ctx"
)

// sightingRequest is the create/update payload. On update, zero-valued
// fields are left untouched.
type sightingRequest struct {
	Timestamp     *time.Time `json:"timestamp"`
	AirportCode   string     `json:"airport_code"`
	LocationText  string     `json:"location_text"`
	Airline       string     `json:"airline"`
	Callsign      string     `json:"callsign"`
	Icao24        string     `json:"icao24"`
	Registration  string     `json:"registration"`
	AircraftModel string     `json:"aircraft_model"`
	Notes         string     `json:"notes"`
	Visibility    string     `json:"visibility"`
}

type sightingPage struct {
	Items []dbpkg.Sighting `json:"items"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
	Total int64            `json:"total"`
}

func listSightings(ctx *fasthttp.RequestCtx, q *gorm.DB, defaultSize int) {
	page, size := parsePage(ctx, defaultSize)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
		return
	}

	var items []dbpkg.Sighting
	if err := q.Order("timestamp DESC").Offset(page * size).Limit(size).Find(&items).Error; err != nil {
		errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
		return
	}
	if items == nil {
		items = []dbpkg.Sighting{}
	}

	jsonResponse(ctx, fasthttp.StatusOK, sightingPage{Items: items, Page: page, Size: size, Total: total})
}

// PublicSightings lists PUBLIC sightings, newest event first.
func PublicSightings(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		listSightings(ctx, db.Model(&dbpkg.Sighting{}).Where("visibility = ?", dbpkg.VisibilityPublic), 10)
	}
}

// MySightings lists the authenticated caller's sightings.
func MySightings(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		userID, _ := callerIdent(ctx, user)
		listSightings(ctx, db.Model(&dbpkg.Sighting{}).Where("owner_user_id = ?", userID), 10)
	}
}

// AllSightings lists every sighting, public and private. Admin only.
func AllSightings(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := MustUser(ctx); !ok {
			return
		}
		if !httpctx.IsAdminFromCtx(ctx) {
			errResponse(ctx, fasthttp.StatusForbidden, "admin role required")
			return
		}
		listSightings(ctx, db.Model(&dbpkg.Sighting{}), 50)
	}
}

// GetSighting returns one sighting. Private sightings are only visible
// to their owner or an admin.
func GetSighting(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, ok := pathID(ctx)
		if !ok {
			return
		}

		store := &dbpkg.SightingStore{DB: db}
		sighting, err := store.LoadByID(id)
		if err != nil {
			if errors.Is(err, dbpkg.ErrSightingNotFound) {
				errResponse(ctx, fasthttp.StatusNotFound, "sighting not found")
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		if sighting.Visibility != dbpkg.VisibilityPublic {
			user, ok := httpctx.UserFromCtx(ctx)
			if !ok {
				errResponse(ctx, fasthttp.StatusNotFound, "sighting not found")
				return
			}
			userID, isAdmin := callerIdent(ctx, user)
			if !isAdmin && sighting.OwnerUserID != userID {
				errResponse(ctx, fasthttp.StatusNotFound, "sighting not found")
				return
			}
		}

		jsonResponse(ctx, fasthttp.StatusOK, sighting)
	}
}

// CreateSighting persists a new sighting for the caller and submits an
// enrichment attempt. The response does not wait for enrichment;
// clients poll enrichment_status.
func CreateSighting(db *gorm.DB, worker *enrich.Worker) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		var req sightingRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Timestamp == nil || req.AirportCode == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "timestamp and airport_code are required")
			return
		}

		visibility := req.Visibility
		if visibility != dbpkg.VisibilityPublic {
			visibility = dbpkg.VisibilityPrivate
		}

		userID, _ := callerIdent(ctx, user)
		sighting := dbpkg.Sighting{
			OwnerUserID:      userID,
			Timestamp:        *req.Timestamp,
			AirportCode:      req.AirportCode,
			LocationText:     req.LocationText,
			Airline:          req.Airline,
			Callsign:         req.Callsign,
			Icao24:           req.Icao24,
			Registration:     req.Registration,
			AircraftModel:    req.AircraftModel,
			Notes:            req.Notes,
			Visibility:       visibility,
			EnrichmentStatus: dbpkg.EnrichmentEnriching,
		}

		if err := db.Create(&sighting).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist sighting")
			return
		}

		worker.Submit(&sighting)
		jsonResponse(ctx, fasthttp.StatusCreated, sighting)
	}
}

// UpdateSighting applies a partial update. Only the owner or an admin
// may update.
func UpdateSighting(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := pathID(ctx)
		if !ok {
			return
		}

		sighting, ok := loadOwnedSighting(ctx, db, id, user)
		if !ok {
			return
		}

		var req sightingRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}

		if req.Timestamp != nil {
			sighting.Timestamp = *req.Timestamp
		}
		if req.AirportCode != "" {
			sighting.AirportCode = req.AirportCode
		}
		if req.LocationText != "" {
			sighting.LocationText = req.LocationText
		}
		if req.Airline != "" {
			sighting.Airline = req.Airline
		}
		if req.Callsign != "" {
			sighting.Callsign = req.Callsign
		}
		if req.Icao24 != "" {
			sighting.Icao24 = req.Icao24
		}
		if req.Registration != "" {
			sighting.Registration = req.Registration
		}
		if req.AircraftModel != "" {
			sighting.AircraftModel = req.AircraftModel
		}
		if req.Notes != "" {
			sighting.Notes = req.Notes
		}
		if req.Visibility == dbpkg.VisibilityPublic || req.Visibility == dbpkg.VisibilityPrivate {
			sighting.Visibility = req.Visibility
		}

		if err := db.Save(sighting).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist sighting")
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, sighting)
	}
}

// DeleteSighting removes a sighting. Only the owner or an admin may delete.
func DeleteSighting(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := pathID(ctx)
		if !ok {
			return
		}

		sighting, ok := loadOwnedSighting(ctx, db, id, user)
		if !ok {
			return
		}

		if err := db.Delete(sighting).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to delete sighting")
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}

// RetryEnrichment resets the sighting to ENRICHING and resubmits it to
// the pipeline. Only the owner or an admin may retry. Returns 202; the
// outcome is observed by re-reading the sighting later.
func RetryEnrichment(db *gorm.DB, worker *enrich.Worker) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := pathID(ctx)
		if !ok {
			return
		}

		sighting, ok := loadOwnedSighting(ctx, db, id, user)
		if !ok {
			return
		}

		sighting.EnrichmentStatus = dbpkg.EnrichmentEnriching
		if err := db.Save(sighting).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist sighting")
			return
		}

		worker.Submit(sighting)
		ctx.SetStatusCode(fasthttp.StatusAccepted)
	}
}

// loadOwnedSighting fetches the sighting and enforces owner-or-admin
// access, writing the error response itself on failure.
func loadOwnedSighting(ctx *fasthttp.RequestCtx, db *gorm.DB, id uint, user *dbpkg.User) (*dbpkg.Sighting, bool) {
	store := &dbpkg.SightingStore{DB: db}
	sighting, err := store.LoadByID(id)
	if err != nil {
		if errors.Is(err, dbpkg.ErrSightingNotFound) {
			errResponse(ctx, fasthttp.StatusNotFound, "sighting not found")
		} else {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
		}
		return nil, false
	}

	userID, isAdmin := callerIdent(ctx, user)
	if !isAdmin && sighting.OwnerUserID != userID {
		errResponse(ctx, fasthttp.StatusForbidden, "not authorised for this sighting")
		return nil, false
	}
	return sighting, true
}
