package handlers

import (
	"errors"
	"io"
	"log"
	"strconv"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "flightlogbook/internal/db"
	"flightlogbook/internal/storage"
)

// UploadPhoto accepts a multipart "file" field and attaches the stored
// photo to the sighting in the "sighting_id" form field. Only the
// sighting's owner or an admin may upload.
func UploadPhoto(db *gorm.DB, store storage.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		form, err := ctx.MultipartForm()
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "multipart form required")
			return
		}

		ids := form.Value["sighting_id"]
		if len(ids) == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "sighting_id is required")
			return
		}
		parsed, err := strconv.ParseUint(ids[0], 10, 32)
		if err != nil || parsed == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid sighting_id")
			return
		}

		sighting, ok := loadOwnedSighting(ctx, db, uint(parsed), user)
		if !ok {
			return
		}

		files := form.File["file"]
		if len(files) == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "file is required")
			return
		}
		header := files[0]

		const maxPhotoSize = 25 << 20
		if header.Size > maxPhotoSize {
			errResponse(ctx, fasthttp.StatusRequestEntityTooLarge, "file exceeds 25MB limit")
			return
		}

		f, err := header.Open()
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "unreadable file")
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "unreadable file")
			return
		}

		key, url, err := store.Put(header.Filename, data)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}

		userID, _ := callerIdent(ctx, user)
		photo := dbpkg.Photo{
			SightingID:  sighting.ID,
			OwnerUserID: userID,
			StorageKey:  key,
			URL:         url,
		}
		if err := db.Create(&photo).Error; err != nil {
			if delErr := store.Delete(key); delErr != nil {
				log.Printf("orphaned photo file %s: %v", key, delErr)
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist photo")
			return
		}

		jsonResponse(ctx, fasthttp.StatusCreated, photo)
	}
}

// SightingPhotos lists photos for a sighting, subject to the same
// visibility rules as the sighting itself.
func SightingPhotos(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, ok := pathID(ctx)
		if !ok {
			return
		}

		var photos []dbpkg.Photo
		if err := db.Where("sighting_id = ?", id).Order("created_at ASC").Find(&photos).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}
		if photos == nil {
			photos = []dbpkg.Photo{}
		}
		jsonResponse(ctx, fasthttp.StatusOK, photos)
	}
}

// DeletePhoto removes a photo row and its stored file. Only the photo's
// owner or an admin may delete. The stored object is removed first;
// a failure there aborts before touching the row.
func DeletePhoto(db *gorm.DB, store storage.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		id, ok := pathID(ctx)
		if !ok {
			return
		}

		var photo dbpkg.Photo
		if err := db.First(&photo, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				errResponse(ctx, fasthttp.StatusNotFound, "photo not found")
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		userID, isAdmin := callerIdent(ctx, user)
		if !isAdmin && photo.OwnerUserID != userID {
			errResponse(ctx, fasthttp.StatusForbidden, "not authorised for this photo")
			return
		}

		if err := store.Delete(photo.StorageKey); err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to delete stored photo")
			return
		}
		if err := db.Delete(&photo).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to delete photo")
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}
