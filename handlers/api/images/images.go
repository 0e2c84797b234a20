package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"gallery-complete/core"
	"gallery-complete/middleware"
	"gallery-complete/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/nfnt/resize"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const maxUploadBytes = 32 << 20 // whole multipart request

func mediaURL(id string) string {
	return os.Getenv("MEDIA_BASE_URL") + "/media/" + id
}

func thumbKey(id string) string { return id + ".thumb" }

func fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// makeThumbnail decodes the uploaded bytes and produces a JPEG bounded by a
// 300px box. Formats the image package cannot decode simply get no
// thumbnail.
func makeThumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	thumb := resize.Thumbnail(300, 300, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HandleList returns the owner's collection. The order values are returned
// as stored; clients sort ascending.
func HandleList(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Claims(r)
		if !ok {
			fail(w, r, http.StatusUnauthorized, "User claims not found")
			return
		}
		ownerID := chi.URLParam(r, "ownerId")
		if ownerID != claims.Subject {
			fail(w, r, http.StatusForbidden, "Cannot list another user's images")
			return
		}

		items, err := store.List(r.Context(), ownerID)
		if err != nil {
			logrus.WithField("user_id", ownerID).WithError(err).Error("Failed to list images")
			fail(w, r, http.StatusInternalServerError, "Failed to list images")
			return
		}
		if items == nil {
			items = []*core.ImageItem{}
		}
		sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
		render.JSON(w, r, items)
	}
}

// HandleUpload accepts one multipart batch: repeated "images" file parts,
// a "titles[i]" field per file and the owner as "userId". New items are
// appended after the current highest order.
func HandleUpload(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Claims(r)
		if !ok {
			fail(w, r, http.StatusUnauthorized, "User claims not found")
			return
		}
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			fail(w, r, http.StatusBadRequest, "Invalid multipart request")
			return
		}
		ownerID := r.FormValue("userId")
		if ownerID != claims.Subject {
			fail(w, r, http.StatusForbidden, "Cannot upload into another user's gallery")
			return
		}

		files := r.MultipartForm.File["images"]
		if len(files) == 0 {
			fail(w, r, http.StatusBadRequest, "No images in request")
			return
		}

		existing, err := store.List(r.Context(), ownerID)
		if err != nil {
			logrus.WithField("user_id", ownerID).WithError(err).Error("Failed to read existing collection")
			fail(w, r, http.StatusInternalServerError, "Failed to read existing collection")
			return
		}
		nextOrder := 0
		for _, item := range existing {
			if item.Order >= nextOrder {
				nextOrder = item.Order + 1
			}
		}

		created := make([]*core.ImageItem, 0, len(files))
		for i, header := range files {
			f, err := header.Open()
			if err != nil {
				fail(w, r, http.StatusBadRequest, fmt.Sprintf("Failed to open %s", header.Filename))
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				fail(w, r, http.StatusBadRequest, fmt.Sprintf("Failed to read %s", header.Filename))
				return
			}

			title := r.FormValue(fmt.Sprintf("titles[%d]", i))
			if title == "" {
				title = fmt.Sprintf("Untitled %d", i+1)
			}

			id := ulid.Make().String()
			contentType := header.Header.Get("Content-Type")
			if contentType == "" || contentType == "application/octet-stream" {
				contentType = http.DetectContentType(data)
			}
			if err := store.PutBlob(r.Context(), id, data, contentType); err != nil {
				logrus.WithField("image_id", id).WithError(err).Error("Failed to store image blob")
				fail(w, r, http.StatusInternalServerError, "Failed to store image")
				return
			}

			item := &core.ImageItem{
				ID:        id,
				UserID:    ownerID,
				Title:     title,
				ImageURL:  mediaURL(id),
				Order:     nextOrder + i,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}

			if thumb, err := makeThumbnail(data); err == nil {
				if err := store.PutBlob(r.Context(), thumbKey(id), thumb, "image/jpeg"); err == nil {
					item.ThumbnailURL = mediaURL(thumbKey(id))
				}
			}

			if err := store.Create(r.Context(), item); err != nil {
				logrus.WithField("image_id", id).WithError(err).Error("Failed to create image item")
				fail(w, r, http.StatusInternalServerError, "Failed to save image")
				return
			}
			created = append(created, item)
		}

		logrus.WithFields(logrus.Fields{"user_id": ownerID, "count": len(created)}).Info("Images uploaded")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, created)
	}
}

// HandleUpdate replaces an item's title and, when an "image" part is
// present, its stored image.
func HandleUpdate(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Claims(r)
		if !ok {
			fail(w, r, http.StatusUnauthorized, "User claims not found")
			return
		}
		id := chi.URLParam(r, "id")

		item, err := store.Get(r.Context(), claims.Subject, id)
		if err != nil {
			fail(w, r, http.StatusNotFound, "Image not found")
			return
		}

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			fail(w, r, http.StatusBadRequest, "Invalid multipart request")
			return
		}
		item.Title = r.FormValue("title")
		item.UpdatedAt = time.Now()

		if f, header, err := r.FormFile("image"); err == nil {
			data, readErr := io.ReadAll(f)
			f.Close()
			if readErr != nil {
				fail(w, r, http.StatusBadRequest, fmt.Sprintf("Failed to read %s", header.Filename))
				return
			}
			contentType := header.Header.Get("Content-Type")
			if contentType == "" || contentType == "application/octet-stream" {
				contentType = http.DetectContentType(data)
			}
			if err := store.PutBlob(r.Context(), id, data, contentType); err != nil {
				logrus.WithField("image_id", id).WithError(err).Error("Failed to replace image blob")
				fail(w, r, http.StatusInternalServerError, "Failed to store image")
				return
			}
			if thumb, err := makeThumbnail(data); err == nil {
				if err := store.PutBlob(r.Context(), thumbKey(id), thumb, "image/jpeg"); err == nil {
					item.ThumbnailURL = mediaURL(thumbKey(id))
				}
			}
		}

		if err := store.Update(r.Context(), item); err != nil {
			logrus.WithField("image_id", id).WithError(err).Error("Failed to update image item")
			fail(w, r, http.StatusInternalServerError, "Failed to update image")
			return
		}
		render.JSON(w, r, item)
	}
}

// HandleDelete removes one item and its blobs. Surviving items keep their
// order values; the next reorder restores density.
func HandleDelete(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Claims(r)
		if !ok {
			fail(w, r, http.StatusUnauthorized, "User claims not found")
			return
		}
		id := chi.URLParam(r, "id")

		if err := store.Delete(r.Context(), claims.Subject, id); err != nil {
			logrus.WithFields(logrus.Fields{"user_id": claims.Subject, "image_id": id}).WithError(err).Error("Failed to delete image")
			fail(w, r, http.StatusNotFound, "Image not found")
			return
		}
		if err := store.DeleteBlob(r.Context(), id); err != nil {
			logrus.WithField("image_id", id).WithError(err).Warn("Failed to delete image blob")
		}
		store.DeleteBlob(r.Context(), thumbKey(id))

		render.JSON(w, r, map[string]string{"msg": "Image deleted"})
	}
}

// HandleReorder applies a full (id, order) mapping for the owner in one
// batch.
func HandleReorder(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Claims(r)
		if !ok {
			fail(w, r, http.StatusUnauthorized, "User claims not found")
			return
		}

		var req struct {
			UserID string             `json:"userId"`
			Images []core.OrderUpdate `json:"images"`
		}
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			fail(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.UserID != claims.Subject {
			fail(w, r, http.StatusForbidden, "Cannot reorder another user's gallery")
			return
		}

		if err := store.Reorder(r.Context(), req.UserID, req.Images); err != nil {
			logrus.WithField("user_id", req.UserID).WithError(err).Error("Failed to reorder images")
			fail(w, r, http.StatusInternalServerError, "Failed to reorder images")
			return
		}
		render.JSON(w, r, map[string]string{"msg": "Order updated"})
	}
}

// HandleMedia serves stored image bytes. Unauthenticated: image elements
// cannot attach bearer headers.
func HandleMedia(store stores.Store, thumb bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "id")
		if thumb {
			key = thumbKey(key)
		}
		data, contentType, err := store.GetBlob(r.Context(), key)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
	}
}
