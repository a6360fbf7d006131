package handler

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	_ "image/gif" // register decoders for thumbnail generation
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/nfnt/resize"

	"github.com/avelov/photo-share-gallery/internal/queue"
	"github.com/avelov/photo-share-gallery/internal/repository"
	queue_publisher "github.com/avelov/photo-share-gallery/internal/service"
	"github.com/avelov/photo-share-gallery/internal/storage"
)

// maxUploadBytes caps a single photo upload.
const maxUploadBytes = 32 << 20 // 32 MiB

// presignTTL bounds how long a returned download URL stays valid.
const presignTTL = 15 * time.Minute

// PhotoHandler bundles the dependencies for photo endpoints. Uploads stream
// the original into object storage, store a jpeg thumbnail beside it, and
// keep only metadata in MySQL. Every authenticated member may browse; only
// the owner mutates.
type PhotoHandler struct {
	Photos     *repository.PhotoRepo
	Tags       *repository.TagRepo
	Slideshows *repository.SlideshowRepo
	Store      *storage.Store
}

// NewPhotoHandler constructs a PhotoHandler with the provided dependencies.
func NewPhotoHandler(p *repository.PhotoRepo, t *repository.TagRepo, s *repository.SlideshowRepo, store *storage.Store) *PhotoHandler {
	if p == nil || t == nil || s == nil || store == nil {
		panic("nil dependency passed to NewPhotoHandler")
	}
	return &PhotoHandler{Photos: p, Tags: t, Slideshows: s, Store: store}
}

var allowedUploadTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type photoResp struct {
	ID          uint64    `json:"id"`
	OwnerID     uint64    `json:"owner_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Tags        []string  `json:"tags"`
	URL         string    `json:"url,omitempty"`
	ThumbURL    string    `json:"thumb_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Upload handles POST /v1/photos. The multipart form carries the image under
// "file" plus optional "title", "description" and comma-separated "tags"
// fields. Returns 201 with the stored metadata.
func (h *PhotoHandler) Upload(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	if fh.Size <= 0 || fh.Size > maxUploadBytes {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is empty or exceeds the size limit"})
	}
	contentType := fh.Header.Get("Content-Type")
	ext, ok := allowedUploadTypes[contentType]
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported content type"})
	}

	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "read upload failed"})
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes+1))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "read upload failed"})
	}
	if int64(len(data)) > maxUploadBytes {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file exceeds the size limit"})
	}

	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(fh.Filename, path.Ext(fh.Filename))
	}
	if title == "" {
		title = "untitled"
	}
	var description *string
	if d := strings.TrimSpace(c.FormValue("description")); d != "" {
		description = &d
	}

	key := "photos/" + uuid.NewString() + ext
	ctx := c.Request().Context()
	if err := h.Store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store upload failed"})
	}

	// Thumbnail generation is best effort: webp (and any image the stdlib
	// cannot decode) simply ships without one.
	thumbKey := ""
	if img, _, derr := image.Decode(bytes.NewReader(data)); derr == nil {
		thumb := resize.Thumbnail(400, 400, img, resize.Lanczos3)
		var buf bytes.Buffer
		if jerr := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 82}); jerr == nil {
			tk := "thumbs/" + uuid.NewString() + ".jpg"
			if perr := h.Store.Put(ctx, tk, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "image/jpeg"); perr == nil {
				thumbKey = tk
			}
		}
	}

	p := repository.Photo{
		OwnerID:     userID,
		Title:       title,
		Description: description,
		StorageKey:  key,
		ThumbKey:    thumbKey,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}
	if err := h.Photos.Create(ctx, &p); err != nil {
		// Metadata failed; drop the blobs so the bucket does not accumulate
		// orphans.
		_ = h.Store.Remove(context.Background(), key)
		if thumbKey != "" {
			_ = h.Store.Remove(context.Background(), thumbKey)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save photo failed"})
	}

	var tags []string
	if raw := strings.TrimSpace(c.FormValue("tags")); raw != "" {
		if err := h.Tags.AddToPhoto(ctx, p.ID, strings.Split(raw, ",")); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save tags failed"})
		}
		if tags, err = h.Tags.ForPhoto(ctx, p.ID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}

	go func() {
		_ = queue_publisher.Publish(context.Background(), "photo.uploaded", queue.PhotoUploadedEvent{
			PhotoID:     p.ID,
			OwnerID:     p.OwnerID,
			Title:       p.Title,
			ContentType: p.ContentType,
			SizeBytes:   p.SizeBytes,
			StorageKey:  p.StorageKey,
			UploadedAt:  time.Now().UTC().Format(time.RFC3339),
		})
	}()

	return c.JSON(http.StatusCreated, h.toResp(ctx, p, tags, false))
}

// List handles GET /v1/photos. Optional query parameters: tag filters by tag
// name, mine=true restricts to the caller's photos, limit/offset page the
// result.
func (h *PhotoHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, offset := pageParams(c)
	ctx := c.Request().Context()

	var photos []repository.Photo
	switch {
	case c.QueryParam("tag") != "":
		photos, err = h.Photos.ListByTag(ctx, c.QueryParam("tag"), limit, offset)
	case strings.EqualFold(c.QueryParam("mine"), "true"):
		photos, err = h.Photos.ListByOwner(ctx, userID, limit, offset)
	default:
		photos, err = h.Photos.List(ctx, limit, offset)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	ids := make([]uint64, 0, len(photos))
	for _, p := range photos {
		ids = append(ids, p.ID)
	}
	tagsByPhoto, err := h.Tags.ForPhotos(ctx, ids)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	out := make([]photoResp, 0, len(photos))
	for _, p := range photos {
		out = append(out, h.toResp(ctx, p, tagsByPhoto[p.ID], false))
	}
	return c.JSON(http.StatusOK, echo.Map{"photos": out})
}

// Get handles GET /v1/photos/:id and includes presigned URLs for both the
// original and the thumbnail.
func (h *PhotoHandler) Get(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid photo id"})
	}
	ctx := c.Request().Context()
	p, err := h.Photos.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrPhotoNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "photo not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	tags, err := h.Tags.ForPhoto(ctx, p.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, h.toResp(ctx, p, tags, true))
}

// Delete handles DELETE /v1/photos/:id. Only the owner may delete. The
// photo's membership rows are removed and every affected slideshow is
// renumbered inside the same transaction, so position density survives the
// cascade. Stored objects are removed after commit.
func (h *PhotoHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid photo id"})
	}
	ctx := c.Request().Context()
	p, err := h.Photos.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrPhotoNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "photo not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if p.OwnerID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	tx, err := h.Photos.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := h.Slideshows.RemovePhotoEverywhereTx(ctx, tx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update slideshows"})
	}
	if err := h.Photos.DeleteTx(ctx, tx, id); err != nil {
		if err == repository.ErrPhotoNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "photo not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete photo failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	// Blob removal happens outside the transaction; failures leave orphaned
	// objects which a bucket lifecycle rule can collect.
	_ = h.Store.Remove(ctx, p.StorageKey)
	if p.ThumbKey != "" {
		_ = h.Store.Remove(ctx, p.ThumbKey)
	}
	return c.NoContent(http.StatusNoContent)
}

type addTagsReq struct {
	Tags []string `json:"tags" validate:"required,min=1,dive,min=1"`
}

// AddTags handles POST /v1/photos/:id/tags. Owner only; attaching a tag the
// photo already carries is a no-op.
func (h *PhotoHandler) AddTags(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid photo id"})
	}
	var req addTagsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.Photos.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrPhotoNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "photo not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if p.OwnerID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Tags.AddToPhoto(ctx, id, req.Tags); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save tags failed"})
	}
	tags, err := h.Tags.ForPhoto(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tags": tags})
}

// RemoveTag handles DELETE /v1/photos/:id/tags/:tag. Owner only.
func (h *PhotoHandler) RemoveTag(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid photo id"})
	}
	tag := repository.NormalizeTag(c.Param("tag"))
	if tag == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tag"})
	}
	ctx := c.Request().Context()
	p, err := h.Photos.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrPhotoNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "photo not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if p.OwnerID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Tags.RemoveFromPhoto(ctx, id, tag); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tag not attached to photo"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// toResp builds the JSON shape for a photo. Presigning the original is
// skipped on list responses (withOriginal=false) to keep them cheap; the
// thumbnail URL is always attempted since browse views need it.
func (h *PhotoHandler) toResp(ctx context.Context, p repository.Photo, tags []string, withOriginal bool) photoResp {
	if tags == nil {
		tags = []string{}
	}
	resp := photoResp{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Title:       p.Title,
		Description: p.Description,
		ContentType: p.ContentType,
		SizeBytes:   p.SizeBytes,
		Tags:        tags,
		CreatedAt:   p.CreatedAt,
	}
	if withOriginal {
		if u, err := h.Store.PresignGet(ctx, p.StorageKey, presignTTL); err == nil {
			resp.URL = u
		}
	}
	if p.ThumbKey != "" {
		if u, err := h.Store.PresignGet(ctx, p.ThumbKey, presignTTL); err == nil {
			resp.ThumbURL = u
		}
	}
	return resp
}
