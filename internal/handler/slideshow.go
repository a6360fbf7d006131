package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelov/photo-share-gallery/internal/queue"
	"github.com/avelov/photo-share-gallery/internal/repository"
	queue_publisher "github.com/avelov/photo-share-gallery/internal/service"
)

// SlideshowHandler implements slideshow CRUD plus the membership operations
// that maintain the ordering invariant: after every committed request a
// slideshow with N photos holds positions exactly 0..N-1 with no gaps or
// duplicates. All membership writes lock the slideshow row first, so
// concurrent mutations of the same slideshow serialize.
type SlideshowHandler struct {
	Slideshows *repository.SlideshowRepo
	Photos     *repository.PhotoRepo
}

func NewSlideshowHandler(s *repository.SlideshowRepo, p *repository.PhotoRepo) *SlideshowHandler {
	if s == nil || p == nil {
		panic("nil repository passed to NewSlideshowHandler")
	}
	return &SlideshowHandler{Slideshows: s, Photos: p}
}

type createSlideshowReq struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	IsPublic    bool     `json:"is_public"`
	PhotoIDs    []uint64 `json:"photo_ids" validate:"required,min=1,dive,gt=0"`
}

type updateSlideshowReq struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	IsPublic    bool    `json:"is_public"`
}

type appendPhotosReq struct {
	PhotoIDs []uint64 `json:"photo_ids" validate:"required,min=1,dive,gt=0"`
}

type reorderReq struct {
	PhotoIDs []uint64 `json:"photo_ids" validate:"required,dive,gt=0"`
}

type memberResp struct {
	PhotoID  uint64 `json:"photo_id"`
	Position int    `json:"position"`
}

type slideshowResp struct {
	ID          uint64       `json:"id"`
	OwnerID     uint64       `json:"owner_id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	IsPublic    bool         `json:"is_public"`
	Photos      []memberResp `json:"photos,omitempty"`
	PhotoCount  int          `json:"photo_count"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func toSlideshowResp(s repository.Slideshow, members []repository.Member) slideshowResp {
	resp := slideshowResp{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		Title:       s.Title,
		Description: s.Description,
		IsPublic:    s.IsPublic,
		PhotoCount:  len(members),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	for _, m := range members {
		resp.Photos = append(resp.Photos, memberResp{PhotoID: m.PhotoID, Position: m.Position})
	}
	return resp
}

// Create handles POST /v1/slideshows. The submitted photo id order becomes
// the initial positions 0..N-1. Duplicate ids are rejected, and every id must
// reference an existing photo. Slideshow row and membership rows land in one
// transaction.
func (h *SlideshowHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createSlideshowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if dup := duplicateID(req.PhotoIDs); dup != 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("photo %d listed more than once", dup)})
	}
	ctx := c.Request().Context()
	missing, err := h.Photos.MissingIDs(ctx, req.PhotoIDs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if len(missing) > 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": fmt.Sprintf("photo %d not found", missing[0])})
	}

	tx, err := h.Slideshows.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	s := repository.Slideshow{
		OwnerID:     userID,
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	if err := h.Slideshows.CreateTx(ctx, tx, &s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create slideshow failed"})
	}
	members := assignPositions(req.PhotoIDs)
	if err := h.Slideshows.InsertMembersTx(ctx, tx, s.ID, members); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create slideshow failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	go func() {
		_ = queue_publisher.Publish(context.Background(), "slideshow.created", queue.SlideshowCreatedEvent{
			SlideshowID: s.ID,
			OwnerID:     s.OwnerID,
			Title:       s.Title,
			IsPublic:    s.IsPublic,
			PhotoIDs:    req.PhotoIDs,
			CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
		})
	}()

	return c.JSON(http.StatusCreated, toSlideshowResp(s, members))
}

// Get handles GET /v1/slideshows/:id. The owner always sees the slideshow;
// other members only when it is public. Photos come back ordered by position.
func (h *SlideshowHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseSlideshowID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slideshow id"})
	}
	ctx := c.Request().Context()
	s, err := h.Slideshows.GetByID(ctx, id)
	if err != nil {
		return slideshowRepoError(c, err)
	}
	if s.OwnerID != userID && !s.IsPublic {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	members, err := h.Slideshows.Members(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, toSlideshowResp(s, members))
}

// ListMine handles GET /v1/slideshows.
func (h *SlideshowHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	summaries, err := h.Slideshows.ListByOwner(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"slideshows": toSummaryResps(summaries)})
}

// ListPublic handles GET /v1/slideshows/public.
func (h *SlideshowHandler) ListPublic(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, offset := pageParams(c)
	summaries, err := h.Slideshows.ListPublic(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"slideshows": toSummaryResps(summaries)})
}

func toSummaryResps(summaries []repository.SlideshowSummary) []slideshowResp {
	out := make([]slideshowResp, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, slideshowResp{
			ID:          s.ID,
			OwnerID:     s.OwnerID,
			Title:       s.Title,
			Description: s.Description,
			IsPublic:    s.IsPublic,
			PhotoCount:  s.PhotoCount,
			CreatedAt:   s.CreatedAt,
			UpdatedAt:   s.UpdatedAt,
		})
	}
	return out
}

// Update handles PUT /v1/slideshows/:id, editing title, description and
// visibility. Membership is untouched.
func (h *SlideshowHandler) Update(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseSlideshowID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slideshow id"})
	}
	var req updateSlideshowReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.Slideshows.UpdateMeta(ctx, id, userID, req.Title, req.Description, req.IsPublic); err != nil {
		return slideshowRepoError(c, err)
	}
	s, err := h.Slideshows.GetByID(ctx, id)
	if err != nil {
		return slideshowRepoError(c, err)
	}
	members, err := h.Slideshows.Members(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, toSlideshowResp(s, members))
}

// Delete handles DELETE /v1/slideshows/:id. Membership rows go with the
// slideshow; the photos themselves are untouched.
func (h *SlideshowHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseSlideshowID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slideshow id"})
	}
	if err := h.Slideshows.Delete(c.Request().Context(), id, userID); err != nil {
		return slideshowRepoError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AppendPhotos handles POST /v1/slideshows/:id/photos. New photos take
// positions following the current maximum, in submitted order. Ids already in
// the slideshow are skipped silently, so retrying an append is harmless.
func (h *SlideshowHandler) AppendPhotos(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseSlideshowID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slideshow id"})
	}
	var req appendPhotosReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if dup := duplicateID(req.PhotoIDs); dup != 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("photo %d listed more than once", dup)})
	}
	ctx := c.Request().Context()

	tx, err := h.Slideshows.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	s, err := h.Slideshows.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return slideshowRepoError(c, err)
	}
	if s.OwnerID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	current, err := h.Slideshows.MembersForUpdateTx(ctx, tx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	fresh := filterNewPhotos(req.PhotoIDs, current)
	if len(fresh) > 0 {
		missing, err := h.Photos.MissingIDs(ctx, fresh)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if len(missing) > 0 {
			return c.JSON(http.StatusNotFound, echo.Map{"error": fmt.Sprintf("photo %d not found", missing[0])})
		}
		start := nextPosition(current)
		added := make([]repository.Member, 0, len(fresh))
		for i, photoID := range fresh {
			added = append(added, repository.Member{PhotoID: photoID, Position: start + i})
		}
		if err := h.Slideshows.InsertMembersTx(ctx, tx, id, added); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "append failed"})
		}
		if err := h.Slideshows.TouchTx(ctx, tx, id); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "append failed"})
		}
		current = append(current, added...)
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true
	return c.JSON(http.StatusOK, toSlideshowResp(s, current))
}

// RemovePhoto handles DELETE /v1/slideshows/:id/photos/:photoID. Remaining
// photos above the removed position shift down by one inside the same
// transaction, keeping positions dense.
func (h *SlideshowHandler) RemovePhoto(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseSlideshowID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slideshow id"})
	}
	photoID, err := strconv.ParseUint(c.Param("photoID"), 10, 64)
	if err != nil || photoID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid photo id"})
	}
	ctx := c.Request().Context()

	tx, err := h.Slideshows.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	s, err := h.Slideshows.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return slideshowRepoError(c, err)
	}
	if s.OwnerID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Slideshows.RemoveMemberTx(ctx, tx, id, photoID); err != nil {
		if err == repository.ErrMemberNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "photo not in slideshow"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove failed"})
	}
	if err := h.Slideshows.TouchTx(ctx, tx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true
	return c.NoContent(http.StatusNoContent)
}

// Reorder handles PUT /v1/slideshows/:id/order. The body must list every
// member exactly once; anything else is rejected and the stored order stays
// untouched. The submitted order becomes positions 0..N-1.
func (h *SlideshowHandler) Reorder(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseSlideshowID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slideshow id"})
	}
	var req reorderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	tx, err := h.Slideshows.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	s, err := h.Slideshows.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return slideshowRepoError(c, err)
	}
	if s.OwnerID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	current, err := h.Slideshows.MembersForUpdateTx(ctx, tx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := validateReorder(current, req.PhotoIDs); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "photo list must contain each slideshow photo exactly once"})
	}
	if err := h.Slideshows.SetPositionsTx(ctx, tx, id, req.PhotoIDs); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reorder failed"})
	}
	if err := h.Slideshows.TouchTx(ctx, tx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reorder failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true
	return c.JSON(http.StatusOK, toSlideshowResp(s, assignPositions(req.PhotoIDs)))
}

func parseSlideshowID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid slideshow id")
	}
	return id, nil
}

func slideshowRepoError(c echo.Context, err error) error {
	switch err {
	case repository.ErrSlideshowNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slideshow not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}
