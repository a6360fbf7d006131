package repository

import (
	"context"
	"database/sql"
	"time"
)

// Slideshow mirrors the 'slideshows' table. A slideshow is an ordered,
// owner-curated collection of photos; IsPublic opens read access to every
// authenticated member while mutations stay owner-only.
type Slideshow struct {
	ID          uint64
	OwnerID     uint64
	Title       string
	Description *string
	IsPublic    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Member mirrors one row of the 'slideshow_photos' table: a photo's
// inclusion in a slideshow at a display position. For a slideshow with N
// members the positions are kept dense, exactly {0..N-1}, after every
// committed transaction.
type Member struct {
	PhotoID  uint64
	Position int
}

// SlideshowSummary extends a slideshow with the data list endpoints need
// without loading full membership.
type SlideshowSummary struct {
	Slideshow
	PhotoCount int
}

// SlideshowRepo provides persistence for slideshows and their membership
// rows. Mutating operations run inside caller-managed transactions via the
// ...Tx methods; membership rows are locked with FOR UPDATE before any
// renumbering so concurrent writers of the same slideshow serialize instead
// of interleaving into gapped or duplicated positions.
type SlideshowRepo struct{ db *sql.DB }

func NewSlideshowRepo(db *sql.DB) *SlideshowRepo { return &SlideshowRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *SlideshowRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new slideshow within the scope of an existing
// transaction and populates the generated ID and timestamps. The caller must
// commit or rollback.
func (r *SlideshowRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *Slideshow) error {
	const q = `INSERT INTO slideshows (owner_id, title, description, is_public) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.OwnerID, s.Title, s.Description, s.IsPublic)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM slideshows WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, s.ID).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// GetByID fetches a slideshow without locking. ErrSlideshowNotFound is
// returned when no row exists.
func (r *SlideshowRepo) GetByID(ctx context.Context, id uint64) (Slideshow, error) {
	const q = `SELECT id, owner_id, title, description, is_public, created_at, updated_at
	           FROM slideshows WHERE id = ?`
	var s Slideshow
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.OwnerID, &s.Title, &s.Description, &s.IsPublic, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return Slideshow{}, ErrSlideshowNotFound
	}
	return s, err
}

// GetForUpdateTx fetches a slideshow and locks its row for the duration of
// the transaction. Every membership mutation starts here so that two
// operations on the same slideshow cannot renumber concurrently.
func (r *SlideshowRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (Slideshow, error) {
	const q = `SELECT id, owner_id, title, description, is_public, created_at, updated_at
	           FROM slideshows WHERE id = ? FOR UPDATE`
	var s Slideshow
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.OwnerID, &s.Title, &s.Description, &s.IsPublic, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return Slideshow{}, ErrSlideshowNotFound
	}
	return s, err
}

// Members returns the slideshow's membership ordered by position.
func (r *SlideshowRepo) Members(ctx context.Context, id uint64) ([]Member, error) {
	const q = `SELECT photo_id, position FROM slideshow_photos WHERE slideshow_id = ? ORDER BY position`
	return r.scanMembers(r.db.QueryContext(ctx, q, id))
}

// MembersForUpdateTx returns the membership ordered by position while
// holding row locks inside the transaction.
func (r *SlideshowRepo) MembersForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) ([]Member, error) {
	const q = `SELECT photo_id, position FROM slideshow_photos WHERE slideshow_id = ? ORDER BY position FOR UPDATE`
	return r.scanMembers(tx.QueryContext(ctx, q, id))
}

func (r *SlideshowRepo) scanMembers(rows *sql.Rows, err error) ([]Member, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := make([]Member, 0)
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.PhotoID, &m.Position); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// InsertMembersTx inserts membership rows in a single statement. Passing an
// empty slice has no effect and returns nil. Position values are supplied by
// the caller, which is responsible for keeping them dense.
func (r *SlideshowRepo) InsertMembersTx(ctx context.Context, tx *sql.Tx, slideshowID uint64, members []Member) error {
	if len(members) == 0 {
		return nil
	}
	query := `INSERT INTO slideshow_photos (slideshow_id, photo_id, position) VALUES `
	args := make([]interface{}, 0, len(members)*3)
	for i, m := range members {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, slideshowID, m.PhotoID, m.Position)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// RemoveMemberTx deletes one membership row and closes the gap it leaves:
// every remaining member whose position exceeded the removed one is shifted
// down by exactly one. It returns ErrMemberNotFound when the photo is not
// part of the slideshow. The caller holds the slideshow row lock.
func (r *SlideshowRepo) RemoveMemberTx(ctx context.Context, tx *sql.Tx, slideshowID, photoID uint64) error {
	var pos int
	err := tx.QueryRowContext(ctx,
		`SELECT position FROM slideshow_photos WHERE slideshow_id = ? AND photo_id = ? FOR UPDATE`,
		slideshowID, photoID).Scan(&pos)
	if err == sql.ErrNoRows {
		return ErrMemberNotFound
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM slideshow_photos WHERE slideshow_id = ? AND photo_id = ?`,
		slideshowID, photoID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE slideshow_photos SET position = position - 1 WHERE slideshow_id = ? AND position > ?`,
		slideshowID, pos)
	return err
}

// SetPositionsTx rewrites every member's position to its index in the given
// list. The caller has already verified that the list is an exact
// permutation of the current member set, so the result is dense by
// construction.
func (r *SlideshowRepo) SetPositionsTx(ctx context.Context, tx *sql.Tx, slideshowID uint64, orderedPhotoIDs []uint64) error {
	const q = `UPDATE slideshow_photos SET position = ? WHERE slideshow_id = ? AND photo_id = ?`
	for i, photoID := range orderedPhotoIDs {
		if _, err := tx.ExecContext(ctx, q, i, slideshowID, photoID); err != nil {
			return err
		}
	}
	return nil
}

// TouchTx bumps the slideshow's last-modified timestamp inside the
// transaction that mutated its membership.
func (r *SlideshowRepo) TouchTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `UPDATE slideshows SET updated_at = NOW() WHERE id = ?`, id)
	return err
}

// UpdateMeta edits title, description and visibility. Ownership is enforced
// in the statement itself; a zero row count is disambiguated into
// ErrSlideshowNotFound or ErrForbidden by a follow-up existence probe.
func (r *SlideshowRepo) UpdateMeta(ctx context.Context, id, ownerID uint64, title string, description *string, isPublic bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE slideshows SET title = ?, description = ?, is_public = ?, updated_at = NOW()
		 WHERE id = ? AND owner_id = ?`,
		title, description, isPublic, id, ownerID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n > 0 {
		return nil
	}
	// Either the slideshow is gone or it belongs to someone else. An update
	// that changes nothing also reports zero rows, so probe before failing.
	var actualOwner uint64
	err = r.db.QueryRowContext(ctx, `SELECT owner_id FROM slideshows WHERE id = ?`, id).Scan(&actualOwner)
	if err == sql.ErrNoRows {
		return ErrSlideshowNotFound
	}
	if err != nil {
		return err
	}
	if actualOwner != ownerID {
		return ErrForbidden
	}
	return nil
}

// Delete removes a slideshow owned by the caller; membership rows go with it
// via the FK cascade. ErrSlideshowNotFound / ErrForbidden mirror UpdateMeta.
func (r *SlideshowRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	var actualOwner uint64
	err := r.db.QueryRowContext(ctx, `SELECT owner_id FROM slideshows WHERE id = ?`, id).Scan(&actualOwner)
	if err == sql.ErrNoRows {
		return ErrSlideshowNotFound
	}
	if err != nil {
		return err
	}
	if actualOwner != ownerID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM slideshows WHERE id = ? AND owner_id = ?`, id, ownerID)
	return err
}

// ListByOwner returns the caller's slideshows with member counts, newest
// first.
func (r *SlideshowRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]SlideshowSummary, error) {
	const q = `SELECT s.id, s.owner_id, s.title, s.description, s.is_public, s.created_at, s.updated_at,
	                  COUNT(sp.photo_id)
	           FROM slideshows s
	           LEFT JOIN slideshow_photos sp ON sp.slideshow_id = s.id
	           WHERE s.owner_id = ?
	           GROUP BY s.id
	           ORDER BY s.created_at DESC, s.id DESC`
	return r.querySummaries(ctx, q, ownerID)
}

// ListPublic returns public slideshows with member counts, newest first.
func (r *SlideshowRepo) ListPublic(ctx context.Context, limit, offset int) ([]SlideshowSummary, error) {
	const q = `SELECT s.id, s.owner_id, s.title, s.description, s.is_public, s.created_at, s.updated_at,
	                  COUNT(sp.photo_id)
	           FROM slideshows s
	           LEFT JOIN slideshow_photos sp ON sp.slideshow_id = s.id
	           WHERE s.is_public = 1
	           GROUP BY s.id
	           ORDER BY s.created_at DESC, s.id DESC
	           LIMIT ? OFFSET ?`
	return r.querySummaries(ctx, q, limit, offset)
}

func (r *SlideshowRepo) querySummaries(ctx context.Context, q string, args ...interface{}) ([]SlideshowSummary, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SlideshowSummary, 0)
	for rows.Next() {
		var s SlideshowSummary
		if err := rows.Scan(
			&s.ID, &s.OwnerID, &s.Title, &s.Description, &s.IsPublic,
			&s.CreatedAt, &s.UpdatedAt, &s.PhotoCount,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RemovePhotoEverywhereTx deletes every membership row that references the
// given photo and closes each gap, keeping every affected slideshow dense
// within the same transaction that deletes the photo itself. It returns the
// ids of the slideshows that were touched.
func (r *SlideshowRepo) RemovePhotoEverywhereTx(ctx context.Context, tx *sql.Tx, photoID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT slideshow_id, position FROM slideshow_photos WHERE photo_id = ? FOR UPDATE`, photoID)
	if err != nil {
		return nil, err
	}
	type hit struct {
		slideshowID uint64
		position    int
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.slideshowID, &h.position); err != nil {
			rows.Close()
			return nil, err
		}
		hits = append(hits, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM slideshow_photos WHERE photo_id = ?`, photoID); err != nil {
		return nil, err
	}
	affected := make([]uint64, 0, len(hits))
	for _, h := range hits {
		if _, err := tx.ExecContext(ctx,
			`UPDATE slideshow_photos SET position = position - 1 WHERE slideshow_id = ? AND position > ?`,
			h.slideshowID, h.position); err != nil {
			return nil, err
		}
		if err := r.TouchTx(ctx, tx, h.slideshowID); err != nil {
			return nil, err
		}
		affected = append(affected, h.slideshowID)
	}
	return affected, nil
}
