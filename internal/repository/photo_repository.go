package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Photo mirrors the 'photos' table. Only metadata is stored here; the image
// bytes live in object storage under StorageKey with a smaller rendition
// under ThumbKey.
type Photo struct {
	ID          uint64
	OwnerID     uint64
	Title       string
	Description *string
	StorageKey  string
	ThumbKey    string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PhotoRepo provides persistence for photo metadata.
type PhotoRepo struct{ db *sql.DB }

func NewPhotoRepo(db *sql.DB) *PhotoRepo { return &PhotoRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span photo and slideshow rows.
func (r *PhotoRepo) DB() *sql.DB { return r.db }

// Create inserts a photo metadata row. On success the photo's ID and
// timestamps are populated.
func (r *PhotoRepo) Create(ctx context.Context, p *Photo) error {
	const q = `INSERT INTO photos (owner_id, title, description, storage_key, thumb_key, content_type, size_bytes)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.OwnerID, p.Title, p.Description, p.StorageKey, p.ThumbKey, p.ContentType, p.SizeBytes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM photos WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, p.ID).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// GetByID fetches a single photo. ErrPhotoNotFound is returned when no row
// exists.
func (r *PhotoRepo) GetByID(ctx context.Context, id uint64) (Photo, error) {
	const q = `SELECT id, owner_id, title, description, storage_key, thumb_key, content_type, size_bytes, created_at, updated_at
	           FROM photos WHERE id = ?`
	var p Photo
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.StorageKey, &p.ThumbKey,
		&p.ContentType, &p.SizeBytes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return Photo{}, ErrPhotoNotFound
	}
	return p, err
}

// List returns photos newest first. Every authenticated member may browse
// the full gallery, so no owner filter applies here.
func (r *PhotoRepo) List(ctx context.Context, limit, offset int) ([]Photo, error) {
	const q = `SELECT id, owner_id, title, description, storage_key, thumb_key, content_type, size_bytes, created_at, updated_at
	           FROM photos ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	return r.queryPhotos(ctx, q, limit, offset)
}

// ListByOwner returns the caller's own photos newest first.
func (r *PhotoRepo) ListByOwner(ctx context.Context, ownerID uint64, limit, offset int) ([]Photo, error) {
	const q = `SELECT id, owner_id, title, description, storage_key, thumb_key, content_type, size_bytes, created_at, updated_at
	           FROM photos WHERE owner_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	return r.queryPhotos(ctx, q, ownerID, limit, offset)
}

// ListByTag returns photos carrying the given tag, newest first.
func (r *PhotoRepo) ListByTag(ctx context.Context, tag string, limit, offset int) ([]Photo, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	const q = `SELECT p.id, p.owner_id, p.title, p.description, p.storage_key, p.thumb_key, p.content_type, p.size_bytes, p.created_at, p.updated_at
	           FROM photos p
	           JOIN photo_tags pt ON pt.photo_id = p.id
	           JOIN tags t ON t.id = pt.tag_id
	           WHERE t.name = ?
	           ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`
	return r.queryPhotos(ctx, q, tag, limit, offset)
}

func (r *PhotoRepo) queryPhotos(ctx context.Context, q string, args ...interface{}) ([]Photo, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Photo, 0)
	for rows.Next() {
		var p Photo
		if err := rows.Scan(
			&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.StorageKey, &p.ThumbKey,
			&p.ContentType, &p.SizeBytes, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MissingIDs returns the subset of the given photo ids that do not exist.
// Used by slideshow create/append to reject references to unknown photos
// before any membership row is written.
func (r *PhotoRepo) MissingIDs(ctx context.Context, ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `SELECT id FROM photos WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := make(map[uint64]bool, len(ids))
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var missing []uint64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// DeleteTx removes a photo row within a transaction. Join rows in
// photo_tags and slideshow_photos are removed by the FK cascade; the caller
// is responsible for renumbering affected slideshows beforehand and for
// removing the stored objects after commit.
func (r *PhotoRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPhotoNotFound
	}
	return nil
}
