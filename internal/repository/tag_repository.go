package repository

import (
	"context"
	"database/sql"
	"strings"
)

// TagRepo manages the tags table and the photo_tags join table. Tag names
// are stored normalized (trimmed, lower case) so lookups are exact matches.
type TagRepo struct{ db *sql.DB }

func NewTagRepo(db *sql.DB) *TagRepo { return &TagRepo{db: db} }

// NormalizeTag returns the canonical form of a tag name, or "" when the
// input contains nothing usable.
func NormalizeTag(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// AddToPhoto attaches the given tag names to a photo, creating tag rows as
// needed. Names already attached are skipped via INSERT IGNORE so the call
// is idempotent.
func (r *TagRepo) AddToPhoto(ctx context.Context, photoID uint64, names []string) error {
	for _, raw := range names {
		name := NormalizeTag(raw)
		if name == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx,
			`INSERT IGNORE INTO tags (name) VALUES (?)`, name); err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx,
			`INSERT IGNORE INTO photo_tags (photo_id, tag_id)
			 SELECT ?, id FROM tags WHERE name = ?`, photoID, name); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFromPhoto detaches a tag from a photo. sql.ErrNoRows is returned
// when the photo did not carry the tag.
func (r *TagRepo) RemoveFromPhoto(ctx context.Context, photoID uint64, name string) error {
	name = NormalizeTag(name)
	res, err := r.db.ExecContext(ctx,
		`DELETE pt FROM photo_tags pt
		 JOIN tags t ON t.id = pt.tag_id
		 WHERE pt.photo_id = ? AND t.name = ?`, photoID, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ForPhoto returns the photo's tag names sorted alphabetically.
func (r *TagRepo) ForPhoto(ctx context.Context, photoID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.name FROM tags t
		 JOIN photo_tags pt ON pt.tag_id = t.id
		 WHERE pt.photo_id = ? ORDER BY t.name`, photoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := make([]string, 0)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// ForPhotos returns tag names for a batch of photos in a single query,
// keyed by photo id. Photos without tags are absent from the map.
func (r *TagRepo) ForPhotos(ctx context.Context, photoIDs []uint64) (map[uint64][]string, error) {
	out := make(map[uint64][]string)
	if len(photoIDs) == 0 {
		return out, nil
	}
	placeholders := make([]string, 0, len(photoIDs))
	args := make([]interface{}, 0, len(photoIDs))
	for _, id := range photoIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `SELECT pt.photo_id, t.name FROM photo_tags pt
	      JOIN tags t ON t.id = pt.tag_id
	      WHERE pt.photo_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY pt.photo_id, t.name`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}
