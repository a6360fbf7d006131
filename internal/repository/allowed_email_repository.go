package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// AllowedEmail mirrors the 'allowed_emails' table. Registration is gated on
// membership in this table; admins curate it. Removing an address only
// blocks future registrations, it never deactivates an existing account.
type AllowedEmail struct {
	ID        uint64
	Email     string
	AddedBy   uint64
	CreatedAt time.Time
}

// AllowedEmailRepo provides CRUD operations for the registration allow list.
type AllowedEmailRepo struct{ DB *sql.DB }

func NewAllowedEmailRepo(db *sql.DB) *AllowedEmailRepo { return &AllowedEmailRepo{DB: db} }

// IsAllowed reports whether the normalized email may register.
func (r *AllowedEmailRepo) IsAllowed(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM allowed_emails WHERE email=? LIMIT 1", email).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Add inserts an email into the allow list. Adding an address that is
// already present is a no-op rather than an error so admins can re-approve
// freely.
func (r *AllowedEmailRepo) Add(ctx context.Context, email string, addedBy uint64) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO allowed_emails (email, added_by) VALUES (?,?)",
		email, addedBy)
	return err
}

// Remove deletes an email from the allow list. It returns sql.ErrNoRows when
// the address was not present.
func (r *AllowedEmailRepo) Remove(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx, "DELETE FROM allowed_emails WHERE email=?", email)
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

// List returns the full allow list ordered by insertion time descending.
func (r *AllowedEmailRepo) List(ctx context.Context) ([]AllowedEmail, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, email, added_by, created_at FROM allowed_emails ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]AllowedEmail, 0)
	for rows.Next() {
		var a AllowedEmail
		if err := rows.Scan(&a.ID, &a.Email, &a.AddedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
