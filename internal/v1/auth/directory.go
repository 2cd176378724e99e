package auth

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGDirectory resolves display names from the users table.
type PGDirectory struct {
	pool *pgxpool.Pool
}

// NewPGDirectory wraps an existing pool. The pool's lifecycle belongs to
// the caller.
func NewPGDirectory(pool *pgxpool.Pool) *PGDirectory {
	return &PGDirectory{pool: pool}
}

// DisplayName returns the stored display name for a user id.
func (d *PGDirectory) DisplayName(ctx context.Context, userID string) (string, error) {
	var name string
	err := d.pool.QueryRow(ctx,
		`SELECT display_name FROM users WHERE id = $1`, userID).Scan(&name)
	if err != nil {
		return "", err
	}
	return name, nil
}
