package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

type Profile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	TotalPoints int       `json:"total_points"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (d *DB) GetProfile(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	err := d.conn.QueryRowContext(ctx, `
		SELECT id, username, email, total_points, created_at, updated_at
		FROM profiles WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&p.ID, &p.Username, &p.Email, &p.TotalPoints, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return &p, nil
}

// EnsureProfile creates the profile row if it does not exist and returns it.
// A soft-deleted profile is not revived.
func (d *DB) EnsureProfile(ctx context.Context, id, username, email string) (*Profile, error) {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO profiles (id, username, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, id, username, email)
	if err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	return d.GetProfile(ctx, id)
}

// AddPoints atomically adds delta to the profile total and returns the new
// total. The total stays within [0, math.MaxInt32].
func (d *DB) AddPoints(ctx context.Context, id string, delta int) (int, error) {
	delta = min(max(delta, -math.MaxInt32), math.MaxInt32)
	var total sql.NullInt64
	err := d.conn.QueryRowContext(ctx, `SELECT update_user_points($1, $2)`, id, delta).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("updating points: %w", err)
	}
	if !total.Valid {
		return 0, ErrNotFound
	}
	return int(total.Int64), nil
}

func (d *DB) DeleteProfile(ctx context.Context, id string) error {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE profiles SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
