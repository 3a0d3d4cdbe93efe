package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type GameViews struct {
	GameURL        string `json:"game_url"`
	TotalViews     int    `json:"total_views"`
	LoggedViews    int    `json:"logged_views"`
	AnonymousViews int    `json:"anonymous_views"`
}

// RecordView inserts one view of gameURL. An empty userID records an
// anonymous view.
func (d *DB) RecordView(ctx context.Context, gameURL, userID string) error {
	var err error
	if userID == "" {
		_, err = d.conn.ExecContext(ctx, `
			INSERT INTO game_views_anonymous (id, game_url) VALUES ($1, $2)
		`, uuid.NewString(), gameURL)
	} else {
		_, err = d.conn.ExecContext(ctx, `
			INSERT INTO game_views_logged (id, game_url, user_id) VALUES ($1, $2, $3)
		`, uuid.NewString(), gameURL, userID)
	}
	if err != nil {
		return fmt.Errorf("recording view: %w", err)
	}
	return nil
}

func (d *DB) GetGameViews(ctx context.Context, gameURL string) (GameViews, error) {
	v := GameViews{GameURL: gameURL}
	err := d.conn.QueryRowContext(ctx, `
		SELECT total_views, logged_views, anonymous_views
		FROM game_stats WHERE game_url = $1
	`, gameURL).Scan(&v.TotalViews, &v.LoggedViews, &v.AnonymousViews)
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrNotFound
	}
	if err != nil {
		return v, fmt.Errorf("getting game views: %w", err)
	}
	return v, nil
}

func (d *DB) ListGameViews(ctx context.Context) ([]GameViews, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT game_url, total_views, logged_views, anonymous_views
		FROM game_stats ORDER BY total_views DESC, game_url
	`)
	if err != nil {
		return nil, fmt.Errorf("listing game views: %w", err)
	}
	defer rows.Close()

	var out []GameViews
	for rows.Next() {
		var v GameViews
		if err := rows.Scan(&v.GameURL, &v.TotalViews, &v.LoggedViews, &v.AnonymousViews); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
