package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'in_progress',
	player_count INT,
	winner       TEXT,
	start_time   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS game_actions (
	id             UUID PRIMARY KEY,
	game_id        TEXT NOT NULL REFERENCES games (id) ON DELETE CASCADE,
	action_index   BIGINT NOT NULL,
	actor          TEXT NOT NULL DEFAULT '',
	action_type    TEXT NOT NULL,
	action_payload JSONB,
	created_at     TIMESTAMPTZ NOT NULL,
	UNIQUE (game_id, action_index)
);
`

// EnsureSchema creates the history tables if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
