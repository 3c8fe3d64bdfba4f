// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/uno/internal/cache"
)

// Game statuses stored in games.status.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

// ErrGameNotFound is returned when no history exists for a game.
var ErrGameNotFound = errors.New("game has no history")

// GameRow is one row of the games table.
type GameRow struct {
	ID          string
	Status      string
	PlayerCount *int
	Winner      *string
	StartTime   time.Time
	EndTime     *time.Time
}

// HistoryStore persists game history to Postgres.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore wraps an open pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// SaveActions writes a batch of action records in a single transaction.
// Re-delivered records (same game and index) are ignored.
func (s *HistoryStore) SaveActions(ctx context.Context, records []cache.GameActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertGameActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %d of game %s: %w", rec.ActionIndex, rec.GameID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx save actions: %w", err)
	}
	return nil
}

// insertGameActionTx inserts a single action record into the game_actions table and
// upserts the game row if necessary. If the action ends the game, finalizes the game.
func insertGameActionTx(ctx context.Context, tx pgx.Tx, rec cache.GameActionRecord) error {
	upsertGameQ := `
		INSERT INTO games (id, status, start_time)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID); err != nil {
		return err
	}

	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO game_actions (
			id, game_id, action_index, actor, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.ID, rec.GameID, rec.ActionIndex, rec.Actor, rec.ActionType, jsonPayload,
		time.UnixMilli(rec.Timestamp),
	)
	if err != nil {
		return err
	}

	switch rec.ActionType {
	case cache.HistoryGameStart:
		if players, ok := rec.ActionPayload["players"].([]interface{}); ok {
			if _, err := tx.Exec(ctx, `UPDATE games SET player_count = $2 WHERE id = $1`, rec.GameID, len(players)); err != nil {
				return err
			}
		}
	case cache.HistoryGameEnd:
		winner, _ := rec.ActionPayload["winner"].(string)
		finalizeQ := `
			UPDATE games
			SET status = 'completed', winner = $2, end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.GameID, winner); err != nil {
			return err
		}
	}
	return nil
}

// MarkAbandoned marks a game as 'abandoned' if it was still 'in_progress'.
// It reports whether a row changed.
func (s *HistoryStore) MarkAbandoned(ctx context.Context, gameID string) (bool, error) {
	q := `
		UPDATE games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	tag, err := s.pool.Exec(ctx, q, gameID)
	if err != nil {
		return false, fmt.Errorf("mark game %s abandoned: %w", gameID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetGame loads the games row for gameID.
func (s *HistoryStore) GetGame(ctx context.Context, gameID string) (*GameRow, error) {
	q := `SELECT id, status, player_count, winner, start_time, end_time FROM games WHERE id = $1`
	var g GameRow
	err := s.pool.QueryRow(ctx, q, gameID).Scan(&g.ID, &g.Status, &g.PlayerCount, &g.Winner, &g.StartTime, &g.EndTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game %s: %w", gameID, err)
	}
	return &g, nil
}

// ListActions returns a game's recorded actions in commit order.
func (s *HistoryStore) ListActions(ctx context.Context, gameID string) ([]cache.GameActionRecord, error) {
	q := `
		SELECT id, game_id, action_index, actor, action_type, action_payload, created_at
		FROM game_actions
		WHERE game_id = $1
		ORDER BY action_index
	`
	rows, err := s.pool.Query(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("list actions of %s: %w", gameID, err)
	}
	defer rows.Close()

	var out []cache.GameActionRecord
	for rows.Next() {
		var (
			rec       cache.GameActionRecord
			payload   []byte
			createdAt time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.GameID, &rec.ActionIndex, &rec.Actor, &rec.ActionType, &payload, &createdAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &rec.ActionPayload); err != nil {
				return nil, fmt.Errorf("decode payload of action %d: %w", rec.ActionIndex, err)
			}
		}
		rec.Timestamp = createdAt.UnixMilli()
		out = append(out, rec)
	}
	return out, rows.Err()
}
