package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when no record exists for a game id.
var ErrNotFound = errors.New("game not found")

// RecordStore loads and saves whole game records. It provides no atomicity of
// its own across a load and a save; callers that mutate hold the game lock.
type RecordStore interface {
	Load(ctx context.Context, gameID string) (*models.GameRecord, error)
	Save(ctx context.Context, gameID string, rec *models.GameRecord) error
	Exists(ctx context.Context, gameID string) (bool, error)
	Delete(ctx context.Context, gameID string) error
}

// RedisRecordStore keeps each record as a single JSON string so a save is one atomic SET.
type RedisRecordStore struct {
	rdb *redis.Client
	log logrus.FieldLogger
}

// NewRecordStore returns a store backed by rdb.
func NewRecordStore(rdb *redis.Client, log logrus.FieldLogger) *RedisRecordStore {
	return &RedisRecordStore{rdb: rdb, log: log}
}

// Load fetches and decodes the record. Records written before multi-player
// seating existed are upgraded in memory; the upgrade is persisted by the next save.
func (s *RedisRecordStore) Load(ctx context.Context, gameID string) (*models.GameRecord, error) {
	raw, err := s.rdb.Get(ctx, recordKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", gameID, err)
	}
	rec, err := DecodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", gameID, err)
	}
	if game.Upgrade(rec) {
		s.log.WithField("game_id", gameID).Debug("upgraded legacy record to multi-player schema")
	}
	return rec, nil
}

// Save overwrites the record.
func (s *RedisRecordStore) Save(ctx context.Context, gameID string, rec *models.GameRecord) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return fmt.Errorf("save game %s: %w", gameID, err)
	}
	if err := s.rdb.Set(ctx, recordKey(gameID), data, 0).Err(); err != nil {
		return fmt.Errorf("save game %s: %w", gameID, err)
	}
	return nil
}

// Exists reports whether a record is stored for gameID.
func (s *RedisRecordStore) Exists(ctx context.Context, gameID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, recordKey(gameID)).Result()
	if err != nil {
		return false, fmt.Errorf("exists game %s: %w", gameID, err)
	}
	return n > 0, nil
}

// Delete removes the record together with the game's lock and sequence keys.
func (s *RedisRecordStore) Delete(ctx context.Context, gameID string) error {
	if err := s.rdb.Del(ctx, GameKeys(gameID)...).Err(); err != nil {
		return fmt.Errorf("delete game %s: %w", gameID, err)
	}
	return nil
}

// EncodeRecord serializes a record in its stored form.
func EncodeRecord(rec *models.GameRecord) ([]byte, error) {
	return json.Marshal(rec)
}

// DecodeRecord parses the stored form. It does not upgrade legacy records.
func DecodeRecord(data []byte) (*models.GameRecord, error) {
	var rec models.GameRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec.Hands == nil {
		rec.Hands = make(map[models.ParticipantID][]models.Card)
	}
	return &rec, nil
}
