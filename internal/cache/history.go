package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for game action logs.
var DefaultQueueName = "uno_actions"

// Action types written to the history queue.
const (
	HistoryGameStart = "game_start"
	HistoryPlay      = "action_play"
	HistoryDraw      = "action_draw"
	HistoryGameEnd   = "game_end"
)

// GameActionRecord holds the minimal info needed by the historian service.
type GameActionRecord struct {
	ID            uuid.UUID              `json:"id"`
	GameID        string                 `json:"game_id"`
	ActionIndex   int64                  `json:"action_index"`
	Actor         string                 `json:"actor"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// HistoryQueue pushes committed actions to a Redis list for asynchronous persistence.
type HistoryQueue struct {
	rdb   *redis.Client
	queue string
}

// NewHistoryQueue returns a queue writing to the named Redis list.
func NewHistoryQueue(rdb *redis.Client, queue string) *HistoryQueue {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &HistoryQueue{rdb: rdb, queue: queue}
}

// Push numbers the record within its game, serializes it to JSON and appends it to the queue.
// This does not block the calling logic (other than a quick network send).
func (q *HistoryQueue) Push(ctx context.Context, record GameActionRecord) error {
	idx, err := q.rdb.Incr(ctx, seqKey(record.GameID)).Result()
	if err != nil {
		return fmt.Errorf("failed to number action for %s: %w", record.GameID, err)
	}
	record.ActionIndex = idx
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Timestamp == 0 {
		record.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameActionRecord: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}

// Pop waits up to timeout for the next record. It returns (nil, nil) when the wait times out.
func (q *HistoryQueue) Pop(ctx context.Context, timeout time.Duration) (*GameActionRecord, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", q.queue, err)
	}
	if len(res) < 2 {
		return nil, nil
	}
	// res[0] is the queue name and res[1] the payload.
	var record GameActionRecord
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return nil, fmt.Errorf("invalid action record: %w", err)
	}
	return &record, nil
}
