// Package historian drains the action history queue into durable storage and
// marks games that stop receiving actions as abandoned.
package historian

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Queue is the source of action records.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) (*cache.GameActionRecord, error)
}

// Sink persists action records.
type Sink interface {
	SaveActions(ctx context.Context, records []cache.GameActionRecord) error
	MarkAbandoned(ctx context.Context, gameID string) (bool, error)
}

// Config tunes batching and inactivity detection.
type Config struct {
	BatchSize     int
	FlushDelay    time.Duration
	Inactivity    time.Duration // duration until a game is marked "abandoned"
	PopTimeout    time.Duration
	SweepInterval time.Duration
	RetryDelay    time.Duration // pause after a failed pop
}

// ConfigFromEnv reads HISTORIAN_BATCH_SIZE, HISTORIAN_FLUSH_MS and
// GAME_INACTIVITY_TIMEOUT_SEC.
func ConfigFromEnv() Config {
	return Config{
		BatchSize:     getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay:    time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		Inactivity:    time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
		PopTimeout:    3 * time.Second,
		SweepInterval: time.Minute,
		RetryDelay:    time.Second,
	}
}

// Service encapsulates the queue + DB logic for capturing game actions
// and marking games abandoned when the inactivity threshold is reached.
type Service struct {
	queue Queue
	sink  Sink
	cfg   Config
	log   logrus.FieldLogger

	lastActivity sync.Map // game ID -> time.Time of its latest action

	batchMu   sync.Mutex
	batch     []cache.GameActionRecord
	lastFlush time.Time
}

// NewService builds a historian.
func NewService(queue Queue, sink Sink, cfg Config, log logrus.FieldLogger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 3 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Service{
		queue:     queue,
		sink:      sink,
		cfg:       cfg,
		log:       log,
		batch:     make([]cache.GameActionRecord, 0, cfg.BatchSize),
		lastFlush: time.Now(),
	}
}

// Run reads the queue and sweeps for idle games until ctx ends. Whatever is
// still batched is flushed before Run returns.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("historian service started")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.inactivityLoop(gctx) })
	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.log.Info("historian shutting down")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readLoop pops records, batches them and flushes on size or age.
func (s *Service) readLoop(ctx context.Context) error {
	for {
		rec, err := s.queue.Pop(ctx, s.cfg.PopTimeout)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.log.WithError(err).Error("failed to pop action")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.RetryDelay):
			}
			continue
		}
		if rec != nil {
			s.track(*rec)
			s.appendToBatch(ctx, *rec)
		}
		s.flushIfStale(ctx)
	}
}

func (s *Service) track(rec cache.GameActionRecord) {
	if rec.ActionType == cache.HistoryGameEnd {
		s.lastActivity.Delete(rec.GameID)
		return
	}
	s.lastActivity.Store(rec.GameID, time.Now())
}

// appendToBatch adds a record to the in-memory batch and flushes if the threshold is reached.
func (s *Service) appendToBatch(ctx context.Context, rec cache.GameActionRecord) {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

func (s *Service) flushIfStale(ctx context.Context) {
	s.batchMu.Lock()
	stale := len(s.batch) > 0 && time.Since(s.lastFlush) >= s.cfg.FlushDelay
	s.batchMu.Unlock()
	if stale {
		s.Flush(ctx)
	}
}

// Flush writes the current batch to the sink. A failed batch is put back so
// the next flush retries it.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	s.lastFlush = time.Now()
	if len(s.batch) == 0 {
		return
	}
	pending := make([]cache.GameActionRecord, len(s.batch))
	copy(pending, s.batch)

	if err := s.sink.SaveActions(ctx, pending); err != nil {
		s.log.WithError(err).WithField("count", len(pending)).Error("failed to flush actions")
		return
	}
	s.batch = s.batch[:0]
	s.log.WithField("count", len(pending)).Debug("flushed actions")
}

// inactivityLoop periodically marks games idle longer than the threshold as abandoned.
func (s *Service) inactivityLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx, time.Now())
		}
	}
}

func (s *Service) sweep(ctx context.Context, now time.Time) {
	s.lastActivity.Range(func(key, val interface{}) bool {
		gameID, ok1 := key.(string)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.cfg.Inactivity {
			return true
		}
		// Actions of this game may still be batched; persist them first so the
		// games row exists.
		s.Flush(ctx)
		changed, err := s.sink.MarkAbandoned(ctx, gameID)
		if err != nil {
			s.log.WithError(err).WithField("game_id", gameID).Error("failed to mark game abandoned")
			return true
		}
		s.lastActivity.Delete(gameID)
		if changed {
			s.log.WithField("game_id", gameID).Info("marked game abandoned due to inactivity")
		}
		return true
	})
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}
