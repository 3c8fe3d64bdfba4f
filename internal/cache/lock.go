package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned when the game lock stays contended for the whole retry budget.
var ErrBusy = errors.New("game is busy")

// Token proves ownership of an acquired lock.
type Token string

const (
	minBackoff = 5 * time.Millisecond
	maxBackoff = 100 * time.Millisecond
)

// releaseScript deletes the lock only if it still carries our token, so a holder
// whose TTL lapsed cannot remove a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is an advisory, expiring, per-game mutual exclusion lock. It only
// protects callers that honor it.
type Locker struct {
	rdb  *redis.Client
	ttl  time.Duration
	wait time.Duration
}

// NewLocker returns a lock manager. ttl must comfortably exceed a full
// load-mutate-save cycle; wait bounds how long Acquire spins before ErrBusy.
func NewLocker(rdb *redis.Client, ttl, wait time.Duration) *Locker {
	return &Locker{rdb: rdb, ttl: ttl, wait: wait}
}

// TryAcquire makes a single SET NX attempt.
func (l *Locker) TryAcquire(ctx context.Context, gameID string) (Token, error) {
	token := Token(uuid.NewString())
	ok, err := l.rdb.SetNX(ctx, lockKey(gameID), string(token), l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lock for %s: %w", gameID, err)
	}
	if !ok {
		return "", ErrBusy
	}
	return token, nil
}

// Acquire retries TryAcquire with capped exponential backoff until it succeeds,
// the wait budget is spent (ErrBusy) or ctx ends.
func (l *Locker) Acquire(ctx context.Context, gameID string) (Token, error) {
	deadline := time.Now().Add(l.wait)
	backoff := minBackoff
	for {
		token, err := l.TryAcquire(ctx, gameID)
		if !errors.Is(err, ErrBusy) {
			return token, err
		}
		if !time.Now().Add(backoff).Before(deadline) {
			return "", ErrBusy
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// Release drops the lock if token still owns it. Releasing a lock that already
// expired is not an error.
func (l *Locker) Release(ctx context.Context, gameID string, token Token) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{lockKey(gameID)}, string(token)).Err(); err != nil {
		return fmt.Errorf("release lock for %s: %w", gameID, err)
	}
	return nil
}

// WithLock runs fn while holding the game lock and releases it on every exit
// path, including a panic inside fn. Release uses a fresh context so a
// cancelled caller still frees the lock.
func (l *Locker) WithLock(ctx context.Context, gameID string, fn func(ctx context.Context) error) (err error) {
	token, err := l.Acquire(ctx, gameID)
	if err != nil {
		return err
	}
	defer func() {
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if relErr := l.Release(relCtx, gameID, token); relErr != nil && err == nil {
			err = relErr
		}
	}()
	return fn(ctx)
}
