package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Signal is a payload-free "something changed" notice; receivers re-read the record.
type Signal string

// SignalUpdate is published after every committed mutation.
const SignalUpdate Signal = "update"

// ErrSubscriptionClosed is returned by Next once the subscription has been closed.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Notifier publishes and subscribes to per-game change signals over Redis pub/sub.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier returns a notifier backed by rdb.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish announces a committed change to every current subscriber of gameID.
func (n *Notifier) Publish(ctx context.Context, gameID string, sig Signal) error {
	if err := n.rdb.Publish(ctx, channel(gameID), string(sig)).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", gameID, err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so any Publish
// issued after Subscribe returns is guaranteed to be delivered.
func (n *Notifier) Subscribe(ctx context.Context, gameID string) (*Subscription, error) {
	ps := n.rdb.Subscribe(ctx, channel(gameID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", gameID, err)
	}
	return &Subscription{ps: ps, ch: ps.Channel(), done: make(chan struct{})}, nil
}

// Subscription yields signals for one game until closed.
type Subscription struct {
	ps   *redis.PubSub
	ch   <-chan *redis.Message
	once sync.Once
	done chan struct{}
}

// Next blocks for the next signal. It returns ctx.Err() when ctx ends and
// ErrSubscriptionClosed once Close has been called.
func (s *Subscription) Next(ctx context.Context) (Signal, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.done:
		return "", ErrSubscriptionClosed
	case msg, ok := <-s.ch:
		if !ok {
			return "", ErrSubscriptionClosed
		}
		return Signal(msg.Payload), nil
	}
}

// Close unsubscribes and unblocks any pending Next. It is safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
