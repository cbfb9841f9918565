// Package redis provides a Redis-backed session.Backend and a pub/sub
// session.Notifier, so several processes can share one session record and
// hear about each other's changes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jmcleod/vocabadmin/session"
)

// DefaultPrefix namespaces keys and channels when no prefix is given.
const DefaultPrefix = "vocabadmin"

// Backend implements session.Backend on plain Redis string keys.
type Backend struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ session.Backend = (*Backend)(nil)

// NewBackend returns a Backend storing keys as "<prefix>:<key>".
func NewBackend(rdb redis.UniversalClient, prefix string) *Backend {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Backend{rdb: rdb, prefix: prefix}
}

func (b *Backend) key(k string) string {
	return b.prefix + ":" + k
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.rdb.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if err := b.rdb.Set(ctx, b.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.rdb.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Notifier implements session.Notifier with Redis PUBLISH/SUBSCRIBE on the
// channel "<prefix>:changes". Payloads are JSON-encoded session.Change values.
type Notifier struct {
	rdb     redis.UniversalClient
	channel string
	logger  *slog.Logger
}

var _ session.Notifier = (*Notifier)(nil)

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithLogger sets the logger for dropped payloads. Default: slog.Default().
func WithLogger(logger *slog.Logger) NotifierOption {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// NewNotifier returns a Notifier on "<prefix>:changes".
func NewNotifier(rdb redis.UniversalClient, prefix string, opts ...NotifierOption) *Notifier {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	n := &Notifier{rdb: rdb, channel: prefix + ":changes"}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	n.logger = n.logger.With("component", "redis_notifier", "channel", n.channel)
	return n
}

// Channel returns the pub/sub channel name.
func (n *Notifier) Channel() string {
	return n.channel
}

func (n *Notifier) Publish(ctx context.Context, c session.Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription to be confirmed before returning, so
// changes published after Subscribe returns are not missed.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan session.Change, error) {
	ps := n.rdb.Subscribe(ctx, n.channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", n.channel, err)
	}

	out := make(chan session.Change, 16)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c session.Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					n.logger.Warn("dropping malformed change", "error", err)
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
