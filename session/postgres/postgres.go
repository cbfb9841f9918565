// Package postgres implements session.Backend and session.Notifier on
// PostgreSQL. Records live in one key/value table; changes are announced
// with NOTIFY so every process connected to the same database resyncs.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcleod/vocabadmin/session"
)

// DefaultChannel is the NOTIFY channel used for session changes.
const DefaultChannel = "vocabadmin_session_changes"

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the records table if it does not exist. It is safe
// to call on every startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}

// Backend stores session records in the session_records table.
type Backend struct {
	pool *pgxpool.Pool
}

var _ session.Backend = (*Backend)(nil)

// NewBackend returns a Backend over an existing pool. The caller owns the
// pool and must have run EnsureSchema.
func NewBackend(pool *pgxpool.Pool) *Backend {
	return &Backend{pool: pool}
}

// NewBackendFromDSN creates a connection pool from a DSN string, ensures
// the schema exists and returns a new Backend.
func NewBackendFromDSN(ctx context.Context, dsn string) (*Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return NewBackend(pool), nil
}

// Pool returns the underlying connection pool, for sharing with a Notifier.
func (b *Backend) Pool() *pgxpool.Pool {
	return b.pool
}

// Close closes the underlying connection pool.
func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.pool.QueryRow(ctx,
		`SELECT value FROM session_records WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO session_records (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = now()`,
		key, value)
	return err
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	_, err := b.pool.Exec(ctx, `DELETE FROM session_records WHERE key = $1`, key)
	return err
}

// Notifier announces changes with pg_notify and listens on a dedicated
// connection per subscription.
type Notifier struct {
	pool     *pgxpool.Pool
	channel  string
	logger   *slog.Logger
	retryMin time.Duration
	retryMax time.Duration
}

var _ session.Notifier = (*Notifier)(nil)

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithLogger sets the logger for dropped payloads and lost connections.
func WithLogger(logger *slog.Logger) NotifierOption {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// WithRetry bounds the backoff between attempts to re-establish a lost
// LISTEN connection. Defaults: 100ms doubling up to 5s.
func WithRetry(initial, ceiling time.Duration) NotifierOption {
	return func(n *Notifier) {
		n.retryMin, n.retryMax = initial, ceiling
	}
}

// NewNotifier returns a Notifier on channel, or DefaultChannel when empty.
func NewNotifier(pool *pgxpool.Pool, channel string, opts ...NotifierOption) *Notifier {
	if channel == "" {
		channel = DefaultChannel
	}
	n := &Notifier{
		pool:     pool,
		channel:  channel,
		retryMin: 100 * time.Millisecond,
		retryMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	n.logger = n.logger.With("component", "postgres_notifier", "channel", channel)
	return n
}

func (n *Notifier) Publish(ctx context.Context, c session.Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding change: %w", err)
	}
	if _, err := n.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, n.channel, string(payload)); err != nil {
		return fmt.Errorf("publishing change: %w", err)
	}
	return nil
}

// Subscribe holds one connection in LISTEN until ctx is done. A lost
// connection is re-established with backoff; once listening again a change
// for session.StorageKey with no origin is delivered, since anything
// published in between was missed.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan session.Change, error) {
	listener, err := n.listen(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan session.Change, 16)
	go n.run(ctx, listener, out)
	return out, nil
}

// listen takes a connection out of the pool and LISTENs on it. The
// connection carries LISTEN state, so it never goes back to the pool.
func (n *Notifier) listen(ctx context.Context) (*pgx.Conn, error) {
	conn, err := n.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{n.channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listening on %s: %w", n.channel, err)
	}
	return conn.Hijack(), nil
}

func (n *Notifier) run(ctx context.Context, listener *pgx.Conn, out chan<- session.Change) {
	defer close(out)
	defer func() {
		if listener != nil {
			listener.Close(context.Background())
		}
	}()
	for {
		msg, err := listener.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			n.logger.Warn("listen connection lost", "error", err)
			listener.Close(context.Background())
			if listener = n.reconnect(ctx); listener == nil {
				return
			}
			if !deliver(ctx, out, session.Change{Key: session.StorageKey}) {
				return
			}
			continue
		}
		var c session.Change
		if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
			n.logger.Debug("dropping malformed change", "error", err)
			continue
		}
		if !deliver(ctx, out, c) {
			return
		}
	}
}

// reconnect retries listen until it succeeds or ctx is done, in which case
// it returns nil.
func (n *Notifier) reconnect(ctx context.Context) *pgx.Conn {
	delay := n.retryMin
	for {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		listener, err := n.listen(ctx)
		if err == nil {
			n.logger.Info("listening again")
			return listener
		}
		if ctx.Err() != nil {
			return nil
		}
		n.logger.Warn("re-establishing listen connection failed", "retry_in", delay, "error", err)
		delay = min(delay*2, n.retryMax)
	}
}

func deliver(ctx context.Context, out chan<- session.Change, c session.Change) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
