package postgres

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/vocabadmin/auth"
	"github.com/jmcleod/vocabadmin/session"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("VOCABADMIN_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VOCABADMIN_TEST_POSTGRES_DSN not set; skipping PostgreSQL tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, EnsureSchema(ctx, pool))

	// Clean the table for test isolation.
	pool.Exec(ctx, "DELETE FROM session_records") //nolint:errcheck
	t.Cleanup(func() {
		pool.Exec(ctx, "DELETE FROM session_records") //nolint:errcheck
		pool.Close()
	})
	return pool
}

func TestBackend(t *testing.T) {
	b := NewBackend(newTestPool(t))
	ctx := t.Context()

	_, err := b.Get(ctx, session.StorageKey)
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, b.Put(ctx, session.StorageKey, []byte(`{"name":"a","email":"a@example.com"}`)))
	require.NoError(t, b.Put(ctx, session.StorageKey, []byte(`{"name":"b","email":"b@example.com"}`)))
	got, err := b.Get(ctx, session.StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"b","email":"b@example.com"}`, string(got))

	require.NoError(t, b.Delete(ctx, session.StorageKey))
	require.NoError(t, b.Delete(ctx, session.StorageKey))
	_, err = b.Get(ctx, session.StorageKey)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestNotifier(t *testing.T) {
	pool := newTestPool(t)
	n := NewNotifier(pool, "")
	assert.Equal(t, DefaultChannel, n.channel)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	changes, err := n.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, n.Publish(t.Context(), session.Change{Key: session.StorageKey, Origin: "cli"}))
	select {
	case c := <-changes:
		assert.Equal(t, session.Change{Key: session.StorageKey, Origin: "cli"}, c)
	case <-time.After(5 * time.Second):
		t.Fatal("no change received")
	}

	cancel()
	for range changes {
	}
}

func TestStoreAcrossParticipants(t *testing.T) {
	pool := newTestPool(t)
	quiet := slog.New(slog.DiscardHandler)
	writer := session.NewStore(NewBackend(pool), session.WithNotifier(NewNotifier(pool, "")), session.WithLogger(quiet))
	reader := session.NewStore(NewBackend(pool), session.WithLogger(quiet))

	require.NoError(t, writer.Write(t.Context(), session.Session{Name: "Lin Qian", Email: "linqian@example.com"}))
	got := reader.Read(t.Context())
	require.NotNil(t, got)
	assert.Equal(t, "linqian@example.com", got.Email)
}

// terminateListeners kills every other backend currently LISTENing on
// channel, as a server restart or dropped connection would.
func terminateListeners(t *testing.T, pool *pgxpool.Pool, channel string) {
	t.Helper()
	var killed int
	require.NoError(t, pool.QueryRow(t.Context(),
		`SELECT count(pg_terminate_backend(pid)) FROM pg_stat_activity
		 WHERE query = $1 AND pid <> pg_backend_pid()`,
		"LISTEN "+pgx.Identifier{channel}.Sanitize()).Scan(&killed))
	require.Positive(t, killed)
}

func TestNotifierReconnectsAfterLostConnection(t *testing.T) {
	pool := newTestPool(t)
	const channel = "vocabadmin_test_reconnect"
	n := NewNotifier(pool, channel,
		WithLogger(slog.New(slog.DiscardHandler)),
		WithRetry(10*time.Millisecond, 100*time.Millisecond))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	changes, err := n.Subscribe(ctx)
	require.NoError(t, err)

	terminateListeners(t, pool, channel)

	// Listening again is announced as a change to resync on.
	select {
	case c, ok := <-changes:
		require.True(t, ok, "change stream closed after lost connection")
		assert.Equal(t, session.Change{Key: session.StorageKey}, c)
	case <-time.After(5 * time.Second):
		t.Fatal("notifier did not reconnect")
	}

	require.NoError(t, n.Publish(t.Context(), session.Change{Key: session.StorageKey, Origin: "cli"}))
	select {
	case c := <-changes:
		assert.Equal(t, "cli", c.Origin)
	case <-time.After(5 * time.Second):
		t.Fatal("no change received after reconnect")
	}
}

func TestStateResyncsAfterLostConnection(t *testing.T) {
	pool := newTestPool(t)
	const channel = "vocabadmin_test_resync"
	quiet := slog.New(slog.DiscardHandler)
	notifier := func() *Notifier {
		return NewNotifier(pool, channel, WithLogger(quiet), WithRetry(10*time.Millisecond, 100*time.Millisecond))
	}

	reader := auth.New(
		session.NewStore(NewBackend(pool), session.WithNotifier(notifier()), session.WithOrigin("reader"), session.WithLogger(quiet)),
		auth.WithLogger(quiet))
	t.Cleanup(reader.Unmount)
	require.NoError(t, reader.Mount(t.Context()))
	require.Equal(t, auth.StatusUnauthenticated, reader.Status())

	terminateListeners(t, pool, channel)

	writer := session.NewStore(NewBackend(pool), session.WithNotifier(notifier()), session.WithOrigin("writer"), session.WithLogger(quiet))
	require.NoError(t, writer.Write(t.Context(), session.Session{Name: "Lin Qian", Email: "linqian@example.com"}))

	assert.Eventually(t, func() bool {
		return reader.Status() == auth.StatusAuthenticated
	}, 5*time.Second, 20*time.Millisecond)
}
