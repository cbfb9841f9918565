package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.etcd.io/bbolt"

	"github.com/jmcleod/vocabadmin/session"
	sessionbbolt "github.com/jmcleod/vocabadmin/session/bbolt"
	"github.com/jmcleod/vocabadmin/session/memory"
	sessionpostgres "github.com/jmcleod/vocabadmin/session/postgres"
	sessionredis "github.com/jmcleod/vocabadmin/session/redis"
)

const (
	storeBbolt    = "bbolt"
	storeRedis    = "redis"
	storePostgres = "postgres"
	storeMemory   = "memory"
	storeNone     = "none"
)

// storeConfig selects and locates the durable session store.
type storeConfig struct {
	Kind        string
	DataDir     string
	RedisAddr   string
	RedisPrefix string
	PostgresDSN string
}

func currentStoreConfig() storeConfig {
	return storeConfig{
		Kind:        storeKind,
		DataDir:     dataDir,
		RedisAddr:   redisAddr,
		RedisPrefix: redisPrefix,
		PostgresDSN: postgresDSN,
	}
}

// openStore builds the session store described by cfg. The returned close
// function releases the backend and is never nil.
//
// A bbolt file is locked by one process at a time, so its change
// notifications only reach participants in the same process. Redis and
// PostgreSQL share both the record and the notifications across processes.
func openStore(ctx context.Context, cfg storeConfig, logger *slog.Logger) (*session.Store, func() error, error) {
	noop := func() error { return nil }
	opts := []session.StoreOption{session.WithLogger(logger)}

	switch cfg.Kind {
	case storeBbolt:
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, noop, fmt.Errorf("failed to create data directory: %w", err)
		}
		path := filepath.Join(cfg.DataDir, "session.db")
		backend, err := sessionbbolt.NewBackendFromFile(path, &bbolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open session database %s (is another process using it?): %w", path, err)
		}
		opts = append(opts, session.WithNotifier(session.NewBroadcaster()))
		return session.NewStore(backend, opts...), backend.Close, nil

	case storeRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, noop, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		opts = append(opts, session.WithNotifier(sessionredis.NewNotifier(rdb, cfg.RedisPrefix, sessionredis.WithLogger(logger))))
		return session.NewStore(sessionredis.NewBackend(rdb, cfg.RedisPrefix), opts...), rdb.Close, nil

	case storePostgres:
		if cfg.PostgresDSN == "" {
			return nil, noop, fmt.Errorf("--postgres-dsn is required for --store=%s", storePostgres)
		}
		backend, err := sessionpostgres.NewBackendFromDSN(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open postgres session store: %w", err)
		}
		opts = append(opts, session.WithNotifier(sessionpostgres.NewNotifier(backend.Pool(), "", sessionpostgres.WithLogger(logger))))
		return session.NewStore(backend, opts...), backend.Close, nil

	case storeMemory:
		opts = append(opts, session.WithNotifier(session.NewBroadcaster()))
		return session.NewStore(memory.NewBackend(), opts...), noop, nil

	case storeNone:
		// Reads report no session and writes are dropped.
		return session.NewStore(nil, opts...), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown --store %q (want %s, %s, %s, %s or %s)",
			cfg.Kind, storeBbolt, storeRedis, storePostgres, storeMemory, storeNone)
	}
}
