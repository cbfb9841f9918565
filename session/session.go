// Package session provides the durable store for the signed-in administrator
// record. A single record lives under StorageKey in a Backend; every write
// and clear is announced to other participants through a Notifier.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jmcleod/vocabadmin/internal/uuid"
)

// StorageKey is the fixed key the session record is stored under.
const StorageKey = "admin_user"

// ErrNotFound is returned by a Backend when the key is unset.
var ErrNotFound = errors.New("session record not found")

// Session identifies the signed-in administrator.
type Session struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Authenticated reports whether the record identifies someone. Records
// without an email are treated as absent everywhere.
func (s Session) Authenticated() bool {
	return s.Email != ""
}

// Backend is a durable key-value store holding raw session records.
type Backend interface {
	// Get returns the raw value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, replacing any prior value.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Store reads and writes the session record and owns its serialization.
//
// A Store built without a Backend is unavailable: Read returns nil and
// Write/Clear do nothing. This mirrors running where no durable storage
// exists, which is not an error.
type Store struct {
	backend  Backend
	notifier Notifier
	origin   string
	logger   *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithNotifier announces writes and clears on n.
func WithNotifier(n Notifier) StoreOption {
	return func(s *Store) {
		s.notifier = n
	}
}

// WithOrigin sets the participant identity attached to published changes.
// Default: a random UUID.
func WithOrigin(origin string) StoreOption {
	return func(s *Store) {
		s.origin = origin
	}
}

// WithLogger sets the logger used for swallowed backend failures.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore returns a Store over backend. backend may be nil.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	if s.origin == "" {
		s.origin = uuid.New()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	s.logger = s.logger.With("component", "session_store", "origin", s.origin)
	return s
}

// Available reports whether the store has durable storage behind it.
func (s *Store) Available() bool {
	return s.backend != nil
}

// Origin returns the participant identity of this store.
func (s *Store) Origin() string {
	return s.origin
}

// Notifier returns the change notifier, or nil when none is configured.
func (s *Store) Notifier() Notifier {
	return s.notifier
}

// Read returns the stored session, or nil when the key is unset, the value
// does not parse, or it lacks an email. Read never fails.
func (s *Store) Read(ctx context.Context) *Session {
	if s.backend == nil {
		return nil
	}
	raw, err := s.backend.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Debug("session read failed", "error", err)
		}
		return nil
	}
	return Decode(raw)
}

// Decode parses a raw record. It returns nil for anything that is not a
// JSON object carrying a non-empty email.
func Decode(raw []byte) *Session {
	if len(raw) == 0 {
		return nil
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil
	}
	if !sess.Authenticated() {
		return nil
	}
	return &sess
}

// Write stores sess under StorageKey and announces the change.
func (s *Store) Write(ctx context.Context, sess Session) error {
	if s.backend == nil {
		return nil
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.backend.Put(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	s.publish(ctx)
	return nil
}

// Clear removes the record and announces the change. Clearing an absent
// record is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	s.publish(ctx)
	return nil
}

// publish is best-effort: a lost notification only delays other
// participants until their next read.
func (s *Store) publish(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, Change{Key: StorageKey, Origin: s.origin}); err != nil {
		s.logger.Warn("session change notification failed", "error", err)
	}
}
