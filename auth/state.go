// Package auth holds the process's view of who is signed in (State), the
// route guard that gates protected handlers on it, and the sign-in and
// sign-up form rules.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jmcleod/vocabadmin/session"
)

var (
	// ErrAlreadyMounted is returned by a second call to Mount.
	ErrAlreadyMounted = errors.New("session state already mounted")
	// ErrInvalidSession is returned when logging in with a session that has no email.
	ErrInvalidSession = errors.New("session requires an email")
)

// Status is the coarse state of a State.
type Status int

const (
	StatusInitializing Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Snapshot is a consistent view of a State at one point in time.
// Revision increases with every transition.
type Snapshot struct {
	Session  *session.Session
	Loading  bool
	Revision uint64
}

// Status derives the coarse state from the snapshot.
func (s Snapshot) Status() Status {
	switch {
	case s.Loading:
		return StatusInitializing
	case s.Session == nil:
		return StatusUnauthenticated
	default:
		return StatusAuthenticated
	}
}

// State is the single source of truth for the signed-in administrator. It
// starts Initializing, resolves from the store on Mount, and afterwards
// follows Login, Logout, and changes published by other participants.
type State struct {
	store  *session.Store
	logger *slog.Logger

	mu        sync.RWMutex
	current   *session.Session
	loading   bool
	revision  uint64
	mounted   bool
	unmounted bool
	cancel    context.CancelFunc
	done      chan struct{}

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the structured logger.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *State) {
		s.logger = logger
	}
}

// New returns an Initializing State over store.
func New(store *session.Store, opts ...Option) *State {
	s := &State{
		store:   store,
		loading: true,
		subs:    make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	s.logger = s.logger.With("component", "auth_state", "origin", store.Origin())
	return s
}

// Mount resolves the initial state from the store and starts listening for
// changes made by other participants. It may be called once; a Mount that
// failed to subscribe may be retried.
//
// The listener outlives ctx; it stops on Unmount.
func (s *State) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return ErrAlreadyMounted
	}
	s.mounted = true
	s.mu.Unlock()

	// Subscribe before the initial read so no change slips between them.
	var changes <-chan session.Change
	var cancel context.CancelFunc
	if n := s.store.Notifier(); n != nil {
		var lctx context.Context
		lctx, cancel = context.WithCancel(context.WithoutCancel(ctx))
		var err error
		changes, err = n.Subscribe(lctx)
		if err != nil {
			cancel()
			s.mu.Lock()
			s.mounted = false
			s.mu.Unlock()
			return fmt.Errorf("subscribing to session changes: %w", err)
		}
	}

	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil
	}
	s.current = s.store.Read(ctx)
	s.loading = false
	s.revision++
	snap := s.snapshotLocked()
	if changes != nil {
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.listen(changes, s.done)
	}
	s.mu.Unlock()

	s.logger.Debug("session state mounted", "status", snap.Status().String())
	s.notify(snap)
	return nil
}

// Unmount stops the change listener. No transitions happen afterwards.
func (s *State) Unmount() {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return
	}
	s.unmounted = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// listen adopts whatever the store holds after another participant
// changed it. The read result wins even over a newer local Login or
// Logout; the race is accepted.
func (s *State) listen(changes <-chan session.Change, done chan struct{}) {
	defer close(done)
	for c := range changes {
		if c.Key != session.StorageKey || c.Origin == s.store.Origin() {
			continue
		}
		next := s.store.Read(context.Background())
		s.logger.Info("session resynchronized", "from", c.Origin, "authenticated", next != nil)
		s.update(next)
	}

	s.mu.RLock()
	unmounted := s.unmounted
	s.mu.RUnlock()
	if !unmounted {
		s.logger.Warn("session change stream closed; changes by other participants will no longer be picked up")
	}
}

// Login persists sess and then makes it current.
func (s *State) Login(ctx context.Context, sess session.Session) error {
	if !sess.Authenticated() {
		return ErrInvalidSession
	}
	if err := s.store.Write(ctx, sess); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}
	s.update(&sess)
	return nil
}

// Logout clears the stored session and then the current one.
func (s *State) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	s.update(nil)
	return nil
}

// update replaces the current session, leaving the loading flag alone.
func (s *State) update(next *session.Session) {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return
	}
	s.current = next
	s.revision++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Snapshot returns the current session, loading flag and revision together.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{Loading: s.loading, Revision: s.revision}
	if s.current != nil {
		cp := *s.current
		snap.Session = &cp
	}
	return snap
}

// Current returns a copy of the signed-in session, or nil.
func (s *State) Current() *session.Session {
	return s.Snapshot().Session
}

// Loading reports whether the State is still Initializing.
func (s *State) Loading() bool {
	return s.Snapshot().Loading
}

// Status returns the coarse state.
func (s *State) Status() Status {
	return s.Snapshot().Status()
}

// Subscribe registers fn to be called with a snapshot after every
// transition. fn runs on the goroutine that caused the transition and must
// not block. The returned function unregisters fn.
func (s *State) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *State) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
