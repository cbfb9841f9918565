package session

import (
	"context"
	"sync"
)

// Change announces that the record under Key was written or cleared by
// the participant identified by Origin.
type Change struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// Notifier is a publish/subscribe channel for session record changes.
// Delivery is asynchronous and may race with local writes.
type Notifier interface {
	Publish(ctx context.Context, c Change) error
	// Subscribe returns a channel of changes that is closed once ctx is done.
	Subscribe(ctx context.Context) (<-chan Change, error)
}

// subscriberBuffer bounds each subscriber's queue. Changes beyond it are
// dropped for that subscriber.
const subscriberBuffer = 16

// Broadcaster is an in-process Notifier. Publish never blocks; a subscriber
// whose queue is full misses the change.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Change]struct{}
}

var _ Notifier = (*Broadcaster)(nil)

// NewBroadcaster returns a Broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Change]struct{})}
}

func (b *Broadcaster) Publish(_ context.Context, c Change) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- c:
		default:
		}
	}
	return nil
}

func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}
