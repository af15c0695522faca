package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/storage"
)

// subscriberBuffer is the per-subscriber channel size. A subscriber that
// falls this far behind misses notifications rather than blocking publishers.
const subscriberBuffer = 256

// Bus is an in-process notification hub for single-node deployments and tests
type Bus struct {
	mu     sync.RWMutex
	subs   map[*subscription]struct{}
	logger *slog.Logger
}

// NewBus creates a new in-process bus
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[*subscription]struct{}),
		logger: logger.With(slog.String("component", "bus")),
	}
}

// Ensure Bus implements the interface
var _ storage.Bus = (*Bus)(nil)

// Publish delivers msg to every subscriber with room in its buffer
func (b *Bus) Publish(ctx context.Context, msg model.StateChanged) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for sub := range b.subs {
		select {
		case sub.ch <- msg:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.logger.Warn("bus notification dropped - subscriber buffer full",
			slog.String("game_id", string(msg.GameID)),
			slog.Int("dropped", dropped))
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context) (storage.Subscription, error) {
	sub := &subscription{
		bus:  b,
		ch:   make(chan model.StateChanged, subscriberBuffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// SubscriberCount returns the number of open subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

type subscription struct {
	bus  *Bus
	ch   chan model.StateChanged
	done chan struct{}
	once sync.Once
}

func (s *subscription) C() <-chan model.StateChanged {
	return s.ch
}

// Close unregisters the subscription and closes its channel
func (s *subscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		close(s.ch)
		s.bus.mu.Unlock()
		close(s.done)
	})
	return nil
}
