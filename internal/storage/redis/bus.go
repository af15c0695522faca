package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/storage"
)

const subscriberBuffer = 256

// Bus carries state change notifications between nodes over Redis Pub/Sub.
// Delivery is at most once; subscribers treat a message as a hint.
type Bus struct {
	client *redis.Client
	logger *slog.Logger
}

// NewBus creates a bus over an existing client
func NewBus(client *redis.Client, logger *slog.Logger) *Bus {
	return &Bus{
		client: client,
		logger: logger.With(slog.String("component", "bus")),
	}
}

// Ensure Bus implements the interface
var _ storage.Bus = (*Bus)(nil)

func (b *Bus) Publish(ctx context.Context, msg model.StateChanged) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, gameChannel(msg.GameID), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.GameID, err)
	}
	return nil
}

// Subscribe listens on every game channel. It returns once Redis has
// confirmed the subscription, so nothing published afterwards is missed.
func (b *Bus) Subscribe(ctx context.Context) (storage.Subscription, error) {
	pubsub := b.client.PSubscribe(ctx, gameChannelPattern())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	sub := &subscription{
		pubsub: pubsub,
		out:    make(chan model.StateChanged, subscriberBuffer),
		done:   make(chan struct{}),
		logger: b.logger,
	}
	go sub.run(ctx)
	return sub, nil
}

type subscription struct {
	pubsub *redis.PubSub
	out    chan model.StateChanged
	done   chan struct{}
	logger *slog.Logger

	once     sync.Once
	closeErr error
}

func (s *subscription) run(ctx context.Context) {
	defer close(s.out)

	messages := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return
		case <-s.done:
			return
		case m, ok := <-messages:
			if !ok {
				return
			}
			var msg model.StateChanged
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				s.logger.Warn("bus message undecodable",
					slog.String("channel", m.Channel),
					slog.String("error", err.Error()))
				continue
			}
			select {
			case s.out <- msg:
			default:
				s.logger.Warn("bus notification dropped - subscriber buffer full",
					slog.String("game_id", string(msg.GameID)))
			}
		}
	}
}

func (s *subscription) C() <-chan model.StateChanged {
	return s.out
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.closeErr = s.pubsub.Close()
	})
	return s.closeErr
}
