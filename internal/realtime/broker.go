package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis Pub/Sub channel feed events are published on.
const DefaultChannel = "feeds"

// Publisher announces feed changes.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber opens a stream of feed changes.
type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription is one open event stream. Events is closed when the
// subscription ends, either through Close or a broker failure.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Broker is both ends of the feed event channel.
type Broker interface {
	Publisher
	Subscriber
}

// RedisBroker implements Broker on Redis Pub/Sub.
type RedisBroker struct {
	rdb     *redis.Client
	channel string
}

// NewRedisBroker creates a broker on DefaultChannel.
func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb, channel: DefaultChannel}
}

// Publish sends the event to every current subscriber.
func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encoding feed event: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publishing feed event: %w", err)
	}
	return nil
}

// Subscribe opens a subscription and waits for Redis to confirm it, so no
// event published after Subscribe returns can be missed.
func (b *RedisBroker) Subscribe(ctx context.Context) (Subscription, error) {
	ps := b.rdb.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}

	s := &redisSubscription{
		ps:     ps,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
	go s.pump(ps.Channel())
	return s, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) Events() <-chan Event { return s.events }

// Close ends the subscription. Safe to call more than once.
func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

// pump decodes messages until the subscription is closed. It is the only
// writer to events and closes it on exit.
func (s *redisSubscription) pump(msgs <-chan *redis.Message) {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			ev, err := DecodeEvent([]byte(msg.Payload))
			if err != nil {
				slog.Warn("dropping malformed feed event", slog.Any("error", err))
				continue
			}
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
	}
}
