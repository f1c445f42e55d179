// Package notify pushes server events to connected socket clients. Events pass
// through a Broker so that several API replicas can share one fan-out channel.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"parlour/internal/metrics"
)

// Message is one encoded frame addressed to an audience.
type Message struct {
	Audience string
	Body     []byte
}

// Broker is the abstraction over the fan-out backends.
type Broker interface {
	Publish(ctx context.Context, msg Message) error
	// Subscribe returns once the subscription is live; the channel closes when ctx ends.
	Subscribe(ctx context.Context) (<-chan Message, error)
	Ping(ctx context.Context) error
}

// InMemory fans messages out to in-process subscribers.
type InMemory struct {
	mu   sync.Mutex
	subs map[chan Message]struct{}
	size int
}

// NewInMemory creates a broker whose subscribers buffer up to size messages.
func NewInMemory(size int) *InMemory {
	if size <= 0 {
		size = 256
	}
	return &InMemory{subs: make(map[chan Message]struct{}), size: size}
}

// Publish never blocks; a subscriber with a full buffer misses the message.
func (b *InMemory) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- msg:
		default:
			metrics.Notifications.WithLabelValues("broker", "dropped").Inc()
		}
	}
	return nil
}

// Subscribe registers a new subscriber.
func (b *InMemory) Subscribe(ctx context.Context) (<-chan Message, error) {
	ch := make(chan Message, b.size)
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

func (b *InMemory) Ping(context.Context) error { return nil }

// RedisBroker fans messages out over a Redis pub/sub channel.
type RedisBroker struct {
	client  *redis.Client
	channel string
}

// NewRedisBroker builds a broker on channel.
func NewRedisBroker(client *redis.Client, channel string) *RedisBroker {
	if channel == "" {
		channel = "parlour:notifications"
	}
	return &RedisBroker{client: client, channel: channel}
}

// Publish sends msg to every subscribed replica.
func (b *RedisBroker) Publish(ctx context.Context, msg Message) error {
	return b.client.Publish(ctx, b.channel, serialize(msg)).Err()
}

// Subscribe streams messages from the channel.
func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan Message, error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	out := make(chan Message)
	go func() {
		defer close(out)
		defer ps.Close()
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				msg, err := deserialize(m.Payload)
				if err != nil {
					slog.Warn("drop malformed broker message", "err", err)
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// serialize stores messages as Audience|Body.
func serialize(msg Message) string {
	return msg.Audience + "|" + string(msg.Body)
}

func deserialize(s string) (Message, error) {
	audience, body, ok := strings.Cut(s, "|")
	if !ok || audience == "" {
		return Message{}, errors.New("missing audience")
	}
	return Message{Audience: audience, Body: []byte(body)}, nil
}
