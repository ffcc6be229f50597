package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"doemais/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	EventSignedIn  = "signed_in"
	EventSignedOut = "signed_out"
)

// Event reports a change of authentication state.
type Event struct {
	Type      string    `json:"type"`
	UserID    string    `json:"userId"`
	TokenHash string    `json:"tokenHash"`
	At        time.Time `json:"at"`
}

// EventBus fans auth events out to subscribers.
type EventBus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe calls fn for every event until the returned function is called.
	Subscribe(ctx context.Context, fn func(Event)) (func(), error)
}

// LocalBus delivers events synchronously inside the process.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]func(Event))}
}

func (b *LocalBus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, fn func(Event)) (func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}, nil
}

// RedisBus carries events over Redis pub/sub so every instance sees them.
type RedisBus struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisBus(client *redis.Client, logger *zap.Logger) *RedisBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{client: client, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode auth event: %w", err)
	}
	if err := b.client.Publish(ctx, utils.AuthEventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, fn func(Event)) (func(), error) {
	pubsub := b.client.Subscribe(ctx, utils.AuthEventsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to auth events: %w", err)
	}

	done := make(chan struct{})
	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Warn("Dropping malformed auth event", zap.Error(err))
					continue
				}
				fn(ev)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			if err := pubsub.Close(); err != nil {
				b.logger.Warn("Failed to close auth subscription", zap.Error(err))
			}
		})
	}, nil
}
