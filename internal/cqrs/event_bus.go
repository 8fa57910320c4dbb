package cqrs

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// EventHandler reacts to a published event. Errors are logged and absorbed;
// they never reach the publisher.
type EventHandler func(ctx context.Context, evt Event) error

// Subscription identifies one subscriber so it can later be removed. Go
// function values are not comparable, so removal is by token rather than by
// handler identity.
type Subscription struct {
	eventType string
	id        uint64
}

type subscriber struct {
	id      uint64
	handler EventHandler
}

// EventBus fans events out to zero or more subscribers. Subscribers for the
// same event run concurrently; Publish waits for all of them to settle and
// succeeds regardless of individual failures. A flaky mail server must never
// fail the command that triggered the notification.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]subscriber
	nextID      uint64
	logger      *log.Logger
}

func NewEventBus(logger *log.Logger) *EventBus {
	if logger == nil {
		logger = log.Default()
	}
	return &EventBus{
		subscribers: make(map[string][]subscriber),
		logger:      logger,
	}
}

// Subscribe appends a handler for eventType, preserving subscription order
// in the registry. Execution order across subscribers is not guaranteed.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber{id: b.nextID, handler: handler})
	return Subscription{eventType: eventType, id: b.nextID}
}

// Unsubscribe removes the subscriber identified by sub. Unknown tokens are
// ignored.
func (b *EventBus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[sub.eventType]
	for i, s := range subs {
		if s.id == sub.id {
			b.subscribers[sub.eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers evt to every subscriber of evt.Type, each in its own
// goroutine, and returns once all have settled. Handler errors and panics
// are logged, never returned. Publishing with zero subscribers is a
// successful no-op.
func (b *EventBus) Publish(ctx context.Context, evt Event) error {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subscribers[evt.Type]))
	copy(subs, b.subscribers[evt.Type])
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range subs {
		wg.Add(1)
		go func(s subscriber) {
			defer wg.Done()
			if err := b.invoke(ctx, s, evt); err != nil {
				b.logger.Printf("event handler for %s failed (correlation_id=%s): %v", evt.Type, evt.Meta.CorrelationID, err)
			}
		}(s)
	}
	wg.Wait()
	return nil
}

func (b *EventBus) invoke(ctx context.Context, s subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.handler(ctx, evt)
}
