package cqrs

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEventBusFansOutToAllSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	var calls int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("USER_REGISTERED", func(ctx context.Context, evt Event) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})
	}
	if err := bus.Publish(context.Background(), NewEvent("USER_REGISTERED", nil, Metadata{})); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 subscriber calls, got %d", got)
	}
}

func TestEventBusAbsorbsSubscriberFailures(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := log.New(writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(p)
	}), "", 0)
	bus := NewEventBus(logger)
	var healthyRan, panickyRan int32
	bus.Subscribe("EVT", func(ctx context.Context, evt Event) error {
		return errors.New("mail server down")
	})
	bus.Subscribe("EVT", func(ctx context.Context, evt Event) error {
		atomic.AddInt32(&panickyRan, 1)
		panic("handler bug")
	})
	bus.Subscribe("EVT", func(ctx context.Context, evt Event) error {
		atomic.AddInt32(&healthyRan, 1)
		return nil
	})
	if err := bus.Publish(context.Background(), NewEvent("EVT", nil, Metadata{CorrelationID: "corr-9"})); err != nil {
		t.Fatalf("publish must absorb failures, got %v", err)
	}
	if atomic.LoadInt32(&healthyRan) != 1 || atomic.LoadInt32(&panickyRan) != 1 {
		t.Fatal("expected every subscriber to run despite sibling failures")
	}
	mu.Lock()
	logged := buf.String()
	mu.Unlock()
	if !strings.Contains(logged, "mail server down") || !strings.Contains(logged, "panic") {
		t.Fatalf("expected failures to be logged, got %q", logged)
	}
	if !strings.Contains(logged, "corr-9") {
		t.Fatalf("expected correlation id in failure log, got %q", logged)
	}
}

func TestEventBusWaitsForSlowSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	const delay = 50 * time.Millisecond
	var done int32
	bus.Subscribe("EVT", func(ctx context.Context, evt Event) error {
		time.Sleep(delay)
		atomic.AddInt32(&done, 1)
		return nil
	})
	start := time.Now()
	if err := bus.Publish(context.Background(), NewEvent("EVT", nil, Metadata{})); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Fatalf("publish returned after %v, before the subscriber settled", elapsed)
	}
	if atomic.LoadInt32(&done) != 1 {
		t.Fatal("subscriber must finish before publish returns")
	}
}

func TestEventBusZeroSubscribersIsNoOp(t *testing.T) {
	bus := NewEventBus(log.New(&bytes.Buffer{}, "", 0))
	if err := bus.Publish(context.Background(), NewEvent("NOBODY_CARES", nil, Metadata{})); err != nil {
		t.Fatalf("expected no-op success, got %v", err)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus(nil)
	var kept, removed int32
	sub := bus.Subscribe("EVT", func(ctx context.Context, evt Event) error {
		atomic.AddInt32(&removed, 1)
		return nil
	})
	bus.Subscribe("EVT", func(ctx context.Context, evt Event) error {
		atomic.AddInt32(&kept, 1)
		return nil
	})
	bus.Unsubscribe(sub)
	// Unknown tokens are ignored.
	bus.Unsubscribe(Subscription{eventType: "EVT", id: 999})
	if err := bus.Publish(context.Background(), NewEvent("EVT", nil, Metadata{})); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if atomic.LoadInt32(&removed) != 0 {
		t.Fatal("unsubscribed handler must not run")
	}
	if atomic.LoadInt32(&kept) != 1 {
		t.Fatal("remaining handler must still run")
	}
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
