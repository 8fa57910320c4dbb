package cqrs

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
)

func TestCommandBusDispatchesToHandler(t *testing.T) {
	bus := NewCommandBus(nil)
	bus.Register("CREATE_THING", func(ctx context.Context, cmd Command) (any, error) {
		return map[string]string{"id": "42"}, nil
	})
	result, err := bus.Execute(context.Background(), NewCommand("CREATE_THING", nil, Metadata{}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	m, ok := result.(map[string]string)
	if !ok || m["id"] != "42" {
		t.Fatalf("expected handler result, got %#v", result)
	}
}

func TestCommandBusNoHandler(t *testing.T) {
	bus := NewCommandBus(log.New(&bytes.Buffer{}, "", 0))
	_, err := bus.Execute(context.Background(), NewCommand("NOPE", nil, Metadata{}))
	var nh NoHandlerError
	if !errors.As(err, &nh) {
		t.Fatalf("expected NoHandlerError, got %v", err)
	}
	if nh.Kind != "command" || nh.Type != "NOPE" {
		t.Fatalf("unexpected error fields: %+v", nh)
	}
}

func TestCommandBusOverwriteWarnsAndUsesLatest(t *testing.T) {
	var buf bytes.Buffer
	bus := NewCommandBus(log.New(&buf, "", 0))
	firstCalls, secondCalls := 0, 0
	bus.Register("DUP", func(ctx context.Context, cmd Command) (any, error) {
		firstCalls++
		return "first", nil
	})
	bus.Register("DUP", func(ctx context.Context, cmd Command) (any, error) {
		secondCalls++
		return "second", nil
	})
	if !strings.Contains(buf.String(), "overwritten") {
		t.Fatalf("expected overwrite warning, got %q", buf.String())
	}
	result, err := bus.Execute(context.Background(), NewCommand("DUP", nil, Metadata{}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result != "second" {
		t.Fatalf("expected second handler result, got %v", result)
	}
	if firstCalls != 0 || secondCalls != 1 {
		t.Fatalf("expected only replacement handler to run, got first=%d second=%d", firstCalls, secondCalls)
	}
}

func TestCommandBusPropagatesHandlerError(t *testing.T) {
	var buf bytes.Buffer
	bus := NewCommandBus(log.New(&buf, "", 0))
	boom := errors.New("boom")
	bus.Register("FAIL", func(ctx context.Context, cmd Command) (any, error) {
		return nil, boom
	})
	_, err := bus.Execute(context.Background(), NewCommand("FAIL", nil, Metadata{CorrelationID: "corr-1"}))
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if !strings.Contains(buf.String(), "corr-1") {
		t.Fatalf("expected correlation id in failure log, got %q", buf.String())
	}
}

func TestQueryBusMirrorsCommandBus(t *testing.T) {
	bus := NewQueryBus(nil)
	bus.Register("GET_THING", func(ctx context.Context, q Query) (any, error) {
		return "thing", nil
	})
	result, err := bus.Execute(context.Background(), NewQuery("GET_THING", nil, Metadata{}))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result != "thing" {
		t.Fatalf("expected thing, got %v", result)
	}
	_, err = bus.Execute(context.Background(), NewQuery("MISSING", nil, Metadata{}))
	var nh NoHandlerError
	if !errors.As(err, &nh) || nh.Kind != "query" {
		t.Fatalf("expected query NoHandlerError, got %v", err)
	}
}

func TestMetadataDefaults(t *testing.T) {
	cmd := NewCommand("X", nil, Metadata{})
	if cmd.Meta.CorrelationID == "" {
		t.Fatal("expected correlation id to be minted")
	}
	if cmd.Meta.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be defaulted")
	}
	evt := NewEvent("Y", nil, cmd.Meta)
	if evt.Meta.CorrelationID != cmd.Meta.CorrelationID {
		t.Fatal("expected correlation id to survive the command -> event hop")
	}
}
