package cqrs

import (
	"context"
	"log"
	"sync"
)

// QueryHandler answers one query type.
type QueryHandler func(ctx context.Context, q Query) (any, error)

// QueryBus is the read-side twin of CommandBus: one handler per query type,
// last-writer-wins registration, errors propagated to the caller.
type QueryBus struct {
	mu       sync.RWMutex
	handlers map[string]QueryHandler
	logger   *log.Logger
}

func NewQueryBus(logger *log.Logger) *QueryBus {
	if logger == nil {
		logger = log.Default()
	}
	return &QueryBus{
		handlers: make(map[string]QueryHandler),
		logger:   logger,
	}
}

func (b *QueryBus) Register(queryType string, handler QueryHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[queryType]; exists {
		b.logger.Printf("WARNING: handler for query %s is being overwritten", queryType)
	}
	b.handlers[queryType] = handler
}

func (b *QueryBus) Execute(ctx context.Context, q Query) (any, error) {
	b.mu.RLock()
	handler, ok := b.handlers[q.Type]
	b.mu.RUnlock()
	if !ok {
		return nil, NoHandlerError{Kind: "query", Type: q.Type}
	}
	result, err := handler(ctx, q)
	if err != nil {
		b.logger.Printf("query %s failed (correlation_id=%s): %v", q.Type, q.Meta.CorrelationID, err)
		return nil, err
	}
	return result, nil
}
