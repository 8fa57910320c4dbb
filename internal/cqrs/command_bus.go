package cqrs

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// CommandHandler processes one command type. Its result is returned to the
// dispatching caller unmodified.
type CommandHandler func(ctx context.Context, cmd Command) (any, error)

// NoHandlerError is returned when a message type has no registered handler.
// It signals configuration drift between the type enumeration and the
// startup registration set, not a user error.
type NoHandlerError struct {
	Kind string // "command" or "query"
	Type string
}

func (e NoHandlerError) Error() string {
	return fmt.Sprintf("no handler registered for %s type %s", e.Kind, e.Type)
}

// CommandBus routes each command to its single registered handler. One bus
// instance is built by the composition root and shared by reference; the
// registry is populated at startup and read-mostly afterwards.
type CommandBus struct {
	mu       sync.RWMutex
	handlers map[string]CommandHandler
	logger   *log.Logger
}

func NewCommandBus(logger *log.Logger) *CommandBus {
	if logger == nil {
		logger = log.Default()
	}
	return &CommandBus{
		handlers: make(map[string]CommandHandler),
		logger:   logger,
	}
}

// Register binds a handler to a command type. Re-registering is
// last-writer-wins: the previous handler is replaced and a warning logged.
func (b *CommandBus) Register(commandType string, handler CommandHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[commandType]; exists {
		b.logger.Printf("WARNING: handler for command %s is being overwritten", commandType)
	}
	b.handlers[commandType] = handler
}

// Execute invokes the handler for cmd.Type and returns its result. Handler
// errors are logged and propagated verbatim so the route layer can map them
// to a response.
func (b *CommandBus) Execute(ctx context.Context, cmd Command) (any, error) {
	b.mu.RLock()
	handler, ok := b.handlers[cmd.Type]
	b.mu.RUnlock()
	if !ok {
		return nil, NoHandlerError{Kind: "command", Type: cmd.Type}
	}
	result, err := handler(ctx, cmd)
	if err != nil {
		b.logger.Printf("command %s failed (correlation_id=%s): %v", cmd.Type, cmd.Meta.CorrelationID, err)
		return nil, err
	}
	return result, nil
}
