// Package events fans run notifications out to subscribers.
package events

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"
)

type Event struct {
	Type      EventType      `json:"type"`
	Source    string         `json:"source"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

type Handler func(ctx context.Context, event Event) error

// ErrorHandler receives failures returned by handlers.
type ErrorHandler func(event Event, err error)

type EventBus struct {
	handlers map[EventType][]Handler
	onError  ErrorHandler
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

// OnError installs the callback for handler failures.
func (b *EventBus) OnError(fn ErrorHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish runs every handler for event.Type in its own goroutine.
func (b *EventBus) Publish(ctx context.Context, event Event) {
	if b == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Type]...)
	onError := b.onError
	b.mu.RUnlock()

	for _, h := range handlers {
		b.wg.Add(1)
		go func(handler Handler) {
			defer b.wg.Done()
			if err := handler(ctx, event); err != nil && onError != nil {
				onError(event, err)
			}
		}(h)
	}
}

// Wait blocks until every handler started so far has returned.
func (b *EventBus) Wait() {
	b.wg.Wait()
}
