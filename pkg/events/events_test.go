package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/oarkflow/json"
	amqp "github.com/rabbitmq/amqp091-go"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewEventBus()
	var (
		mu   sync.Mutex
		seen []string
	)
	record := func(name string) Handler {
		return func(_ context.Context, e Event) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, name+":"+e.Source)
			return nil
		}
	}
	bus.Subscribe(EventRunCompleted, record("a"))
	bus.Subscribe(EventRunCompleted, record("b"))
	bus.Subscribe(EventRunFailed, record("c"))

	bus.Publish(context.Background(), Event{Type: EventRunCompleted, Source: "run-1"})
	bus.Wait()

	if len(seen) != 2 {
		t.Fatalf("expected two deliveries, got %v", seen)
	}
}

func TestHandlerErrorsAreReported(t *testing.T) {
	bus := NewEventBus()
	errCh := make(chan error, 1)
	bus.OnError(func(_ Event, err error) { errCh <- err })
	bus.Subscribe(EventRunFailed, func(context.Context, Event) error {
		return errors.New("boom")
	})
	bus.Publish(context.Background(), Event{Type: EventRunFailed})
	bus.Wait()
	select {
	case err := <-errCh:
		if err.Error() != "boom" {
			t.Fatalf("unexpected error %v", err)
		}
	default:
		t.Fatalf("expected handler error to be reported")
	}
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var bus *EventBus
	bus.Publish(context.Background(), Event{Type: EventRunCompleted})
}

type fakeChannel struct {
	queue    string
	messages []amqp.Publishing
	closed   bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.queue = key
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPForwarderPublishesJSON(t *testing.T) {
	ch := &fakeChannel{}
	fwd := newForwarder(ch, "runs")
	event := Event{Type: EventRunCompleted, Source: "run-7", Payload: map[string]any{"printed": 2}}
	if err := fwd.Handle(context.Background(), event); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if ch.queue != "runs" || len(ch.messages) != 1 {
		t.Fatalf("unexpected publish %+v", ch)
	}
	msg := ch.messages[0]
	if msg.ContentType != "application/json" || msg.Type != string(EventRunCompleted) {
		t.Fatalf("unexpected message headers %+v", msg)
	}
	var decoded Event
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Source != "run-7" || decoded.Payload["printed"] != float64(2) {
		t.Fatalf("unexpected body %+v", decoded)
	}

	if err := fwd.Close(); err != nil || !ch.closed {
		t.Fatalf("close failed: %v", err)
	}
	if err := fwd.Handle(context.Background(), event); err == nil {
		t.Fatalf("expected error after close")
	}
}
