package events

import (
	"context"
	"sync"

	"github.com/oarkflow/errors"
	"github.com/oarkflow/json"
	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp.Channel the forwarder needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPForwarder publishes events as JSON messages to a durable queue.
type AMQPForwarder struct {
	conn    *amqp.Connection
	channel channel
	queue   string
	mu      sync.Mutex
}

// DialAMQP connects to url and declares queue.
func DialAMQP(url, queue string) (*AMQPForwarder, error) {
	if queue == "" {
		queue = "bella.runs"
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_, err = ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &AMQPForwarder{conn: conn, channel: ch, queue: queue}, nil
}

func newForwarder(ch channel, queue string) *AMQPForwarder {
	return &AMQPForwarder{channel: ch, queue: queue}
}

func encodeEvent(event Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         string(event.Type),
		Timestamp:    event.Timestamp,
		Body:         body,
	}, nil
}

// Handle is an events.Handler; subscribe it to the event types to forward.
func (f *AMQPForwarder) Handle(ctx context.Context, event Event) error {
	msg, err := encodeEvent(event)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channel == nil {
		return errors.New("amqp forwarder is closed")
	}
	return f.channel.PublishWithContext(ctx, "", f.queue, false, false, msg)
}

func (f *AMQPForwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channel == nil {
		return nil
	}
	err := f.channel.Close()
	f.channel = nil
	if f.conn != nil {
		if cerr := f.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
