// Package amqp broadcasts outbound emissions across server instances
// through a fanout exchange, so every instance delivers the event to
// its own connected clients.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/specwire/specwire-go/events"
)

const defaultExchange = "specwire.emissions"

// Envelope is the wire form of one broadcast emission.
type Envelope struct {
	ID        string    `json:"id"`
	Origin    string    `json:"origin"`
	Namespace string    `json:"namespace"`
	Event     string    `json:"event"`
	Args      []any     `json:"args"`
	EmittedAt time.Time `json:"emittedAt"`
}

// Broadcaster publishes emissions to a fanout exchange and, when
// listening, replays peer emissions into a local emitter. It implements
// events.Emitter.
type Broadcaster struct {
	conn     *amqp.Connection
	exchange string
	origin   string
	logger   *slog.Logger

	mu      sync.Mutex
	channel *amqp.Channel
}

// BroadcasterOption configures the Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithExchange sets the fanout exchange name.
func WithExchange(name string) BroadcasterOption {
	return func(b *Broadcaster) {
		b.exchange = name
	}
}

// WithBroadcastLogger sets the logger.
func WithBroadcastLogger(logger *slog.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		b.logger = logger
	}
}

// NewBroadcaster connects to the broker and declares the fanout
// exchange.
func NewBroadcaster(url string, options ...BroadcasterOption) (*Broadcaster, error) {
	b := &Broadcaster{
		exchange: defaultExchange,
		origin:   uuid.NewString(),
		logger:   slog.Default(),
	}
	for _, opt := range options {
		opt(b)
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		b.exchange,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", b.exchange, err)
	}

	b.conn = conn
	b.channel = channel
	return b, nil
}

// Emit implements events.Emitter by publishing the emission to the
// fanout exchange.
func (b *Broadcaster) Emit(ctx context.Context, namespace, event string, args []any) error {
	envelope := &Envelope{
		ID:        uuid.NewString(),
		Origin:    b.origin,
		Namespace: namespace,
		Event:     event,
		Args:      args,
		EmittedAt: time.Now().UTC(),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channel.PublishWithContext(ctx, b.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   envelope.ID,
		Timestamp:   envelope.EmittedAt,
		Body:        body,
	})
}

// Listen consumes peer emissions from the exchange and replays them
// into local until ctx is done. Emissions this instance published are
// skipped.
func (b *Broadcaster) Listen(ctx context.Context, local events.Emitter) error {
	channel, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}

	queue, err := channel.QueueDeclare(
		"",    // broker-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := channel.QueueBind(queue.Name, "", b.exchange, false, nil); err != nil {
		channel.Close()
		return fmt.Errorf("failed to bind queue %s: %w", queue.Name, err)
	}

	deliveries, err := channel.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		channel.Close()
		return fmt.Errorf("failed to consume: %w", err)
	}

	go func() {
		defer channel.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				b.replay(ctx, local, d.Body)
			}
		}
	}()

	return nil
}

// replay decodes one peer envelope and hands it to the local emitter.
func (b *Broadcaster) replay(ctx context.Context, local events.Emitter, body []byte) {
	envelope, err := decodeEnvelope(body)
	if err != nil {
		b.logger.Warn("discarding malformed broadcast", "error", err)
		return
	}
	if envelope.Origin == b.origin {
		return
	}
	if err := local.Emit(ctx, envelope.Namespace, envelope.Event, envelope.Args); err != nil {
		b.logger.Error("failed to replay broadcast",
			"namespace", envelope.Namespace,
			"event", envelope.Event,
			"error", err)
	}
}

// Close releases the connection.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channel != nil {
		b.channel.Close()
		b.channel = nil
	}
	if b.conn != nil {
		err := b.conn.Close()
		b.conn = nil
		return err
	}
	return nil
}

func decodeEnvelope(body []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if envelope.Namespace == "" || envelope.Event == "" {
		return nil, fmt.Errorf("envelope is missing namespace or event")
	}
	return &envelope, nil
}
