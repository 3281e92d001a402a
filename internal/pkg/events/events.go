// Package events publishes domain events to a topic exchange so that other
// systems can react to hierarchy changes, finished ETL runs and new notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// Routing keys
const (
	UnitHierarchyUpdated = "unit.hierarchy.updated"
	ETLCompleted         = "etl.completed"
	NotificationCreated  = "notification.created"
)

// Event is the JSON body of every published message
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// Publisher emits domain events. Implementations never fail the caller;
// delivery problems are logged.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{})
	Close() error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

// Publish implements Publisher
func (NoopPublisher) Publish(context.Context, string, interface{}) {}

// Close implements Publisher
func (NoopPublisher) Close() error { return nil }

// channel is the part of *amqp.Channel the publisher uses
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to a durable topic exchange
type AMQPPublisher struct {
	mu       sync.Mutex
	ch       channel
	conn     *amqp.Connection
	exchange string
	logger   zerolog.Logger
}

// SetupRabbitMQ dials the broker and opens a channel
func SetupRabbitMQ(url string) (*amqp.Channel, *amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			return nil, nil, closeErr
		}
		return nil, nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	return ch, conn, nil
}

// NewAMQPPublisher connects to url and declares the exchange
func NewAMQPPublisher(url, exchange string, logger zerolog.Logger) (*AMQPPublisher, error) {
	ch, conn, err := SetupRabbitMQ(url)
	if err != nil {
		return nil, err
	}

	p, err := newPublisher(ch, exchange, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, logger zerolog.Logger) (*AMQPPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{ch: ch, exchange: exchange, logger: logger}, nil
}

// Publish implements Publisher
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) {
	event := Event{
		ID:         uuid.New().String(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("routingKey", routingKey).Msg("Failed to marshal domain event")
		return
	}

	if ctx.Err() != nil {
		p.logger.Warn().Err(ctx.Err()).Str("routingKey", routingKey).Msg("Context done, domain event not published")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.OccurredAt,
		Type:         routingKey,
		Body:         body,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("routingKey", routingKey).Msg("Failed to publish domain event")
		return
	}

	p.logger.Debug().Str("routingKey", routingKey).Str("eventID", event.ID).Msg("Domain event published")
}

// Close closes the channel and the connection
func (p *AMQPPublisher) Close() error {
	var errs []error

	if err := p.ch.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing RabbitMQ channel: %w", err))
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing RabbitMQ connection: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors occurred during RabbitMQ shutdown: %v", errs)
	}
	return nil
}

// New returns an AMQP publisher when url is set, otherwise a NoopPublisher
func New(url, exchange string, logger zerolog.Logger) (Publisher, error) {
	if url == "" {
		logger.Info().Msg("AMQP url not configured, domain events disabled")
		return NoopPublisher{}, nil
	}
	return NewAMQPPublisher(url, exchange, logger)
}
