package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/polkiloo/reviewmart/internal/domain/model"
)

// Publisher emits transition events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event model.TransitionEvent) error
}

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type amqpConnection interface {
	channel() (amqpChannel, error)
	Close() error
}

type dialedConnection struct {
	*amqp091.Connection
}

func (c dialedConnection) channel() (amqpChannel, error) {
	ch, err := c.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

var dialAMQP = func(rawURL string) (amqpConnection, error) {
	conn, err := amqp091.DialConfig(rawURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	return dialedConnection{conn}, nil
}

// AMQPPublisher publishes events to a durable topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     amqpConnection
	ch       amqpChannel
	url      string
	exchange string
	logger   *slog.Logger
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(rawURL, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	clean, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}
	conn, err := dialAMQP(clean)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	p := &AMQPPublisher{conn: conn, url: clean, exchange: exchange, logger: logger}
	if err := p.openChannel(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) openChannel() error {
	ch, err := p.conn.channel()
	if err != nil {
		return fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.ch = ch
	return nil
}

// reconnect reopens the channel, redialing the broker when the connection
// cannot open one.
func (p *AMQPPublisher) reconnect() error {
	chErr := p.openChannel()
	if chErr == nil {
		return nil
	}
	p.logger.Warn("amqp connection lost; redialing", slog.Any("error", chErr))
	_ = p.conn.Close()
	conn, err := dialAMQP(p.url)
	if err != nil {
		return errors.Join(chErr, fmt.Errorf("redial amqp: %w", err))
	}
	p.conn = conn
	return p.openChannel()
}

// Publish sends the event under its routing key. A failed publish reconnects
// and retries once.
func (p *AMQPPublisher) Publish(ctx context.Context, event model.TransitionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    event.ID.String(),
		Timestamp:    event.OccurredAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, event.RoutingKey(), false, false, msg)
	if err == nil {
		return nil
	}

	p.logger.Warn("publish failed; reopening channel", slog.String("routing_key", event.RoutingKey()), slog.Any("error", err))
	_ = p.ch.Close()
	if reopenErr := p.reconnect(); reopenErr != nil {
		return errors.Join(err, reopenErr)
	}
	return p.ch.PublishWithContext(ctx, p.exchange, event.RoutingKey(), false, false, msg)
}

// Close releases the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// LogPublisher is used when no broker is configured or reachable.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event model.TransitionEvent) error {
	p.logger.InfoContext(ctx, "transition event",
		slog.String("event_id", event.ID.String()),
		slog.String("routing_key", event.RoutingKey()),
		slog.Int64("user_id", event.UserID),
		slog.String("from", event.From),
		slog.String("to", event.To),
	)
	return nil
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if idx := strings.Index(strings.ToLower(clean), "amqp"); idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("amqp url scheme must be amqp or amqps")
	}
	return clean, nil
}
