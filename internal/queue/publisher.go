package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/event-showcase/internal/store"
)

// Publisher sends CatalogChangedEvent messages. It keeps one connection
// and reopens it lazily after a failure.
type Publisher struct {
	url         string
	origin      string
	logger      *slog.Logger
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url, origin string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Publisher{
		url:         url,
		origin:      origin,
		logger:      logger.With("component", "publisher"),
		dialTimeout: DialTimeout,
	}
}

// declareExchange is shared with the consumer.
func declareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName, // name
		"fanout",     // kind
		true,         // durable
		false,        // autoDelete
		false,        // internal
		false,        // noWait
		nil,          // args
	)
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()
	conn, err := dial(p.url, p.dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	if err := declareExchange(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: exchange declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// Publish sends ev with Origin set to this process.
func (p *Publisher) Publish(ctx context.Context, ev CatalogChangedEvent) error {
	ev.Origin = p.origin
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx,
		ExchangeName, // exchange
		"",           // routing key, ignored by fanout
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now().UTC(),
			Body:        body,
		})
	if err != nil {
		p.closeLocked()
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

// Observe is a store observer that announces local writes. Changes picked
// up from other processes are not re-announced, and neither are counter
// bumps: other processes read counters from the store and only need the
// announcement to drop cached lists.
func (p *Publisher) Observe(ch store.Change) {
	if !announces(ch) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev := CatalogChangedEvent{
		Version:    ch.Catalog.Version,
		EventCount: len(ch.Catalog.Events),
		ChangedAt:  time.Now().UTC(),
	}
	if err := p.Publish(ctx, ev); err != nil {
		// The write itself succeeded; other processes catch up on their
		// cache TTL.
		p.logger.Warn("catalog change not announced", "version", ev.Version, "error", err)
	}
}

func announces(ch store.Change) bool {
	return !ch.Remote && !ch.CountersOnly
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}
