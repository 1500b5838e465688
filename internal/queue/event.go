// Package queue fans catalog changes out to every server process over a
// RabbitMQ fanout exchange, so each process can drop its cached views.
package queue

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the fanout exchange carrying CatalogChangedEvent.
const ExchangeName = "catalog.changed"

// DialTimeout bounds the TCP connect to the broker.
const DialTimeout = 5 * time.Second

// dial is amqp.Dial with a bounded connect time.
func dial(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

// CatalogChangedEvent is published after every successful catalog write.
// It carries no catalog data; receivers re-read the store.
type CatalogChangedEvent struct {
	Origin     string    `json:"origin"` // id of the publishing process
	Version    uint64    `json:"version"`
	EventCount int       `json:"event_count"`
	ChangedAt  time.Time `json:"changed_at"`
}
