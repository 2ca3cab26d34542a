// internal/events/bus.go
package events

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// MessageBus publishes raw payloads to a topic.
type MessageBus interface {
	Publish(topic string, data []byte) error
}

// NatsBus publishes over a NATS connection.
type NatsBus struct {
	nc *nats.Conn
}

// ConnectNats dials the NATS server at url.
func ConnectNats(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("wallet-ledger"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

func NewNatsBus(nc *nats.Conn) *NatsBus {
	return &NatsBus{nc: nc}
}

func (b *NatsBus) Publish(topic string, data []byte) error {
	return b.nc.Publish(topic, data)
}

// NoopBus drops every message. Used when NATS is not configured.
type NoopBus struct{}

func (NoopBus) Publish(string, []byte) error { return nil }
