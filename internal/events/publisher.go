// internal/events/publisher.go
package events

import (
	"encoding/json"
	"fmt"

	"wallet-ledger/internal/domain"
)

// DefaultSubject is the topic operation events go to unless configured otherwise.
const DefaultSubject = "wallets.operation.applied"

// Publisher serializes wallet events onto a MessageBus.
type Publisher struct {
	bus     MessageBus
	subject string
}

// NewPublisher creates a Publisher. An empty subject selects DefaultSubject.
func NewPublisher(bus MessageBus, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{bus: bus, subject: subject}
}

// PublishOperationApplied announces a committed operation.
func (p *Publisher) PublishOperationApplied(event domain.OperationAppliedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal operation event: %w", err)
	}
	if err := p.bus.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish operation event for wallet %s: %w", event.WalletID, err)
	}
	return nil
}
