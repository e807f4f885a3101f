package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// Routing keys of the domain events published after each mutation.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
	EventPaymentCompleted   = "payment.completed"
	EventPaymentRetried     = "payment.retried"
	EventPaymentRefunded    = "payment.refunded"
	EventPaymentWebhook     = "payment.webhook"
)

// EventPublisher delivers a serialized event under a routing key.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// Event is the envelope of every published domain event.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// emitter publishes events best-effort; failures are logged and dropped.
type emitter struct {
	publisher EventPublisher
}

func (e emitter) emit(routingKey string, data interface{}) {
	if e.publisher == nil {
		return
	}
	body, err := json.Marshal(Event{Type: routingKey, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", routingKey, err)
		return
	}
	if err := e.publisher.Publish(routingKey, body); err != nil {
		log.Printf("Warning: Failed to publish %s event: %v", routingKey, err)
	}
}

// AuditEvent decodes a delivered event and writes it to the log. Malformed
// bodies are rejected so the broker can dead-letter them.
func AuditEvent(routingKey string, body []byte) error {
	var event struct {
		Type       string          `json:"type"`
		OccurredAt time.Time       `json:"occurred_at"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("malformed %s event: %w", routingKey, err)
	}
	if event.Type == "" {
		return fmt.Errorf("%s event has no type", routingKey)
	}
	log.Printf("[audit] %s at %s: %s", event.Type, event.OccurredAt.Format(time.RFC3339), event.Data)
	return nil
}
