// Package events publishes document lifecycle transitions.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Type names a lifecycle transition.
type Type string

const (
	TypeCreated Type = "document.created"
	TypeUpdated Type = "document.updated"
	TypeDeleted Type = "document.deleted"
)

// Event describes one committed transition. PreviousID is set for updates and
// names the superseded version.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	DocumentID string    `json:"documentId"`
	PreviousID string    `json:"previousId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// New builds an event with a fresh identifier.
func New(t Type, documentID, previousID string, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		DocumentID: documentID,
		PreviousID: previousID,
		OccurredAt: at,
	}
}

// KafkaPublisher writes events as JSON records keyed by document identifier.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher wraps an existing client.
func NewKafkaPublisher(client *kgo.Client, topic string) *KafkaPublisher {
	return &KafkaPublisher{client: client, topic: topic}
}

// Publish blocks until the broker acknowledges the record.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.DocumentID),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// Close flushes and closes the underlying client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns the recorded events in publish order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
