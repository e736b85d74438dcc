// Package memory contains an in-memory publisher used in tests and in
// deployments without Pub/Sub configured.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Publisher stores published payloads for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []PublishedEvent
}

// PublishedEvent captures one publish call.
type PublishedEvent struct {
	Topic   string
	Payload any
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event and returns a pseudo ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{Topic: topic, Payload: payload})
	return fmt.Sprintf("memory-%d", len(p.events)), nil
}

// Events returns the recorded publishes.
func (p *Publisher) Events() []PublishedEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedEvent, len(p.events))
	copy(out, p.events)
	return out
}
