package service

import (
	"log"
	"sync"
	"time"
)

// DeliveryTimeout bounds how long Publish waits on a full subscriber for
// console output, which is delivered in order and not skipped
var DeliveryTimeout = 2 * time.Second

// EventType defines the type of event
type EventType string

const (
	EventSessionCreated    EventType = "session_created"
	EventSessionDeleted    EventType = "session_deleted"
	EventSessionReset      EventType = "session_reset"
	EventConsoleOutput     EventType = "console_output"
	EventTopologyUpdated   EventType = "topology_updated"
	EventMilestoneUnlocked EventType = "milestone_unlocked"
	EventLabSaved          EventType = "lab_saved"
	EventLabDeleted        EventType = "lab_deleted"
)

// Event represents an event that occurred in the system.
// SessionID is empty for events that concern every client.
type Event struct {
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Unsubscribe removes a subscriber. The channel is not closed.
func (eb *EventBus) Unsubscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, sub := range eb.subscribers {
		if sub == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers.
// Most events are skipped for a subscriber whose buffer is full. Console
// output waits up to DeliveryTimeout so probes reach the subscriber in order.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	subscribers := make([]chan<- Event, len(eb.subscribers))
	copy(subscribers, eb.subscribers)
	eb.mu.RUnlock()

	for _, ch := range subscribers {
		select {
		case ch <- event:
			continue
		default:
		}
		if event.Type != EventConsoleOutput {
			continue // subscriber is slow, skip
		}

		timer := time.NewTimer(DeliveryTimeout)
		select {
		case ch <- event:
		case <-timer.C:
			log.Printf("session %s: subscriber stalled, console output dropped", event.SessionID)
		}
		timer.Stop()
	}
}
