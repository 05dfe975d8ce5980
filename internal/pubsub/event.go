package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TopicLockEvents is the default topic lock lifecycle events are published to
const TopicLockEvents = "dlock.events"

// EventType identifies a lock lifecycle transition
type EventType string

const (
	EventAcquired     EventType = "acquired"
	EventReleased     EventType = "released"
	EventUnobtainable EventType = "unobtainable"
)

// LockEvent describes a lock lifecycle transition
type LockEvent struct {
	Type      EventType `json:"type"`
	Resource  string    `json:"resource"`
	Key       string    `json:"key"`
	At        time.Time `json:"at"`
	ElapsedMs int64     `json:"elapsed_ms"`
}

// EventEmitter serializes lock events and hands them to a Publisher
type EventEmitter struct {
	publisher Publisher
	topic     string
}

// NewEventEmitter creates an emitter publishing to topic, or TopicLockEvents when topic is empty
func NewEventEmitter(publisher Publisher, topic string) *EventEmitter {
	if topic == "" {
		topic = TopicLockEvents
	}
	return &EventEmitter{publisher: publisher, topic: topic}
}

// Emit publishes event as JSON keyed by its resource
func (e *EventEmitter) Emit(ctx context.Context, event LockEvent) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal lock event: %w", err)
	}
	return e.publisher.Publish(ctx, e.topic, event.Resource, msg)
}

// Close closes the underlying publisher
func (e *EventEmitter) Close(ctx context.Context) error {
	return e.publisher.Close(ctx)
}
