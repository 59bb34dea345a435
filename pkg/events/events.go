// Package events defines the lifecycle notifications emitted by triggered
// channels and their workflows.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every triggered channel event on the event bus.
const Topic = "operion.triggered.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Per-message events reported by workflows.
	MessageLifecycleEvent EventType = "message.lifecycle"

	// Cycle events reported by triggered channels.
	CycleStartedEvent    EventType = "cycle.started"
	CycleCompletedEvent  EventType = "cycle.completed"
	CycleFailedEvent     EventType = "cycle.failed"
	TriggerRejectedEvent EventType = "trigger.rejected"
)

// Event is anything that can be published on the event bus.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	ChannelID string         `json:"channel_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Channel returns the id of the channel that emitted the event.
func (b BaseEvent) Channel() string {
	return b.ChannelID
}

// Key returns the key an event is published under: its channel id when it
// has one.
func Key(event Event) string {
	if c, ok := event.(interface{ Channel() string }); ok {
		return c.Channel()
	}

	return ""
}

// MessageLifecycle records that a workflow finished with a message.
type MessageLifecycle struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	MessageID  string `json:"message_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

func (m MessageLifecycle) GetType() EventType {
	return MessageLifecycleEvent
}

type CycleStarted struct {
	BaseEvent

	CycleID   string   `json:"cycle_id"`
	MessageID string   `json:"message_id"`
	Workflows []string `json:"workflows"`
}

func (c CycleStarted) GetType() EventType {
	return CycleStartedEvent
}

type CycleCompleted struct {
	BaseEvent

	CycleID       string        `json:"cycle_id"`
	MessageID     string        `json:"message_id"`
	Duration      time.Duration `json:"duration"`
	FailedWorkers int           `json:"failed_workers"`
}

func (c CycleCompleted) GetType() EventType {
	return CycleCompletedEvent
}

type CycleFailed struct {
	BaseEvent

	CycleID   string        `json:"cycle_id"`
	MessageID string        `json:"message_id"`
	Stage     string        `json:"stage"`
	Error     string        `json:"error"`
	Duration  time.Duration `json:"duration"`
}

func (c CycleFailed) GetType() EventType {
	return CycleFailedEvent
}

// TriggerRejected is emitted when a trigger arrives while a cycle is running.
type TriggerRejected struct {
	BaseEvent

	MessageID string `json:"message_id"`
}

func (t TriggerRejected) GetType() EventType {
	return TriggerRejectedEvent
}

func NewBaseEvent(eventType EventType, channelID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		ChannelID: channelID,
		Metadata:  make(map[string]any),
	}
}

// New returns an empty event value for eventType, or nil when the type is
// unknown. The bus uses it to decode payloads.
func New(eventType EventType) Event {
	switch eventType {
	case MessageLifecycleEvent:
		return &MessageLifecycle{}
	case CycleStartedEvent:
		return &CycleStarted{}
	case CycleCompletedEvent:
		return &CycleCompleted{}
	case CycleFailedEvent:
		return &CycleFailed{}
	case TriggerRejectedEvent:
		return &TriggerRejected{}
	default:
		return nil
	}
}
