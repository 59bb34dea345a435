// Package models defines the data types shared by triggered channels, their
// workflows and the components attached to them.
package models

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Well known metadata keys.
const (
	MetadataTriggerSource = "trigger_source"
	MetadataWorkflowID    = "workflow_id"
	MetadataCycleID       = "cycle_id"
	MetadataRetryCount    = "retry_count"
)

// Message is the unit of work passed between components. A triggered channel
// creates one per trigger and hands the same instance back to the trigger
// producer once the cycle is complete.
type Message struct {
	ID        string            `json:"id"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// MessageFactory creates messages for a payload.
type MessageFactory func(payload []byte) *Message

// DefaultMessageFactory is used when a component is not given a factory.
var DefaultMessageFactory MessageFactory = NewMessage

func NewMessage(payload []byte) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Payload:   payload,
		Metadata:  make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}
}

func NewMessageFromString(content string) *Message {
	return NewMessage([]byte(content))
}

// FactoryOrDefault returns f, or DefaultMessageFactory when f is nil.
func FactoryOrDefault(f MessageFactory) MessageFactory {
	if f == nil {
		return DefaultMessageFactory
	}

	return f
}

func (m *Message) Content() string {
	return string(m.Payload)
}

func (m *Message) SetContent(content string) {
	m.Payload = []byte(content)
}

func (m *Message) Header(key string) string {
	if m.Metadata == nil {
		return ""
	}

	return m.Metadata[key]
}

func (m *Message) SetHeader(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}

	m.Metadata[key] = value
}

// Clone returns a deep copy that keeps the original ID.
func (m *Message) Clone() *Message {
	clone := &Message{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		Metadata:  maps.Clone(m.Metadata),
	}

	if m.Payload != nil {
		clone.Payload = append([]byte(nil), m.Payload...)
	}

	if clone.Metadata == nil {
		clone.Metadata = make(map[string]string)
	}

	return clone
}
