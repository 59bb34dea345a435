package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessageFromString("The quick brown fox")

	require.NotNil(t, msg)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "The quick brown fox", msg.Content())
	assert.NotNil(t, msg.Metadata)
	assert.WithinDuration(t, time.Now().UTC(), msg.CreatedAt, time.Second)

	other := NewMessage(nil)
	assert.NotEqual(t, msg.ID, other.ID)
}

func TestMessage_Headers(t *testing.T) {
	msg := &Message{}

	assert.Empty(t, msg.Header("missing"))

	msg.SetHeader(MetadataTriggerSource, "management")
	assert.Equal(t, "management", msg.Header(MetadataTriggerSource))
}

func TestMessage_Clone(t *testing.T) {
	msg := NewMessageFromString("payload")
	msg.SetHeader("k", "v")

	clone := msg.Clone()
	clone.SetHeader("k", "changed")
	clone.Payload[0] = 'P'

	assert.Equal(t, msg.ID, clone.ID)
	assert.Equal(t, "v", msg.Header("k"))
	assert.Equal(t, "payload", msg.Content())
	assert.Equal(t, "Payload", clone.Content())
}

func TestFactoryOrDefault(t *testing.T) {
	assert.NotNil(t, FactoryOrDefault(nil))

	called := false
	custom := func(payload []byte) *Message {
		called = true

		return NewMessage(payload)
	}

	FactoryOrDefault(custom)([]byte("x"))
	assert.True(t, called)
}

func TestCycleRecord_Duration(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	record := &CycleRecord{StartedAt: start}
	assert.Zero(t, record.Duration())

	record.FinishedAt = start.Add(3 * time.Second)
	assert.Equal(t, 3*time.Second, record.Duration())
}
