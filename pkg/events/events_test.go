package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEvent(t *testing.T) {
	event := NewBaseEvent(CycleStartedEvent, "channel-1")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, CycleStartedEvent, event.Type)
	assert.Equal(t, "channel-1", event.ChannelID)
	assert.NotNil(t, event.Metadata)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, time.Second)
}

func TestNew(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  Event
	}{
		{MessageLifecycleEvent, &MessageLifecycle{}},
		{CycleStartedEvent, &CycleStarted{}},
		{CycleCompletedEvent, &CycleCompleted{}},
		{CycleFailedEvent, &CycleFailed{}},
		{TriggerRejectedEvent, &TriggerRejected{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			event := New(tt.eventType)

			require.NotNil(t, event)
			assert.IsType(t, tt.expected, event)
			assert.Equal(t, tt.eventType, event.GetType())
		})
	}

	assert.Nil(t, New("unknown"))
}

func TestCycleFailed_JSON(t *testing.T) {
	event := CycleFailed{
		BaseEvent: NewBaseEvent(CycleFailedEvent, "channel-1"),
		CycleID:   "cycle-1",
		Stage:     "produce",
		Error:     "broker down",
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, "cycle.failed", decoded["type"])
	assert.Equal(t, "channel-1", decoded["channel_id"])
	assert.Equal(t, "produce", decoded["stage"])
	assert.Equal(t, "broker down", decoded["error"])
}

func TestKey(t *testing.T) {
	assert.Equal(t, "orders", Key(CycleStarted{BaseEvent: NewBaseEvent(CycleStartedEvent, "orders")}))
	assert.Equal(t, "orders", Key(&TriggerRejected{BaseEvent: NewBaseEvent(TriggerRejectedEvent, "orders")}))
}
