package eventhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/operion-triggered/pkg/eventbus"
	"github.com/dukex/operion-triggered/pkg/events"
	"github.com/dukex/operion-triggered/pkg/log"
	"github.com/dukex/operion-triggered/pkg/mocks"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
	"github.com/dukex/operion-triggered/pkg/transport"
)

func TestBus_PublishesWhileStarted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := transport.NewGoChannel(watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(pubsub, pubsub)
	defer func() { _ = bus.Close() }()

	received := make(chan events.Event, 1)
	require.NoError(t, bus.Handle(events.MessageLifecycleEvent, func(_ context.Context, e events.Event) error {
		received <- e
		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	handler := NewBus(bus, log.Discard())
	require.NoError(t, handler.Init(ctx))
	require.NoError(t, handler.Start(ctx))
	assert.Equal(t, models.StateStarted, handler.State())

	event := events.MessageLifecycle{
		BaseEvent:  events.NewBaseEvent(events.MessageLifecycleEvent, "orders"),
		WorkflowID: "wf@orders",
		MessageID:  "m1",
		Success:    true,
	}
	require.NoError(t, handler.Send(ctx, event))

	select {
	case got := <-received:
		lifecycleEvent, ok := got.(*events.MessageLifecycle)
		require.True(t, ok)
		assert.Equal(t, "wf@orders", lifecycleEvent.WorkflowID)
		assert.Equal(t, "orders", lifecycleEvent.ChannelID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_RejectsWhenNotStarted(t *testing.T) {
	pubsub := transport.NewGoChannel(watermill.NopLogger{})
	handler := NewBus(eventbus.NewWatermillEventBus(pubsub, pubsub), log.Discard())
	ctx := context.Background()

	err := handler.Send(ctx, events.TriggerRejected{BaseEvent: events.NewBaseEvent(events.TriggerRejectedEvent, "c")})
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, handler.Init(ctx))
	require.NoError(t, handler.Start(ctx))
	require.NoError(t, handler.Stop(ctx))
	require.NoError(t, handler.Close(ctx))

	err = handler.Send(ctx, events.TriggerRejected{BaseEvent: events.NewBaseEvent(events.TriggerRejectedEvent, "c")})
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Equal(t, models.StateClosed, handler.State())
}

func TestBus_InitRequiresBus(t *testing.T) {
	err := NewBus(nil, log.Discard()).Init(context.Background())

	assert.True(t, protocol.IsConfigurationError(err))
	assert.ErrorIs(t, err, ErrNoEventBus)
}

func TestBus_CanCycleRepeatedly(t *testing.T) {
	pubsub := transport.NewGoChannel(watermill.NopLogger{})
	handler := NewBus(eventbus.NewWatermillEventBus(pubsub, pubsub), log.Discard())
	ctx := context.Background()

	for range 3 {
		require.NoError(t, handler.Init(ctx))
		require.NoError(t, handler.Start(ctx))
		require.NoError(t, handler.Stop(ctx))
		require.NoError(t, handler.Close(ctx))
	}
}

func TestRecording(t *testing.T) {
	r := NewRecording()
	ctx := context.Background()

	require.NoError(t, r.Init(ctx))
	require.NoError(t, r.Send(ctx, events.CycleStarted{BaseEvent: events.NewBaseEvent(events.CycleStartedEvent, "c")}))
	require.NoError(t, r.Send(ctx, events.CycleCompleted{BaseEvent: events.NewBaseEvent(events.CycleCompletedEvent, "c")}))
	assert.ErrorIs(t, r.Send(ctx, nil), ErrNilEvent)

	assert.Len(t, r.Events(), 2)
	assert.Len(t, r.OfType(events.CycleCompletedEvent), 1)
	assert.Equal(t, 1, r.Calls("init"))
	assert.Equal(t, 0, r.Calls("close"))
}

func TestBus_ReturnsPublishError(t *testing.T) {
	ctx := context.Background()
	publishErr := errors.New("broker down")

	bus := &mocks.MockEventBus{}
	bus.On("Publish", ctx, "orders", mock.AnythingOfType("events.MessageLifecycle")).Return(publishErr).Once()

	handler := NewBus(bus, log.Discard())
	require.NoError(t, handler.Init(ctx))
	require.NoError(t, handler.Start(ctx))

	err := handler.Send(ctx, events.MessageLifecycle{
		BaseEvent: events.NewBaseEvent(events.MessageLifecycleEvent, "orders"),
		MessageID: "m1",
	})
	require.ErrorIs(t, err, publishErr)
	bus.AssertExpectations(t)
}
