package host

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/operion-triggered/pkg/config"
	"github.com/dukex/operion-triggered/pkg/consumers/remote"
	"github.com/dukex/operion-triggered/pkg/events"
	"github.com/dukex/operion-triggered/pkg/log"
	"github.com/dukex/operion-triggered/pkg/management"
	"github.com/dukex/operion-triggered/pkg/mocks"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/persistence/file"
	"github.com/dukex/operion-triggered/pkg/protocol"
	"github.com/dukex/operion-triggered/pkg/registry"
	"github.com/dukex/operion-triggered/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type captureFactory struct {
	producer *testutil.CaptureProducer
}

func (f *captureFactory) ID() string             { return "capture" }
func (f *captureFactory) Name() string           { return "Capture" }
func (f *captureFactory) Description() string    { return "Keeps produced messages in memory" }
func (f *captureFactory) Schema() map[string]any { return nil }

func (f *captureFactory) Create(map[string]any, protocol.Dependencies) (protocol.Producer, error) {
	return f.producer, nil
}

const foxConfig = `
channels:
  - id: fox
    probe_backoff: 10ms
    trigger:
      consumer:
        type: management
        settings:
          unique_id: fox
    error_handler:
      retry_limit: 1
      retry_interval: 10ms
    workflows:
      - id: jump
        consumer:
          type: polling
          settings:
            poller: {type: one-time}
            provider: {type: static}
        services:
          - type: template
            settings:
              template: "{{ .Payload }} jumps over the lazy dog"
        producer:
          type: capture
`

func newFoxHost(t *testing.T) (*Host, *testutil.CaptureProducer) {
	t.Helper()

	cfg, err := config.Parse([]byte(foxConfig))
	require.NoError(t, err)

	capture := testutil.NewCaptureProducer("capture", nil)
	reg := registry.NewDefault(log.Discard())
	reg.RegisterProducer(&captureFactory{producer: capture})

	h, err := New(context.Background(), cfg, Options{
		Registry: reg,
		History:  file.NewPersistence(t.TempDir()),
		Logger:   log.Discard(),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = h.Close(context.Background())
	})

	return h, capture
}

func TestHost_RemoteTriggerRunsCycle(t *testing.T) {
	ctx := context.Background()
	h, capture := newFoxHost(t)

	require.NoError(t, h.Init(ctx))
	require.NoError(t, h.Start(ctx))

	name := remote.ObjectName("fox")
	assert.True(t, h.Management().IsRegistered(name))

	require.NoError(t, h.Management().Invoke(ctx, name, remote.TriggerOperation))

	messages := capture.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "The quick brown fox jumps over the lazy dog", messages[0].Content())

	records, err := h.History().Cycles(ctx, "fox", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.CycleOutcomeCompleted, records[0].Outcome)

	statuses := h.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, int64(1), statuses[0].Cycles)
	assert.Equal(t, models.StateStarted, statuses[0].State)
}

func TestHost_TriggerByChannelID(t *testing.T) {
	ctx := context.Background()
	h, capture := newFoxHost(t)

	require.NoError(t, h.Init(ctx))
	require.NoError(t, h.Start(ctx))

	require.NoError(t, h.Trigger(ctx, "fox"))
	require.NoError(t, h.Trigger(ctx, "fox"))
	assert.Len(t, capture.Messages(), 2)

	err := h.Trigger(ctx, "missing")
	require.ErrorIs(t, err, ErrChannelNotFound)
}

func TestHost_StopUnregistersRemoteTrigger(t *testing.T) {
	ctx := context.Background()
	h, _ := newFoxHost(t)

	require.NoError(t, h.Init(ctx))
	require.NoError(t, h.Start(ctx))
	require.NoError(t, h.Stop(ctx))

	err := h.Management().Invoke(ctx, remote.ObjectName("fox"), remote.TriggerOperation)
	require.ErrorIs(t, err, management.ErrInstanceNotFound)

	ch, ok := h.Channel("fox")
	require.True(t, ok)
	assert.Equal(t, models.StateStopped, ch.Status().State)
	assert.WithinDuration(t, time.Now(), ch.Status().LastStopTime, time.Minute)
}

func TestNew_UnknownComponent(t *testing.T) {
	cfg, err := config.Parse([]byte(foxConfig))
	require.NoError(t, err)

	_, err = New(context.Background(), cfg, Options{Logger: log.Discard()})
	require.ErrorIs(t, err, registry.ErrUnknownType)
}

func TestNew_InvalidComponentSettings(t *testing.T) {
	cfg, err := config.Parse([]byte(foxConfig))
	require.NoError(t, err)

	cfg.Channels[0].Workflows[0].Services[0].Settings = map[string]any{}

	reg := registry.NewDefault(log.Discard())
	reg.RegisterProducer(&captureFactory{producer: testutil.NewCaptureProducer("capture", nil)})

	_, err = New(context.Background(), cfg, Options{Registry: reg, Logger: log.Discard()})
	require.ErrorIs(t, err, registry.ErrInvalidConfig)
}

func TestNewPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		url     string
		wantNil bool
		wantErr bool
	}{
		{name: "disabled", url: "", wantNil: true},
		{name: "plain path", url: dir},
		{name: "file url", url: "file://" + filepath.Join(dir, "history")},
		{name: "unsupported", url: "mongodb://localhost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPersistence(ctx, log.Discard(), tt.url)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)

			if tt.wantNil {
				assert.Nil(t, p)

				return
			}

			assert.NotNil(t, p)
		})
	}
}

func TestNewPubSub_UnsupportedTransport(t *testing.T) {
	_, _, err := NewPubSub(config.Transport{Type: "carrier-pigeon"}, nil, nil, log.Discard())
	require.Error(t, err)
}

func TestHost_ObserveReportsHandlerErrors(t *testing.T) {
	handleErr := errors.New("bus closed")

	bus := &mocks.MockEventBus{}
	bus.On("Handle", events.CycleStartedEvent, mock.Anything).Return(nil).Once()
	bus.On("Handle", events.CycleCompletedEvent, mock.Anything).Return(handleErr).Once()

	h := &Host{bus: bus, logger: log.Discard()}

	err := h.observe()
	require.ErrorIs(t, err, handleErr)
	assert.ErrorContains(t, err, string(events.CycleCompletedEvent))
	bus.AssertExpectations(t)
	bus.AssertNotCalled(t, "Subscribe", mock.Anything)
}
