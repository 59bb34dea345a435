package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
log_level: debug
management:
  addr: ":9990"
connections:
  cache:
    type: redis
    addr: localhost:6379
channels:
  - id: fox
    probe_backoff: 250ms
    trigger:
      consumer:
        type: management
        settings:
          unique_id: fox
      producer:
        type: log
    consume_connection: cache
    error_handler:
      retry_limit: 3
      retry_interval: 2s
    workflows:
      - id: jump
        consumer:
          type: polling
          settings:
            provider:
              type: static
        services:
          - type: template
            settings:
              template: "{{ .Payload }} jumps"
        producer:
          type: log
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", f.LogLevel)
	assert.Equal(t, ":9990", f.Management.Addr)
	require.Len(t, f.Channels, 1)

	ch, ok := f.Channel("fox")
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, ch.ProbeBackoff)
	assert.Equal(t, 3, ch.ErrorHandler.RetryLimit)
	assert.Equal(t, 2*time.Second, ch.ErrorHandler.RetryInterval)
	assert.Equal(t, "management", ch.Trigger.Consumer.Type)
	assert.Equal(t, "fox", ch.Trigger.Consumer.Settings["unique_id"])
	require.NotNil(t, ch.Trigger.Producer)
	require.Len(t, ch.Workflows, 1)
	assert.Equal(t, "template", ch.Workflows[0].Services[0].Type)

	_, ok = f.Channel("missing")
	assert.False(t, ok)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name: "no channels",
			yaml: "log_level: info\n",
		},
		{
			name: "channel without workflows",
			yaml: "channels:\n  - id: a\n    trigger:\n      consumer:\n        type: management\n",
		},
		{
			name: "unknown connection",
			yaml: `
channels:
  - id: a
    consume_connection: nope
    trigger: {consumer: {type: management}}
    workflows: [{id: w, consumer: {type: polling}, producer: {type: log}}]
`,
			wantErr: ErrUnknownConnection,
		},
		{
			name: "duplicate channel",
			yaml: `
channels:
  - id: a
    trigger: {consumer: {type: management}}
    workflows: [{id: w, consumer: {type: polling}, producer: {type: log}}]
  - id: a
    trigger: {consumer: {type: management}}
    workflows: [{id: w, consumer: {type: polling}, producer: {type: log}}]
`,
			wantErr: ErrDuplicateChannel,
		},
		{
			name: "duplicate workflow",
			yaml: `
channels:
  - id: a
    trigger: {consumer: {type: management}}
    workflows:
      - {id: w, consumer: {type: polling}, producer: {type: log}}
      - {id: w, consumer: {type: polling}, producer: {type: log}}
`,
			wantErr: ErrDuplicateWorkflow,
		},
		{
			name: "kafka without brokers",
			yaml: `
event_bus: {type: kafka}
channels:
  - id: a
    trigger: {consumer: {type: management}}
    workflows: [{id: w, consumer: {type: polling}, producer: {type: log}}]
`,
		},
		{
			name: "negative retry limit",
			yaml: `
channels:
  - id: a
    trigger: {consumer: {type: management}}
    error_handler: {retry_limit: -1}
    workflows: [{id: w, consumer: {type: polling}, producer: {type: log}}]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	var s struct {
		Interval time.Duration `mapstructure:"interval" validate:"required"`
		Tags     []string      `mapstructure:"tags"`
		Count    int           `mapstructure:"count" validate:"gte=1"`
	}

	err := Decode(map[string]any{"interval": "30s", "tags": "a,b", "count": "2"}, &s)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, s.Interval)
	assert.Equal(t, []string{"a", "b"}, s.Tags)
	assert.Equal(t, 2, s.Count)

	err = Decode(map[string]any{"interval": "1s", "count": 1, "extra": true}, &s)
	require.Error(t, err)

	err = Decode(map[string]any{"interval": "1s", "count": 0}, &s)
	require.Error(t, err)
}
