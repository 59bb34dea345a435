package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_Logs(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	producer, err := NewFactory().Create(map[string]any{"level": "warn"}, protocol.Dependencies{Logger: logger})
	require.NoError(t, err)

	require.NoError(t, producer.Produce(context.Background(), models.NewMessageFromString("The quick brown fox")))

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "payload=\"The quick brown fox\"")
}

func TestFactory_InvalidLevel(t *testing.T) {
	_, err := NewFactory().Create(map[string]any{"level": "loud"}, protocol.Dependencies{})

	require.Error(t, err)
}
