package services

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/operion-triggered/pkg/log"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_Apply(t *testing.T) {
	msg := models.NewMessageFromString("x")
	msg.SetHeader("a", "old")

	require.NoError(t, NewMetadata(map[string]string{"a": "new", "b": "2"}).Apply(context.Background(), msg))

	assert.Equal(t, "new", msg.Header("a"))
	assert.Equal(t, "2", msg.Header("b"))
}

func TestLog_Apply(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, nil))

	require.NoError(t, NewLog(true, logger).Apply(context.Background(), models.NewMessageFromString("hello")))
	assert.Contains(t, buf.String(), "payload=hello")

	buf.Reset()

	require.NoError(t, NewLog(false, logger).Apply(context.Background(), models.NewMessageFromString("hello")))
	assert.NotContains(t, buf.String(), "payload=")
}

func TestJSONSchema_Apply(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
		"required": []any{"name"},
	}

	service, err := NewJSONSchema(schema)
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"name":"fox"}`, false},
		{"missing field", `{"age":3}`, true},
		{"wrong type", `{"name":3}`, true},
		{"not json", `The quick brown fox`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.Apply(context.Background(), models.NewMessageFromString(tt.payload))

			if tt.wantErr {
				require.ErrorIs(t, err, ErrSchemaViolation)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestNewJSONSchema_FromString(t *testing.T) {
	service, err := NewJSONSchema(`{"type":"array"}`)
	require.NoError(t, err)

	require.NoError(t, service.Apply(context.Background(), models.NewMessageFromString(`[1,2]`)))
	require.Error(t, service.Apply(context.Background(), models.NewMessageFromString(`{}`)))

	_, err = NewJSONSchema(`{"type":`)
	require.Error(t, err)
}

func TestTemplate_Apply(t *testing.T) {
	service, err := NewTemplate(`{{.Metadata.greeting}}: {{.Payload}}`)
	require.NoError(t, err)

	msg := models.NewMessageFromString("The quick brown fox")
	msg.SetHeader("greeting", "hello")

	require.NoError(t, service.Apply(context.Background(), msg))
	assert.Equal(t, "hello: The quick brown fox", msg.Content())

	_, err = NewTemplate(`{{.Payload`)
	require.Error(t, err)
}

func TestTemplate_Helpers(t *testing.T) {
	t.Setenv("FOX_COLOUR", "brown")

	service, err := NewTemplate(`{{.Env.FOX_COLOUR}} {{rand 1}} {{if now}}ok{{end}}`)
	require.NoError(t, err)

	msg := models.NewMessageFromString("")
	require.NoError(t, service.Apply(context.Background(), msg))
	assert.Equal(t, "brown 0 ok", msg.Content())
}

func TestFactories(t *testing.T) {
	deps := protocol.Dependencies{Logger: log.Discard()}

	tests := []struct {
		name    string
		factory protocol.ServiceFactory
		config  map[string]any
		wantErr bool
	}{
		{"metadata", &MetadataFactory{}, map[string]any{"values": map[string]any{"k": "v"}}, false},
		{"metadata missing values", &MetadataFactory{}, map[string]any{}, true},
		{"log", &LogFactory{}, map[string]any{"include_payload": true}, false},
		{"json schema", &JSONSchemaFactory{}, map[string]any{"schema": map[string]any{"type": "object"}}, false},
		{"json schema missing", &JSONSchemaFactory{}, map[string]any{}, true},
		{"template", &TemplateFactory{}, map[string]any{"template": "{{.Payload}}"}, false},
		{"template unknown key", &TemplateFactory{}, map[string]any{"template": "x", "extra": 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := tt.factory.Create(tt.config, deps)

			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, service)
			assert.NotEmpty(t, tt.factory.ID())
		})
	}
}
