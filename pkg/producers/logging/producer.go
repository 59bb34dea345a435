// Package logging provides a producer that writes messages to the log.
package logging

import (
	"context"
	"log/slog"

	"github.com/dukex/operion-triggered/pkg/config"
	"github.com/dukex/operion-triggered/pkg/log"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

type Producer struct {
	Level  slog.Level
	logger *slog.Logger
}

func New(level slog.Level, logger *slog.Logger) *Producer {
	return &Producer{
		Level:  level,
		logger: logger.With("module", "logging_producer"),
	}
}

func (p *Producer) Init(context.Context) error  { return nil }
func (p *Producer) Start(context.Context) error { return nil }
func (p *Producer) Stop(context.Context) error  { return nil }
func (p *Producer) Close(context.Context) error { return nil }

func (p *Producer) Produce(ctx context.Context, msg *models.Message) error {
	p.logger.Log(ctx, p.Level, "Message produced",
		"message_id", msg.ID,
		"payload", msg.Content(),
		"metadata", msg.Metadata,
	)

	return nil
}

type settings struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "log"
}

func (f *Factory) Name() string {
	return "Log"
}

func (f *Factory) Description() string {
	return "Writes every message to the process log"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"title":                "Log Producer Configuration",
		"additionalProperties": false,
		"properties": map[string]any{
			"level": map[string]any{
				"type":    "string",
				"enum":    []any{"debug", "info", "warn", "warning", "error"},
				"default": "info",
			},
		},
	}
}

func (f *Factory) Create(cfg map[string]any, deps protocol.Dependencies) (protocol.Producer, error) {
	var s settings
	if err := config.Decode(cfg, &s); err != nil {
		return nil, err
	}

	return New(log.ParseLevel(s.Level), deps.Logger), nil
}

var _ protocol.Producer = (*Producer)(nil)
