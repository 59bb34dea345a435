package schedule

import (
	"github.com/dukex/operion-triggered/pkg/config"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

type settings struct {
	Cron string `mapstructure:"cron" validate:"required"`
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "schedule"
}

func (f *Factory) Name() string {
	return "Schedule (Cron)"
}

func (f *Factory) Description() string {
	return "Triggers the channel on a schedule using cron expressions"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"title":                "Schedule Trigger Configuration",
		"additionalProperties": false,
		"properties": map[string]any{
			"cron": map[string]any{
				"type":        "string",
				"description": "Cron expression (e.g., '0 */5 * * *' for every 5 minutes)",
			},
		},
		"required": []any{"cron"},
	}
}

func (f *Factory) Create(cfg map[string]any, deps protocol.Dependencies) (protocol.Consumer, error) {
	var s settings
	if err := config.Decode(cfg, &s); err != nil {
		return nil, err
	}

	return New(s.Cron, deps.MessageFactory, deps.Logger)
}
