package subscriber

import (
	"fmt"

	"github.com/dukex/operion-triggered/pkg/config"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

type settings struct {
	Topic string `mapstructure:"topic" validate:"required"`
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "subscriber"
}

func (f *Factory) Name() string {
	return "Topic Subscriber"
}

func (f *Factory) Description() string {
	return "Delivers every message published on a topic of the channel's pub/sub connection"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"title":                "Topic Subscriber Configuration",
		"additionalProperties": false,
		"properties": map[string]any{
			"topic": map[string]any{
				"type":        "string",
				"description": "Topic to subscribe to",
			},
		},
		"required": []any{"topic"},
	}
}

func (f *Factory) Create(cfg map[string]any, deps protocol.Dependencies) (protocol.Consumer, error) {
	var s settings
	if err := config.Decode(cfg, &s); err != nil {
		return nil, err
	}

	source, ok := deps.Connection.(SubscriberSource)
	if !ok {
		return nil, fmt.Errorf("%w, got %T", ErrConnectionRequired, deps.Connection)
	}

	return New(source, s.Topic, deps.Logger)
}
