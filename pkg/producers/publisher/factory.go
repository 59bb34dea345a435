package publisher

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
	return "publisher"
}

func (f *Factory) Name() string {
	return "Topic Publisher"
}

func (f *Factory) Description() string {
	return "Publishes messages to a topic of the channel's pub/sub connection"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"title":                "Topic Publisher Configuration",
		"additionalProperties": false,
		"properties": map[string]any{
			"topic": map[string]any{
				"type":        "string",
				"description": "Topic to publish to",
			},
		},
		"required": []any{"topic"},
	}
}

func (f *Factory) Create(cfg map[string]any, deps protocol.Dependencies) (protocol.Producer, error) {
	var s settings
	if err := config.Decode(cfg, &s); err != nil {
		return nil, err
	}

	source, ok := deps.Connection.(PublisherSource)
	if !ok {
		return nil, fmt.Errorf("%w, got %T", ErrConnectionRequired, deps.Connection)
	}

	return New(source, s.Topic, deps.Logger)
}
