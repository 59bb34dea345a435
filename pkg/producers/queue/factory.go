package queue

import (
	"fmt"

	"github.com/dukex/operion-triggered/pkg/config"
	"github.com/dukex/operion-triggered/pkg/connection"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

type settings struct {
	Queue string `mapstructure:"queue" validate:"required"`
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "queue"
}

func (f *Factory) Name() string {
	return "Redis Queue"
}

func (f *Factory) Description() string {
	return "Appends each message payload to a redis list"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"title":                "Redis Queue Producer Configuration",
		"additionalProperties": false,
		"properties": map[string]any{
			"queue": map[string]any{
				"type":        "string",
				"description": "Name of the redis list to push to",
			},
		},
		"required": []any{"queue"},
	}
}

func (f *Factory) Create(cfg map[string]any, deps protocol.Dependencies) (protocol.Producer, error) {
	var s settings
	if err := config.Decode(cfg, &s); err != nil {
		return nil, err
	}

	conn, ok := deps.Connection.(connection.RedisClient)
	if !ok {
		return nil, fmt.Errorf("%w, got %T", ErrConnectionRequired, deps.Connection)
	}

	return New(conn, s.Queue, deps.Logger)
}
