package providers

import (
	"fmt"

	"github.com/dukex/operion-triggered/pkg/config"
	"github.com/dukex/operion-triggered/pkg/connection"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

type StaticFactory struct{}

func NewStaticFactory() *StaticFactory {
	return &StaticFactory{}
}

func (f *StaticFactory) ID() string          { return "static" }
func (f *StaticFactory) Name() string        { return "Static" }
func (f *StaticFactory) Description() string { return "Returns the same payload on every scan" }

func (f *StaticFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"title":                "Static Provider Configuration",
		"additionalProperties": false,
		"properties": map[string]any{
			"template": map[string]any{
				"type":    "string",
				"default": DefaultTemplate,
			},
			"count": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"default": 1,
			},
		},
	}
}

func (f *StaticFactory) Create(cfg map[string]any, deps protocol.Dependencies) (protocol.MessageProvider, error) {
	var s struct {
		Template string `mapstructure:"template"`
		Count    int    `mapstructure:"count" validate:"gte=0"`
	}

	if err := config.Decode(cfg, &s); err != nil {
		return nil, err
	}

	return NewStatic(s.Template, s.Count, deps.MessageFactory), nil
}

type RedisListFactory struct{}

func NewRedisListFactory() *RedisListFactory {
	return &RedisListFactory{}
}

func (f *RedisListFactory) ID() string   { return "redis_list" }
func (f *RedisListFactory) Name() string { return "Redis List" }
func (f *RedisListFactory) Description() string {
	return "Drains a batch of entries from a redis list on every scan"
}

func (f *RedisListFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"title":                "Redis List Provider Configuration",
		"additionalProperties": false,
		"properties": map[string]any{
			"queue": map[string]any{"type": "string"},
			"batch": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"default": DefaultBatch,
			},
		},
		"required": []any{"queue"},
	}
}

func (f *RedisListFactory) Create(cfg map[string]any, deps protocol.Dependencies) (protocol.MessageProvider, error) {
	var s struct {
		Queue string `mapstructure:"queue" validate:"required"`
		Batch int    `mapstructure:"batch" validate:"gte=0"`
	}

	if err := config.Decode(cfg, &s); err != nil {
		return nil, err
	}

	source, ok := deps.Connection.(connection.RedisClient)
	if !ok {
		return nil, fmt.Errorf("redis list provider needs a redis connection, got %T", deps.Connection)
	}

	return NewRedisList(source, s.Queue, s.Batch, deps.MessageFactory)
}
