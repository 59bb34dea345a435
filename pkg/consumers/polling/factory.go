package polling

import (
	"errors"
	"fmt"

	"github.com/dukex/operion-triggered/pkg/config"
	"github.com/dukex/operion-triggered/pkg/poller"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

const (
	PollerOneTime = "one-time"
	PollerCron    = "cron"
)

var ErrNoProviderBuilder = errors.New("polling consumer needs a provider builder")

type pollerSettings struct {
	Type     string `mapstructure:"type" validate:"omitempty,oneof=one-time cron"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Type cron"`
}

type providerSettings struct {
	Type     string         `mapstructure:"type" validate:"required"`
	Settings map[string]any `mapstructure:"settings"`
}

type settings struct {
	Poller   pollerSettings   `mapstructure:"poller"`
	Provider providerSettings `mapstructure:"provider"`
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "polling"
}

func (f *Factory) Name() string {
	return "Polling Consumer"
}

func (f *Factory) Description() string {
	return "Pulls messages from a provider. Use the one-time poller inside triggered channels; a cron poller never lets the cycle finish."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"title":                "Polling Consumer Configuration",
		"additionalProperties": false,
		"properties": map[string]any{
			"poller": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type": map[string]any{
						"type":    "string",
						"enum":    []any{PollerOneTime, PollerCron},
						"default": PollerOneTime,
					},
					"schedule": map[string]any{
						"type":        "string",
						"description": "Cron expression, required for the cron poller",
					},
				},
			},
			"provider": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type":     map[string]any{"type": "string"},
					"settings": map[string]any{"type": "object"},
				},
				"required": []any{"type"},
			},
		},
		"required": []any{"provider"},
	}
}

func (f *Factory) Create(cfg map[string]any, deps protocol.Dependencies) (protocol.Consumer, error) {
	var s settings
	if err := config.Decode(cfg, &s); err != nil {
		return nil, err
	}

	if deps.Providers == nil {
		return nil, ErrNoProviderBuilder
	}

	provider, err := deps.Providers(s.Provider.Type, s.Provider.Settings, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", s.Provider.Type, err)
	}

	var p protocol.Poller

	switch s.Poller.Type {
	case PollerCron:
		p, err = poller.NewCron(s.Poller.Schedule, deps.Logger)
		if err != nil {
			return nil, err
		}
	default:
		p = poller.NewOneTime(deps.Logger)
	}

	return New(p, provider, deps.Logger)
}
