package remote

import (
	"github.com/dukex/operion-triggered/pkg/config"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

type settings struct {
	UniqueID string `mapstructure:"unique_id"`
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return "management"
}

func (f *Factory) Name() string {
	return "Management Trigger"
}

func (f *Factory) Description() string {
	return "Registers a remotely invokable trigger operation named " + ObjectNamePrefix + "<unique_id>. Each invocation starts one cycle."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"title":                "Management Trigger Configuration",
		"additionalProperties": false,
		"properties": map[string]any{
			"unique_id": map[string]any{
				"type":        "string",
				"description": "Identifier appended to the management object name",
			},
		},
	}
}

// Create does not reject a missing unique_id; Init reports it as a
// configuration error.
func (f *Factory) Create(cfg map[string]any, deps protocol.Dependencies) (protocol.Consumer, error) {
	var s settings
	if err := config.Decode(cfg, &s); err != nil {
		return nil, err
	}

	return New(s.UniqueID, deps.Management, deps.MessageFactory, deps.Logger), nil
}
