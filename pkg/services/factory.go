package services

import (
	"github.com/dukex/operion-triggered/pkg/config"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

type MetadataFactory struct{}

func (f *MetadataFactory) ID() string          { return "metadata" }
func (f *MetadataFactory) Name() string        { return "Add Metadata" }
func (f *MetadataFactory) Description() string { return "Sets fixed metadata entries on every message" }

func (f *MetadataFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"values": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
		},
		"required": []any{"values"},
	}
}

func (f *MetadataFactory) Create(cfg map[string]any, _ protocol.Dependencies) (protocol.Service, error) {
	var s struct {
		Values map[string]string `mapstructure:"values" validate:"required"`
	}

	if err := config.Decode(cfg, &s); err != nil {
		return nil, err
	}

	return NewMetadata(s.Values), nil
}

type LogFactory struct{}

func (f *LogFactory) ID() string          { return "log" }
func (f *LogFactory) Name() string        { return "Log" }
func (f *LogFactory) Description() string { return "Logs every message passing through" }

func (f *LogFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"include_payload": map[string]any{"type": "boolean", "default": false},
		},
	}
}

func (f *LogFactory) Create(cfg map[string]any, deps protocol.Dependencies) (protocol.Service, error) {
	var s struct {
		IncludePayload bool `mapstructure:"include_payload"`
	}

	if err := config.Decode(cfg, &s); err != nil {
		return nil, err
	}

	return NewLog(s.IncludePayload, deps.Logger), nil
}

type JSONSchemaFactory struct{}

func (f *JSONSchemaFactory) ID() string   { return "json_schema" }
func (f *JSONSchemaFactory) Name() string { return "JSON Schema Validation" }
func (f *JSONSchemaFactory) Description() string {
	return "Fails messages whose payload does not validate against a JSON schema"
}

func (f *JSONSchemaFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"schema": map[string]any{
				"description": "JSON schema document, inline or as a JSON string",
			},
		},
		"required": []any{"schema"},
	}
}

func (f *JSONSchemaFactory) Create(cfg map[string]any, _ protocol.Dependencies) (protocol.Service, error) {
	var s struct {
		Schema any `mapstructure:"schema" validate:"required"`
	}

	if err := config.Decode(cfg, &s); err != nil {
		return nil, err
	}

	return NewJSONSchema(s.Schema)
}

type TemplateFactory struct{}

func (f *TemplateFactory) ID() string          { return "template" }
func (f *TemplateFactory) Name() string        { return "Template" }
func (f *TemplateFactory) Description() string { return "Rewrites the payload from a text template" }

func (f *TemplateFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"template": map[string]any{"type": "string"},
		},
		"required": []any{"template"},
	}
}

func (f *TemplateFactory) Create(cfg map[string]any, _ protocol.Dependencies) (protocol.Service, error) {
	var s struct {
		Template string `mapstructure:"template" validate:"required"`
	}

	if err := config.Decode(cfg, &s); err != nil {
		return nil, err
	}

	return NewTemplate(s.Template)
}
