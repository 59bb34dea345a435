package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var ErrSchemaViolation = errors.New("payload does not match schema")

// JSONSchema rejects payloads that are not valid against a JSON schema. A
// rejected message fails the workflow and goes to its error handler.
type JSONSchema struct {
	schema *gojsonschema.Schema
}

// NewJSONSchema compiles schema, given either as a decoded document or as
// a JSON string.
func NewJSONSchema(schema any) (*JSONSchema, error) {
	var loader gojsonschema.JSONLoader

	switch s := schema.(type) {
	case string:
		loader = gojsonschema.NewStringLoader(s)
	default:
		loader = gojsonschema.NewGoLoader(s)
	}

	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}

	return &JSONSchema{schema: compiled}, nil
}

func (s *JSONSchema) Apply(_ context.Context, msg *models.Message) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(msg.Payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaViolation, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(details, "; "))
	}

	return nil
}

var _ protocol.Service = (*JSONSchema)(nil)
