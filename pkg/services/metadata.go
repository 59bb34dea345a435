// Package services provides the message services a workflow applies between
// its consumer and its producer.
package services

import (
	"context"

	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

// Metadata sets fixed metadata entries, overwriting existing values.
type Metadata struct {
	Values map[string]string
}

func NewMetadata(values map[string]string) *Metadata {
	return &Metadata{Values: values}
}

func (s *Metadata) Apply(_ context.Context, msg *models.Message) error {
	for k, v := range s.Values {
		msg.SetHeader(k, v)
	}

	return nil
}

var _ protocol.Service = (*Metadata)(nil)
