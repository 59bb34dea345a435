// Package providers supplies the message sources that polling consumers scan.
package providers

import (
	"context"

	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

const DefaultTemplate = "The quick brown fox"

// Static returns Count copies of Template on every call.
type Static struct {
	Template string
	Count    int

	factory models.MessageFactory
}

func NewStatic(template string, count int, factory models.MessageFactory) *Static {
	if template == "" {
		template = DefaultTemplate
	}

	if count <= 0 {
		count = 1
	}

	return &Static{
		Template: template,
		Count:    count,
		factory:  models.FactoryOrDefault(factory),
	}
}

func (s *Static) Next(context.Context) ([]*models.Message, error) {
	messages := make([]*models.Message, 0, s.Count)
	for range s.Count {
		messages = append(messages, s.factory([]byte(s.Template)))
	}

	return messages, nil
}

var _ protocol.MessageProvider = (*Static)(nil)
