package mocks

import (
	"context"

	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
	"github.com/stretchr/testify/mock"
)

// MockMessageProvider is a mock implementation of protocol.MessageProvider interface.
type MockMessageProvider struct {
	mock.Mock
}

func (m *MockMessageProvider) Next(ctx context.Context) ([]*models.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Message), args.Error(1)
}

var _ protocol.MessageProvider = (*MockMessageProvider)(nil)
