package services

import (
	"context"
	"log/slog"

	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

// Log records the message passing through and leaves it unchanged.
type Log struct {
	IncludePayload bool

	logger *slog.Logger
}

func NewLog(includePayload bool, logger *slog.Logger) *Log {
	return &Log{
		IncludePayload: includePayload,
		logger:         logger.With("module", "log_service"),
	}
}

func (s *Log) Apply(ctx context.Context, msg *models.Message) error {
	attrs := []any{"message_id", msg.ID, "size", len(msg.Payload)}
	if s.IncludePayload {
		attrs = append(attrs, "payload", msg.Content())
	}

	s.logger.InfoContext(ctx, "Processing message", attrs...)

	return nil
}

var _ protocol.Service = (*Log)(nil)
