// Package persistence stores the history of trigger cycles.
package persistence

import (
	"context"

	"github.com/dukex/operion-triggered/pkg/models"
)

// DefaultLimit bounds Cycles when the caller passes a non-positive limit.
const DefaultLimit = 20

type Persistence interface {
	SaveCycle(ctx context.Context, record *models.CycleRecord) error
	CycleByID(ctx context.Context, id string) (*models.CycleRecord, error)

	// Cycles returns the most recent records for a channel, newest first.
	Cycles(ctx context.Context, channelID string, limit int) ([]*models.CycleRecord, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// Validate checks the fields every implementation requires.
func Validate(record *models.CycleRecord) error {
	if record == nil || record.ID == "" || record.ChannelID == "" {
		return ErrInvalidCycle
	}

	return nil
}

// NormalizeLimit applies DefaultLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}

	return limit
}
