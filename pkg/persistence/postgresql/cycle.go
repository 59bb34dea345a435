package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/persistence"
)

// CycleRepository handles cycle-related database operations.
type CycleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCycleRepository creates a new cycle repository.
func NewCycleRepository(db *sql.DB, logger *slog.Logger) *CycleRepository {
	return &CycleRepository{db: db, logger: logger}
}

const selectCycle = `
		SELECT
			id
		  , channel_id
		  , message_id
		  , started_at
		  , finished_at
		  , outcome
		  , error_message
		  , workers
		  , failed_workers
		FROM cycles
`

// Save inserts a cycle record, replacing any record with the same id.
func (r *CycleRepository) Save(ctx context.Context, record *models.CycleRecord) error {
	if err := persistence.Validate(record); err != nil {
		return persistence.NewRecordError("Save", "", err)
	}

	query := `
		INSERT INTO cycles (
			id, channel_id, message_id, started_at, finished_at,
			outcome, error_message, workers, failed_workers
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			outcome = EXCLUDED.outcome,
			error_message = EXCLUDED.error_message,
			workers = EXCLUDED.workers,
			failed_workers = EXCLUDED.failed_workers
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.ChannelID,
		record.MessageID,
		record.StartedAt,
		nullTime(record.FinishedAt),
		string(record.Outcome),
		nullString(record.Error),
		record.Workers,
		record.FailedWorkers,
	)
	if err != nil {
		return persistence.NewRecordError("Save", record.ID, fmt.Errorf("failed to save cycle: %w", err))
	}

	return nil
}

// GetByID returns a cycle record by its ID.
func (r *CycleRepository) GetByID(ctx context.Context, id string) (*models.CycleRecord, error) {
	row := r.db.QueryRowContext(ctx, selectCycle+" WHERE id = $1", id)

	record, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRecordError("CycleByID", id, persistence.ErrCycleNotFound)
	}

	if err != nil {
		return nil, persistence.NewRecordError("CycleByID", id, fmt.Errorf("failed to query cycle: %w", err))
	}

	return record, nil
}

// ListByChannel returns the latest cycles of a channel, newest first.
func (r *CycleRepository) ListByChannel(ctx context.Context, channelID string, limit int) ([]*models.CycleRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		selectCycle+" WHERE channel_id = $1 ORDER BY started_at DESC LIMIT $2",
		channelID, persistence.NormalizeLimit(limit))
	if err != nil {
		return nil, persistence.NewRecordError("Cycles", "", fmt.Errorf("failed to query cycles: %w", err))
	}

	defer func(ctx context.Context, r *CycleRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	records := make([]*models.CycleRecord, 0)

	for rows.Next() {
		record, err := scanCycle(rows)
		if err != nil {
			return nil, persistence.NewRecordError("Cycles", "", fmt.Errorf("failed to scan cycle: %w", err))
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRecordError("Cycles", "", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCycle(s scanner) (*models.CycleRecord, error) {
	var (
		record     models.CycleRecord
		outcome    string
		finishedAt sql.NullTime
		errMessage sql.NullString
	)

	err := s.Scan(
		&record.ID,
		&record.ChannelID,
		&record.MessageID,
		&record.StartedAt,
		&finishedAt,
		&outcome,
		&errMessage,
		&record.Workers,
		&record.FailedWorkers,
	)
	if err != nil {
		return nil, err
	}

	record.Outcome = models.CycleOutcome(outcome)
	record.StartedAt = record.StartedAt.UTC()

	if finishedAt.Valid {
		record.FinishedAt = finishedAt.Time.UTC()
	}

	record.Error = errMessage.String

	return &record, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
