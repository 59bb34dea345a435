package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/persistence"
	"github.com/dukex/operion-triggered/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"cycles", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres container tests are skipped in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("operion_test"),
			postgres.WithUsername("operion"),
			postgres.WithPassword("operion"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func newRecord(channelID string, startedAt time.Time, outcome models.CycleOutcome) *models.CycleRecord {
	return &models.CycleRecord{
		ID:         uuid.New().String(),
		ChannelID:  channelID,
		MessageID:  uuid.New().String(),
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(time.Second),
		Outcome:    outcome,
		Workers:    2,
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var version int
	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestPersistence_SaveAndGet(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	startedAt := time.Now().UTC().Truncate(time.Millisecond)
	record := newRecord("orders", startedAt, models.CycleOutcomeFailed)
	record.Error = "startup: connection refused"
	record.FailedWorkers = 1

	require.NoError(t, p.SaveCycle(ctx, record))

	got, err := p.CycleByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ChannelID, got.ChannelID)
	assert.Equal(t, record.MessageID, got.MessageID)
	assert.Equal(t, models.CycleOutcomeFailed, got.Outcome)
	assert.Equal(t, "startup: connection refused", got.Error)
	assert.Equal(t, 1, got.FailedWorkers)
	assert.WithinDuration(t, startedAt, got.StartedAt, time.Millisecond)
	assert.Equal(t, time.Second, got.Duration().Round(time.Millisecond))
}

func TestPersistence_SaveUpserts(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	record := newRecord("orders", time.Now().UTC(), models.CycleOutcomeCompleted)
	require.NoError(t, p.SaveCycle(ctx, record))

	record.Outcome = models.CycleOutcomeFailed
	record.Error = "produce: broker down"
	require.NoError(t, p.SaveCycle(ctx, record))

	got, err := p.CycleByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CycleOutcomeFailed, got.Outcome)
	assert.Equal(t, "produce: broker down", got.Error)
}

func TestPersistence_CycleByID_NotFound(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	_, err := p.CycleByID(ctx, "missing")

	assert.True(t, persistence.IsCycleNotFound(err))
}

func TestPersistence_SaveRejectsInvalid(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.SaveCycle(ctx, &models.CycleRecord{ID: "no-channel"})

	assert.ErrorIs(t, err, persistence.ErrInvalidCycle)
}

func TestPersistence_CyclesNewestFirst(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := range 5 {
		require.NoError(t, p.SaveCycle(ctx, newRecord("orders", base.Add(time.Duration(i)*time.Minute), models.CycleOutcomeCompleted)))
	}
	require.NoError(t, p.SaveCycle(ctx, newRecord("invoices", base, models.CycleOutcomeCompleted)))

	records, err := p.Cycles(ctx, "orders", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].StartedAt.After(records[i].StartedAt))
	}

	all, err := p.Cycles(ctx, "orders", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
