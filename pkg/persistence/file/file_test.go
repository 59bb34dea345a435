package file_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/persistence"
	"github.com/dukex/operion-triggered/pkg/persistence/file"
)

func record(id, channelID string, startedAt time.Time) *models.CycleRecord {
	return &models.CycleRecord{
		ID:         id,
		ChannelID:  channelID,
		MessageID:  "msg-" + id,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(time.Second),
		Outcome:    models.CycleOutcomeCompleted,
		Workers:    1,
	}
}

func TestPersistence_SaveAndGet(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, p.SaveCycle(ctx, record("c1", "operion:type=TriggeredChannel,uid=a/b", now)))

	got, err := p.CycleByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "operion:type=TriggeredChannel,uid=a/b", got.ChannelID)
	assert.Equal(t, "msg-c1", got.MessageID)
	assert.Equal(t, time.Second, got.Duration())
}

func TestPersistence_CycleByID_NotFound(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())

	_, err := p.CycleByID(context.Background(), "missing")

	assert.True(t, persistence.IsCycleNotFound(err))
}

func TestPersistence_SaveRejectsInvalid(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())

	err := p.SaveCycle(context.Background(), &models.CycleRecord{ChannelID: "c"})

	assert.ErrorIs(t, err, persistence.ErrInvalidCycle)
}

func TestPersistence_CyclesNewestFirstWithLimit(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, p.SaveCycle(ctx, record(id, "orders", base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, p.SaveCycle(ctx, record("other", "invoices", base)))

	records, err := p.Cycles(ctx, "orders", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "d", records[0].ID)
	assert.Equal(t, "c", records[1].ID)

	all, err := p.Cycles(ctx, "orders", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestPersistence_CyclesUnknownChannel(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())

	records, err := p.Cycles(context.Background(), "nobody", 10)

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPersistence_HealthCheck(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ctx := context.Background()

	assert.NoError(t, file.NewPersistence("file://"+root).HealthCheck(ctx))
	assert.Error(t, file.NewPersistence(filepath.Join(root, "missing")).HealthCheck(ctx))
}
