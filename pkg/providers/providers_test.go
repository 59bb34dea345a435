package providers

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dukex/operion-triggered/pkg/connection"
	"github.com/dukex/operion-triggered/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_Defaults(t *testing.T) {
	provider := NewStatic("", 0, nil)

	messages, err := provider.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, DefaultTemplate, messages[0].Content())
}

func TestStatic_Count(t *testing.T) {
	provider := NewStatic("payload", 3, nil)

	messages, err := provider.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.NotEqual(t, messages[0].ID, messages[1].ID)
}

func startedRedis(t *testing.T) (*miniredis.Miniredis, *connection.Redis) {
	t.Helper()

	ctx := context.Background()
	server := miniredis.RunT(t)
	conn := connection.NewRedis(server.Addr(), "", 0, log.Discard())

	require.NoError(t, conn.Init(ctx))
	require.NoError(t, conn.Start(ctx))

	t.Cleanup(func() {
		_ = conn.Close(ctx)
	})

	return server, conn
}

func TestRedisList_DrainsInBatches(t *testing.T) {
	ctx := context.Background()
	server, conn := startedRedis(t)

	_, err := server.Push("jobs", "a", "b", "c")
	require.NoError(t, err)

	provider, err := NewRedisList(conn, "jobs", 2, nil)
	require.NoError(t, err)

	first, err := provider.Next(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "a", first[0].Content())
	assert.Equal(t, "redis:jobs", first[0].Header("trigger_source"))

	second, err := provider.Next(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)

	third, err := provider.Next(ctx)
	require.NoError(t, err)
	assert.Empty(t, third)
}

func TestRedisList_NotConnected(t *testing.T) {
	conn := connection.NewRedis("localhost:0", "", 0, log.Discard())

	provider, err := NewRedisList(conn, "jobs", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBatch, provider.Batch)

	_, err = provider.Next(context.Background())
	require.ErrorIs(t, err, connection.ErrNotConnected)
}

func TestNewRedisList_QueueRequired(t *testing.T) {
	_, err := NewRedisList(nil, "", 1, nil)

	require.ErrorIs(t, err, ErrQueueRequired)
}
