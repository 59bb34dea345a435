package queue

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dukex/operion-triggered/pkg/connection"
	"github.com/dukex/operion-triggered/pkg/log"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_Pushes(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	conn := connection.NewRedis(server.Addr(), "", 0, log.Discard())

	require.NoError(t, conn.Init(ctx))
	require.NoError(t, conn.Start(ctx))

	defer conn.Close(ctx)

	producer, err := New(conn, "done", log.Discard())
	require.NoError(t, err)

	require.NoError(t, producer.Produce(ctx, models.NewMessageFromString("first")))
	require.NoError(t, producer.Produce(ctx, models.NewMessageFromString("second")))

	items, err := server.List("done")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, items)
}

func TestProducer_NotConnected(t *testing.T) {
	producer, err := New(connection.NewRedis("", "", 0, log.Discard()), "done", log.Discard())
	require.NoError(t, err)

	require.ErrorIs(t, producer.Produce(context.Background(), models.NewMessage(nil)), connection.ErrNotConnected)
}

func TestFactory_Create(t *testing.T) {
	factory := NewFactory()

	producer, err := factory.Create(map[string]any{"queue": "done"}, protocol.Dependencies{
		Logger:     log.Discard(),
		Connection: connection.NewRedis("", "", 0, log.Discard()),
	})
	require.NoError(t, err)
	assert.Equal(t, "done", producer.(*Producer).Queue)

	_, err = factory.Create(map[string]any{"queue": "done"}, protocol.Dependencies{
		Logger:     log.Discard(),
		Connection: connection.NewShared(),
	})
	require.ErrorIs(t, err, ErrConnectionRequired)
}
