package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dukex/operion-triggered/pkg/connection"
	"github.com/dukex/operion-triggered/pkg/log"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/null"
	"github.com/dukex/operion-triggered/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func TestConsumer_DeliversQueuedEntries(t *testing.T) {
	ctx := context.Background()
	server, conn := startedRedis(t)
	received := make(chan *models.Message, 10)

	consumer, err := New(conn, "triggers", nil, log.Discard())
	require.NoError(t, err)

	consumer.RegisterListener(protocol.MessageListenerFunc(func(_ context.Context, msg *models.Message) error {
		received <- msg

		return nil
	}))

	require.NoError(t, consumer.Init(ctx))
	require.NoError(t, consumer.Start(ctx))

	_, err = server.Push("triggers", "go")
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, "go", msg.Content())
		assert.Equal(t, "queue:triggers", msg.Header(models.MetadataTriggerSource))
	case <-time.After(3 * time.Second):
		t.Fatal("queued trigger not delivered")
	}

	require.NoError(t, consumer.Stop(ctx))
	require.NoError(t, consumer.Stop(ctx))
}

func TestConsumer_StartRequiresStartedConnection(t *testing.T) {
	conn := connection.NewRedis("localhost:0", "", 0, log.Discard())

	consumer, err := New(conn, "triggers", nil, log.Discard())
	require.NoError(t, err)

	require.ErrorIs(t, consumer.Start(context.Background()), connection.ErrNotConnected)
}

func TestNew_Validation(t *testing.T) {
	conn := connection.NewRedis("", "", 0, log.Discard())

	_, err := New(conn, "", nil, log.Discard())
	require.ErrorIs(t, err, ErrQueueRequired)

	_, err = New(nil, "q", nil, log.Discard())
	require.ErrorIs(t, err, ErrConnectionRequired)
}

func TestFactory_Create(t *testing.T) {
	factory := NewFactory()
	conn := connection.NewRedis("", "", 0, log.Discard())

	consumer, err := factory.Create(map[string]any{"queue": "q"}, protocol.Dependencies{
		Logger:     log.Discard(),
		Connection: conn,
	})
	require.NoError(t, err)
	assert.Equal(t, "q", consumer.(*Consumer).Queue)

	_, err = factory.Create(map[string]any{"queue": "q"}, protocol.Dependencies{
		Logger:     log.Discard(),
		Connection: null.NewConnection(),
	})
	require.ErrorIs(t, err, ErrConnectionRequired)
}
