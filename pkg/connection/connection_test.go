package connection

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/alicebob/miniredis/v2"
	"github.com/dukex/operion-triggered/pkg/log"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/null"
	"github.com/dukex/operion-triggered/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShared_Registrations(t *testing.T) {
	conn := NewShared()
	consumer := null.NewConsumer()
	producer := null.NewProducer()

	conn.AddConsumer(consumer)
	conn.AddConsumer(consumer)
	conn.AddProducer(producer)

	assert.Len(t, conn.Consumers(), 1)
	assert.Len(t, conn.Producers(), 1)
}

func TestShared_Lifecycle(t *testing.T) {
	ctx := context.Background()
	conn := NewShared()

	require.Error(t, conn.Start(ctx), "start before init")

	require.NoError(t, conn.Init(ctx))
	assert.Equal(t, models.StateInitialised, conn.State())

	require.NoError(t, conn.Start(ctx))
	require.NoError(t, conn.Start(ctx))
	assert.Equal(t, models.StateStarted, conn.State())

	require.NoError(t, conn.Stop(ctx))
	assert.Equal(t, models.StateStopped, conn.State())

	require.NoError(t, conn.Close(ctx))
	assert.Equal(t, models.StateClosed, conn.State())
}

func TestRedis_Cycle(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)

	conn := NewRedis(server.Addr(), "", 0, log.Discard())

	_, err := conn.Client()
	require.ErrorIs(t, err, ErrNotConnected)

	for range 2 {
		require.NoError(t, conn.Init(ctx))
		require.NoError(t, conn.Start(ctx))

		client, err := conn.Client()
		require.NoError(t, err)
		require.NoError(t, client.Set(ctx, "key", "value", 0).Err())

		require.NoError(t, conn.Stop(ctx))
		require.NoError(t, conn.Close(ctx))

		_, err = conn.Client()
		require.ErrorIs(t, err, ErrNotConnected)
	}

	value, err := server.Get("key")
	require.NoError(t, err)
	assert.Equal(t, "value", value)
}

func TestRedis_StartFailsWhenUnreachable(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	conn := NewRedis(addr, "", 0, log.Discard())

	require.NoError(t, conn.Init(ctx))
	require.Error(t, conn.Start(ctx))

	_, err := conn.Client()
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, models.StateInitialised, conn.State())
}

func TestNewRedis_DefaultAddr(t *testing.T) {
	conn := NewRedis("", "", 0, log.Discard())

	assert.Equal(t, DefaultRedisAddr, conn.Addr)
}

func TestPubSub_FactoryLifecycle(t *testing.T) {
	ctx := context.Background()
	created := 0

	conn := NewPubSub(func() (message.Publisher, message.Subscriber, error) {
		created++
		pubSub := transport.NewGoChannel(watermill.NopLogger{})

		return pubSub, pubSub, nil
	}, log.Discard())

	_, err := conn.Publisher()
	require.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, conn.Init(ctx))
	require.NoError(t, conn.Start(ctx))

	pub, err := conn.Publisher()
	require.NoError(t, err)
	assert.NotNil(t, pub)

	sub, err := conn.Subscriber()
	require.NoError(t, err)
	assert.NotNil(t, sub)

	require.NoError(t, conn.Stop(ctx))
	require.NoError(t, conn.Close(ctx))

	_, err = conn.Publisher()
	require.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, conn.Init(ctx))
	require.NoError(t, conn.Start(ctx))
	assert.Equal(t, 2, created)
}

func TestPubSub_FactoryError(t *testing.T) {
	ctx := context.Background()
	errFactory := errors.New("no brokers")

	conn := NewPubSub(func() (message.Publisher, message.Subscriber, error) {
		return nil, nil, errFactory
	}, log.Discard())

	require.NoError(t, conn.Init(ctx))
	require.ErrorIs(t, conn.Start(ctx), errFactory)
}

func TestSharedPubSub_NeverCloses(t *testing.T) {
	ctx := context.Background()
	pubSub := transport.NewGoChannel(watermill.NopLogger{})

	defer pubSub.Close()

	conn := NewSharedPubSub(pubSub, pubSub, log.Discard())

	require.NoError(t, conn.Init(ctx))
	require.NoError(t, conn.Start(ctx))
	require.NoError(t, conn.Stop(ctx))
	require.NoError(t, conn.Close(ctx))

	pub, err := conn.Publisher()
	require.NoError(t, err)
	require.NoError(t, pub.Publish("topic", message.NewMessage("1", []byte("still open"))))
}
