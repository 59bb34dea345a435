package trigger

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/operion-triggered/pkg/null"
	"github.com/dukex/operion-triggered/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecordedTrigger(log *testutil.CallLog) (*Trigger, *testutil.MockConsumer, *testutil.CaptureProducer, *testutil.FakeConnection) {
	consumer := testutil.NewMockConsumer("consumer", log)
	producer := testutil.NewCaptureProducer("producer", log)
	connection := testutil.NewFakeConnection("connection", log)

	return New(WithConsumer(consumer), WithProducer(producer), WithConnection(connection)), consumer, producer, connection
}

func TestNew_Defaults(t *testing.T) {
	trg := New()

	assert.IsType(t, &null.Consumer{}, trg.Consumer())
	assert.IsType(t, &null.Producer{}, trg.Producer())
	assert.IsType(t, &null.Connection{}, trg.Connection())

	ctx := context.Background()
	require.NoError(t, trg.Init(ctx))
	require.NoError(t, trg.Start(ctx))
	require.NoError(t, trg.Stop(ctx))
	require.NoError(t, trg.Close(ctx))
}

func TestNew_NilOptionsKeepDefaults(t *testing.T) {
	trg := New(WithConsumer(nil), WithProducer(nil), WithConnection(nil))

	assert.NotNil(t, trg.Consumer())
	assert.NotNil(t, trg.Producer())
	assert.NotNil(t, trg.Connection())
}

func TestTrigger_LifecycleOrder(t *testing.T) {
	ctx := context.Background()
	log := &testutil.CallLog{}

	trg, consumer, producer, connection := newRecordedTrigger(log)

	assert.Same(t, consumer, trg.Consumer())
	assert.Same(t, producer, trg.Producer())

	require.NoError(t, trg.Init(ctx))
	require.NoError(t, trg.Start(ctx))
	require.NoError(t, trg.Stop(ctx))
	require.NoError(t, trg.Close(ctx))

	assert.Equal(t, []string{
		"connection.add_producer",
		"connection.add_consumer",
		"connection.init",
		"producer.init",
		"consumer.init",
		"connection.start",
		"producer.start",
		"consumer.start",
		"consumer.stop",
		"producer.stop",
		"connection.stop",
		"consumer.close",
		"producer.close",
		"connection.close",
	}, log.Calls())

	assert.Len(t, connection.Consumers(), 1)
	assert.Len(t, connection.Producers(), 1)
}

func TestTrigger_StartFailure(t *testing.T) {
	ctx := context.Background()
	log := &testutil.CallLog{}
	errRefused := errors.New("refused")

	trg, _, producer, _ := newRecordedTrigger(log)
	producer.Fail("start", errRefused)

	require.NoError(t, trg.Init(ctx))

	err := trg.Start(ctx)
	require.ErrorIs(t, err, errRefused)
	assert.Contains(t, err.Error(), "start trigger producer")
	assert.Zero(t, trg.Consumer().(*testutil.MockConsumer).Count("start"))
}

func TestTrigger_StopContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	log := &testutil.CallLog{}
	errStuck := errors.New("stuck")

	trg, consumer, producer, connection := newRecordedTrigger(log)
	consumer.Fail("stop", errStuck)

	err := trg.Stop(ctx)

	require.ErrorIs(t, err, errStuck)
	assert.Equal(t, 1, producer.Count("stop"))
	assert.Equal(t, 1, connection.Count("stop"))
}
