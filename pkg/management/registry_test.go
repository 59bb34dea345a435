package management

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/operion-triggered/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterInvokeUnregister(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(log.Discard())
	calls := 0

	require.NoError(t, registry.Register("operion:type=TriggeredChannel,uid=a", Operations{
		"trigger": func(context.Context) error {
			calls++

			return nil
		},
	}))

	assert.True(t, registry.IsRegistered("operion:type=TriggeredChannel,uid=a"))
	require.NoError(t, registry.Invoke(ctx, "operion:type=TriggeredChannel,uid=a", "trigger"))
	assert.Equal(t, 1, calls)

	require.NoError(t, registry.Unregister("operion:type=TriggeredChannel,uid=a"))

	err := registry.Invoke(ctx, "operion:type=TriggeredChannel,uid=a", "trigger")
	require.ErrorIs(t, err, ErrInstanceNotFound)
	assert.Equal(t, 1, calls)
}

func TestRegistry_Errors(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(log.Discard())
	errOp := errors.New("operation failed")

	require.ErrorIs(t, registry.Register("", Operations{}), ErrInvalidName)

	require.NoError(t, registry.Register("a", Operations{
		"fail": func(context.Context) error { return errOp },
	}))
	require.ErrorIs(t, registry.Register("a", Operations{}), ErrAlreadyRegistered)

	require.ErrorIs(t, registry.Invoke(ctx, "a", "missing"), ErrOperationNotFound)
	require.ErrorIs(t, registry.Invoke(ctx, "a", "fail"), errOp)
	require.ErrorIs(t, registry.Unregister("b"), ErrInstanceNotFound)

	_, err := registry.Instance("b")
	require.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestRegistry_Instances(t *testing.T) {
	registry := NewRegistry(log.Discard())
	noop := func(context.Context) error { return nil }

	require.NoError(t, registry.Register("b", Operations{"stop": noop, "start": noop}))
	require.NoError(t, registry.Register("a", Operations{"trigger": noop}))

	assert.Equal(t, []Instance{
		{Name: "a", Operations: []string{"trigger"}},
		{Name: "b", Operations: []string{"start", "stop"}},
	}, registry.Instances())
}
