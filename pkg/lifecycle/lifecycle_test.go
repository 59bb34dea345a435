package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/operion-triggered/pkg/log"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type recorder struct {
	name  string
	calls *[]string
	fail  map[string]bool
}

func (r *recorder) call(op string) error {
	*r.calls = append(*r.calls, r.name+"."+op)
	if r.fail[op] {
		return errBoom
	}

	return nil
}

func (r *recorder) Init(context.Context) error  { return r.call("init") }
func (r *recorder) Start(context.Context) error { return r.call("start") }
func (r *recorder) Stop(context.Context) error  { return r.call("stop") }
func (r *recorder) Close(context.Context) error { return r.call("close") }

func TestInitAndStart_Order(t *testing.T) {
	var calls []string

	a := &recorder{name: "a", calls: &calls}
	b := &recorder{name: "b", calls: &calls}

	require.NoError(t, InitAndStart(context.Background(), a, nil, b))

	assert.Equal(t, []string{"a.init", "a.start", "b.init", "b.start"}, calls)
}

func TestInitAndStart_StopsAtFirstError(t *testing.T) {
	var calls []string

	a := &recorder{name: "a", calls: &calls, fail: map[string]bool{"start": true}}
	b := &recorder{name: "b", calls: &calls}

	err := InitAndStart(context.Background(), a, b)

	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"a.init", "a.start"}, calls)
}

func TestStopAndClose_SwallowsErrors(t *testing.T) {
	var calls []string

	a := &recorder{name: "a", calls: &calls, fail: map[string]bool{"stop": true, "close": true}}
	b := &recorder{name: "b", calls: &calls}

	StopAndClose(context.Background(), log.Discard(), a, b)

	assert.Equal(t, []string{"a.stop", "a.close", "b.stop", "b.close"}, calls)
}

func TestNilComponentsAreSkipped(t *testing.T) {
	var typedNil *recorder

	components := []protocol.Component{nil, typedNil}

	assert.NoError(t, Init(context.Background(), components...))
	assert.NoError(t, Start(context.Background(), components...))
	Stop(context.Background(), log.Discard(), components...)
	Close(context.Background(), log.Discard(), components...)
}

func TestTracker(t *testing.T) {
	tracker := NewTracker()

	assert.Equal(t, models.StateClosed, tracker.State())
	assert.True(t, tracker.ToInit())
	assert.False(t, tracker.ToStop())
	assert.False(t, tracker.ToClose())

	_, err := tracker.ToStart()
	require.ErrorIs(t, err, ErrIllegalTransition)

	tracker.Set(models.StateInitialised)
	assert.False(t, tracker.ToInit())

	ok, err := tracker.ToStart()
	require.NoError(t, err)
	assert.True(t, ok)

	tracker.Set(models.StateStarted)
	ok, err = tracker.ToStart()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, tracker.ToStop())

	tracker.Set(models.StateStopped)
	assert.False(t, tracker.ToStop())
	assert.True(t, tracker.ToClose())
}
