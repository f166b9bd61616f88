package events

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/taleforge/types"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestIDSource_MonotonicWithinMillisecond(t *testing.T) {
	src := NewIDSource()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	prev := src.New(now)
	for i := 0; i < 100; i++ {
		next := src.New(now)
		assert.Greater(t, next, prev)
		prev = next
	}

	id, err := ulid.Parse(prev)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(now), id.Time())
}

func TestBus_DeliversInOrderAndJoinsErrors(t *testing.T) {
	bus := NewBus(quietLogger())
	var calls []string
	boom := errors.New("disk full")

	bus.Subscribe("first", func(turn int, evs []types.SemanticEvent) error {
		calls = append(calls, "first")
		return nil
	})
	bus.Subscribe("journal", func(turn int, evs []types.SemanticEvent) error {
		calls = append(calls, "journal")
		return boom
	})
	bus.Subscribe("last", func(turn int, evs []types.SemanticEvent) error {
		calls = append(calls, "last")
		return nil
	})

	err := bus.Publish(1, []types.SemanticEvent{{Type: "opened"}})
	assert.Equal(t, []string{"first", "journal", "last"}, calls)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "journal")
}

func TestLog(t *testing.T) {
	log := NewLog(2)
	require.NoError(t, log.Append(1, []types.SemanticEvent{{Type: "looked"}}))
	require.NoError(t, log.Append(2, []types.SemanticEvent{{Type: "taken"}, {Type: "said"}}))
	require.NoError(t, log.Append(3, []types.SemanticEvent{{Type: "opened"}}))

	assert.Equal(t, 2, log.Len())
	_, ok := log.Turn(1)
	assert.False(t, ok, "oldest turn is evicted")

	evs, ok := log.Turn(2)
	require.True(t, ok)
	assert.Len(t, evs, 2)
	assert.Len(t, log.Events(), 3)
	assert.Len(t, OfType(log.Events(), "said"), 1)

	assert.Error(t, log.Append(3, nil), "turn numbers are never reused")
}
