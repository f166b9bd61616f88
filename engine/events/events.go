// Package events carries semantic events out of the simulation: ID
// generation, the per-turn log and a synchronous subscriber bus.
package events

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/nathoo/taleforge/types"
)

// IDSource mints ULIDs that sort in creation order, even within one
// millisecond.
type IDSource struct {
	entropy io.Reader
}

// NewIDSource returns an IDSource backed by crypto/rand.
func NewIDSource() *IDSource {
	return &IDSource{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns a fresh ID stamped with t.
func (s *IDSource) New(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// Handler consumes the events of one completed turn.
type Handler func(turn int, evs []types.SemanticEvent) error

type subscriber struct {
	name string
	fn   Handler
}

// Bus delivers each turn's events to its subscribers, in subscription
// order, after the turn has completed.
type Bus struct {
	subs []subscriber
	log  logrus.FieldLogger
}

// NewBus returns a bus that logs subscriber failures to log.
func NewBus(log logrus.FieldLogger) *Bus {
	return &Bus{log: log}
}

// Subscribe registers a named handler.
func (b *Bus) Subscribe(name string, fn Handler) {
	b.subs = append(b.subs, subscriber{name: name, fn: fn})
}

// Publish hands the turn's events to every subscriber. A failing
// subscriber does not stop delivery to the others; the failures are logged
// and returned joined.
func (b *Bus) Publish(turn int, evs []types.SemanticEvent) error {
	var errs []error
	for _, s := range b.subs {
		if err := s.fn(turn, evs); err != nil {
			if b.log != nil {
				b.log.WithFields(logrus.Fields{
					"subscriber": s.name,
					"turn":       turn,
				}).WithError(err).Warn("event subscriber failed")
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Log keeps the events of the most recent turns in memory.
type Log struct {
	limit int
	turns []turnEvents
}

type turnEvents struct {
	turn   int
	events []types.SemanticEvent
}

// NewLog returns a log retaining at most limit turns; limit <= 0 keeps all.
func NewLog(limit int) *Log {
	return &Log{limit: limit}
}

// Append records a turn. It is a Handler.
func (l *Log) Append(turn int, evs []types.SemanticEvent) error {
	if n := len(l.turns); n > 0 && turn <= l.turns[n-1].turn {
		return fmt.Errorf("append turn %d: log already at turn %d", turn, l.turns[n-1].turn)
	}
	cp := make([]types.SemanticEvent, len(evs))
	copy(cp, evs)
	l.turns = append(l.turns, turnEvents{turn: turn, events: cp})
	if l.limit > 0 && len(l.turns) > l.limit {
		l.turns = l.turns[len(l.turns)-l.limit:]
	}
	return nil
}

// Turn returns the events recorded for a turn.
func (l *Log) Turn(turn int) ([]types.SemanticEvent, bool) {
	for _, t := range l.turns {
		if t.turn == turn {
			return t.events, true
		}
	}
	return nil, false
}

// Events returns every retained event in order.
func (l *Log) Events() []types.SemanticEvent {
	var out []types.SemanticEvent
	for _, t := range l.turns {
		out = append(out, t.events...)
	}
	return out
}

// Len returns the number of retained turns.
func (l *Log) Len() int { return len(l.turns) }

// OfType filters events by type.
func OfType(evs []types.SemanticEvent, typ string) []types.SemanticEvent {
	var out []types.SemanticEvent
	for _, e := range evs {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
