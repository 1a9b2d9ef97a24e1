package engine

import (
	"alife.ai/internal/persistence/snapshot"
	"alife.ai/internal/sim/world"
)

// TurnLogger receives one record per agent-turn.
type TurnLogger interface {
	WriteTurn(world.TurnResult) error
}

// EventLogger receives one record per state change.
type EventLogger interface {
	WriteEvent(world.Event) error
}

type SnapshotSaver interface {
	Save(snapshot.SnapshotV1) error
}

// TurnObserver is notified after a turn has been applied and persisted.
// It must treat st as read-only.
type TurnObserver interface {
	ObserveTurn(st *world.State, results []world.TurnResult, sweep []world.Event)
}

type multiTurnLogger []TurnLogger

func (m multiTurnLogger) WriteTurn(r world.TurnResult) error {
	var first error
	for _, l := range m {
		if err := l.WriteTurn(r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type multiEventLogger []EventLogger

func (m multiEventLogger) WriteEvent(e world.Event) error {
	var first error
	for _, l := range m {
		if err := l.WriteEvent(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// TurnLoggers fans turn records out to every non-nil logger.
func TurnLoggers(ls ...TurnLogger) TurnLogger {
	var out multiTurnLogger
	for _, l := range ls {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

// EventLoggers fans events out to every non-nil logger.
func EventLoggers(ls ...EventLogger) EventLogger {
	var out multiEventLogger
	for _, l := range ls {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}
