package main

import (
	"fmt"

	"alife.ai/internal/persistence/snapshot"
	"alife.ai/internal/sim/world"
)

type report struct {
	TurnRecords int
	Events      int
	EnergyMoved int
	ByKind      map[string]int
	Violations  []string
}

// audit cross-checks the audit streams against each other and against the snapshot.
// Only records up to the snapshot turn are compared with the snapshot.
func audit(snap snapshot.SnapshotV1, turns []world.TurnResult, events []world.Event) report {
	rep := report{TurnRecords: len(turns), Events: len(events), ByKind: map[string]int{}}
	fail := func(format string, args ...any) {
		rep.Violations = append(rep.Violations, fmt.Sprintf(format, args...))
	}

	diedAt := map[string]int{}
	for _, ev := range events {
		rep.ByKind[string(ev.Kind)]++
		switch ev.Kind {
		case world.EventDeath:
			if t, ok := diedAt[ev.AgentID]; ok {
				fail("agent %s died twice (turns %d and %d)", ev.AgentID, t, ev.Turn)
				continue
			}
			diedAt[ev.AgentID] = ev.Turn
		case world.EventTransfer:
			amount := number(ev.Details["amount"])
			requested := number(ev.Details["requested"])
			if amount <= 0 {
				fail("turn %d: transfer by %s with non-positive amount %d", ev.Turn, ev.AgentID, amount)
			}
			if requested > 0 && amount > requested {
				fail("turn %d: transfer by %s moved %d > requested %d", ev.Turn, ev.AgentID, amount, requested)
			}
			rep.EnergyMoved += amount
		}
	}

	for _, r := range turns {
		if r.EnergyAfter < 0 {
			fail("turn %d: %s ended with negative energy %d", r.Turn, r.AgentID, r.EnergyAfter)
		}
		if r.Status != "ok" && !r.Action.IsNoop() {
			fail("turn %d: %s has status %s but a non-empty action", r.Turn, r.AgentID, r.Status)
		}
		if t, ok := diedAt[r.AgentID]; ok && r.Turn > t {
			fail("turn %d: %s acted after dying at turn %d", r.Turn, r.AgentID, t)
		}
		for _, ev := range r.Events {
			if ev.Kind == world.EventTransfer && number(ev.Details["amount"]) > r.EnergyBefore {
				fail("turn %d: %s transferred more than it held", r.Turn, r.AgentID)
			}
		}
	}

	for _, a := range snap.Agents {
		t, died := diedAt[a.ID]
		if died && t <= snap.Header.Turn && (a.Alive || a.Energy != 0) {
			fail("agent %s died at turn %d but snapshot has alive=%v energy=%d", a.ID, t, a.Alive, a.Energy)
		}
		if a.Energy < 0 {
			fail("agent %s has negative energy %d in snapshot", a.ID, a.Energy)
		}
	}
	return rep
}

// number reads a JSON-decoded integer detail.
func number(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
