package engine

import (
	"context"
	"errors"
	"fmt"
)

type StopReason string

const (
	StopExtinction StopReason = "extinction"
	StopTurnBudget StopReason = "turn_budget"
	StopCanceled   StopReason = "canceled"
)

// Run executes turns until the population dies out, the turn budget is spent or
// ctx is canceled between turns. Snapshot failures are logged and the run continues.
// A resumed state whose turn counter already meets the budget stops without acting.
func (e *Engine) Run(ctx context.Context) (StopReason, error) {
	if e.phase == PhaseEnded {
		return "", ErrEnded
	}
	if e.store != nil {
		if err := e.store.Save(e.state.ExportSnapshot(e.cfg.RunID)); err != nil {
			e.logger.Printf("initial snapshot: %v", fmt.Errorf("%w: %v", ErrPersist, err))
		}
	}

	for {
		if reason, stop := e.shouldStop(ctx); stop {
			e.phase = PhaseEnded
			return reason, nil
		}
		if _, err := e.RunTurn(ctx); err != nil {
			if !errors.Is(err, ErrPersist) {
				e.phase = PhaseEnded
				return "", err
			}
			e.logger.Printf("turn %d: %v", e.state.Turn, err)
		}
	}
}

func (e *Engine) shouldStop(ctx context.Context) (StopReason, bool) {
	if len(e.state.AliveAgents()) == 0 {
		return StopExtinction, true
	}
	if e.state.Turn >= e.cfg.MaxTurns {
		return StopTurnBudget, true
	}
	if ctx.Err() != nil {
		return StopCanceled, true
	}
	return "", false
}
