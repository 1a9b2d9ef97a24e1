// Package engine drives the simulation: one turn at a time (RunTurn) and whole runs (Run).
// All state mutation happens on the caller's goroutine; only the decision wait may block.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"alife.ai/internal/decision"
	"alife.ai/internal/sim/physics"
	"alife.ai/internal/sim/world"
)

var (
	// ErrPersist marks a snapshot save failure. The in-memory state is still valid.
	ErrPersist = errors.New("engine: persist snapshot")
	ErrEnded   = errors.New("engine: simulation ended")
	ErrBusy    = errors.New("engine: turn already in progress")
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseTurnInProgress
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseTurnInProgress:
		return "turn_in_progress"
	case PhaseEnded:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type Config struct {
	RunID    string
	MaxTurns int

	// Timeout bounds each decision request.
	Timeout    time.Duration
	BoardLimit int
	Limits     world.Limits

	// ParseExcerptChars caps the raw-output copy attached to parse_error events.
	ParseExcerptChars int

	// Summary logs a per-turn population summary through Logger.
	Summary bool
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.BoardLimit <= 0 {
		c.BoardLimit = 20
	}
	if c.ParseExcerptChars <= 0 {
		c.ParseExcerptChars = 200
	}
}

type Options struct {
	Shuffler  Shuffler
	Logger    *log.Logger
	TurnLog   TurnLogger
	EventLog  EventLogger
	Store     SnapshotSaver
	Observers []TurnObserver
}

type Engine struct {
	cfg      Config
	state    *world.State
	provider decision.Provider

	shuffler  Shuffler
	logger    *log.Logger
	turnLog   TurnLogger
	eventLog  EventLogger
	store     SnapshotSaver
	observers []TurnObserver

	phase Phase
}

func New(cfg Config, st *world.State, p decision.Provider, opts Options) *Engine {
	cfg.applyDefaults()
	e := &Engine{
		cfg:       cfg,
		state:     st,
		provider:  p,
		shuffler:  opts.Shuffler,
		logger:    opts.Logger,
		turnLog:   opts.TurnLog,
		eventLog:  opts.EventLog,
		store:     opts.Store,
		observers: opts.Observers,
	}
	if e.shuffler == nil {
		e.shuffler = EntropyShuffler{}
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard, "", 0)
	}
	return e
}

func (e *Engine) State() *world.State { return e.state }
func (e *Engine) Phase() Phase        { return e.phase }

// RunTurn executes one full turn and returns the per-agent results in acting order.
// A snapshot failure is reported as ErrPersist after the turn has been fully applied.
func (e *Engine) RunTurn(ctx context.Context) ([]world.TurnResult, error) {
	switch e.phase {
	case PhaseEnded:
		return nil, ErrEnded
	case PhaseTurnInProgress:
		return nil, ErrBusy
	}
	e.phase = PhaseTurnInProgress
	defer func() {
		if e.phase == PhaseTurnInProgress {
			e.phase = PhaseIdle
		}
	}()

	st := e.state
	st.Turn++

	order := st.AliveAgents()
	e.shuffler.Shuffle(order)

	results := make([]world.TurnResult, 0, len(order))
	for _, a := range order {
		if !a.Alive {
			continue
		}
		r := e.actAgent(ctx, a)
		results = append(results, r)
		e.writeTurn(r)
		for _, ev := range r.Events {
			e.writeEvent(ev)
		}
	}

	sweep := physics.CheckDeaths(st)
	for _, ev := range sweep {
		e.writeEvent(ev)
	}

	var persistErr error
	if e.store != nil {
		if err := e.store.Save(st.ExportSnapshot(e.cfg.RunID)); err != nil {
			persistErr = fmt.Errorf("%w: turn %d: %v", ErrPersist, st.Turn, err)
		}
	}

	if e.cfg.Summary {
		e.logger.Print(FormatSummary(st, results))
		for _, r := range results {
			e.logger.Print(FormatResult(r))
		}
	}
	for _, o := range e.observers {
		o.ObserveTurn(st, results, sweep)
	}
	return results, persistErr
}

func (e *Engine) actAgent(ctx context.Context, a *world.Agent) world.TurnResult {
	st := e.state
	before := a.Energy

	out := e.decide(ctx, a)

	events := physics.ApplyAction(a, out.Action, st, e.cfg.Limits)
	events = append(events, physics.Decay(a, st.Turn)...)
	if ev, ok := e.diagnosticEvent(a, out); ok {
		events = append(events, ev)
	}

	return world.TurnResult{
		Turn:         st.Turn,
		AgentID:      a.ID,
		AgentName:    a.Name,
		Action:       out.Action,
		Status:       string(out.Status),
		RawOutput:    out.RawOutput,
		Diagnostic:   diagnostic(out),
		EnergyBefore: before,
		EnergyAfter:  a.Energy,
		Events:       events,
	}
}

// decide asks the provider under the per-decision timeout. Anything other than a
// successful decision becomes a no-op.
func (e *Engine) decide(ctx context.Context, a *world.Agent) decision.Outcome {
	view := e.state.View(a.ID, e.cfg.BoardLimit)

	dctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	out := e.provider.Decide(dctx, view)
	if out.Status == "" {
		out.Status = decision.StatusOK
	}
	if out.Status == decision.StatusOK && dctx.Err() != nil {
		out = decision.Outcome{Status: decision.StatusTimeout, RawOutput: out.RawOutput, Err: dctx.Err().Error()}
	}
	if out.Status != decision.StatusOK {
		out.Action = world.Action{}
	}
	return out
}

func (e *Engine) diagnosticEvent(a *world.Agent, out decision.Outcome) (world.Event, bool) {
	ev := world.Event{Turn: e.state.Turn, AgentID: a.ID}
	switch out.Status {
	case decision.StatusParseError:
		ev.Kind = world.EventParseError
		ev.Details = map[string]any{"raw_output": physics.TruncateChars(out.RawOutput, e.cfg.ParseExcerptChars)}
	case decision.StatusTimeout:
		ev.Kind = world.EventTimeout
		ev.Details = map[string]any{"timeout_ms": e.cfg.Timeout.Milliseconds()}
	case decision.StatusError:
		ev.Kind = world.EventInvocationError
		ev.Details = map[string]any{"error": out.Err}
	default:
		return world.Event{}, false
	}
	return ev, true
}

func diagnostic(out decision.Outcome) string {
	var parts []string
	if out.Err != "" {
		parts = append(parts, out.Err)
	}
	if len(out.Dropped) > 0 {
		parts = append(parts, "dropped: "+strings.Join(out.Dropped, ","))
	}
	if out.SchemaErr != "" {
		parts = append(parts, "schema: "+out.SchemaErr)
	}
	return strings.Join(parts, "; ")
}

func (e *Engine) writeTurn(r world.TurnResult) {
	if e.turnLog == nil {
		return
	}
	if err := e.turnLog.WriteTurn(r); err != nil {
		e.logger.Printf("turn log: %v", err)
	}
}

func (e *Engine) writeEvent(ev world.Event) {
	if e.eventLog == nil {
		return
	}
	if err := e.eventLog.WriteEvent(ev); err != nil {
		e.logger.Printf("event log: %v", err)
	}
}
