package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"alife.ai/internal/decision"
	"alife.ai/internal/persistence/snapshot"
	"alife.ai/internal/sim/physics"
	"alife.ai/internal/sim/world"
)

type recordingLog struct {
	turns  []world.TurnResult
	events []world.Event
}

func (r *recordingLog) WriteTurn(tr world.TurnResult) error { r.turns = append(r.turns, tr); return nil }
func (r *recordingLog) WriteEvent(ev world.Event) error     { r.events = append(r.events, ev); return nil }

func (r *recordingLog) count(kind world.EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

type fakeStore struct {
	saved []int
	err   error
}

func (f *fakeStore) Save(s snapshot.SnapshotV1) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, s.Header.Turn)
	return nil
}

func noop() decision.Provider {
	return decision.ProviderFunc(func(context.Context, world.WorldView) decision.Outcome {
		return decision.Outcome{Status: decision.StatusOK}
	})
}

func identity() Shuffler { return ShuffleFunc(func([]*world.Agent) {}) }

func newState(t *testing.T, agents, energy int) *world.State {
	t.Helper()
	st, err := world.New(world.Config{Agents: agents, InitialEnergy: energy})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return st
}

func TestRun_ExtinctionBeforeTurnBudget(t *testing.T) {
	st := newState(t, 4, 1)
	rec := &recordingLog{}
	e := New(Config{MaxTurns: 5}, st, noop(), Options{Shuffler: identity(), TurnLog: rec, EventLog: rec})

	reason, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reason != StopExtinction {
		t.Fatalf("reason=%s want %s", reason, StopExtinction)
	}
	if st.Turn != 1 {
		t.Fatalf("turn=%d want 1", st.Turn)
	}
	if got := rec.count(world.EventDeath); got != 4 {
		t.Fatalf("death events=%d want 4", got)
	}
	if e.Phase() != PhaseEnded {
		t.Fatalf("phase=%s want ended", e.Phase())
	}
	if _, err := e.RunTurn(context.Background()); !errors.Is(err, ErrEnded) {
		t.Fatalf("RunTurn after end: %v", err)
	}
}

func TestRun_TurnBudget(t *testing.T) {
	st := newState(t, 2, 100)
	store := &fakeStore{}
	e := New(Config{MaxTurns: 3}, st, noop(), Options{Shuffler: identity(), Store: store})

	reason, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reason != StopTurnBudget || st.Turn != 3 {
		t.Fatalf("reason=%s turn=%d", reason, st.Turn)
	}
	// Initial snapshot plus one per turn.
	want := []int{0, 1, 2, 3}
	if len(store.saved) != len(want) {
		t.Fatalf("saved=%v want %v", store.saved, want)
	}
	for i := range want {
		if store.saved[i] != want[i] {
			t.Fatalf("saved=%v want %v", store.saved, want)
		}
	}
	for _, a := range st.Agents {
		if a.Energy != 97 || a.Age != 3 {
			t.Fatalf("%s energy=%d age=%d", a.Name, a.Energy, a.Age)
		}
	}
}

func TestRun_CanceledStopsBetweenTurns(t *testing.T) {
	st := newState(t, 2, 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := New(Config{MaxTurns: 10}, st, noop(), Options{Shuffler: identity()})

	reason, err := e.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reason != StopCanceled || st.Turn != 0 {
		t.Fatalf("reason=%s turn=%d", reason, st.Turn)
	}
}

func TestRunTurn_ParseFailureStillDecays(t *testing.T) {
	st := newState(t, 2, 10)
	st.Agents[1].Energy = 1
	rec := &recordingLog{}
	garbage := decision.ProviderFunc(func(context.Context, world.WorldView) decision.Outcome {
		return decision.Parse("I choose to observe.", world.Limits{})
	})
	e := New(Config{MaxTurns: 5, ParseExcerptChars: 5}, st, garbage, Options{Shuffler: identity(), EventLog: rec})

	results, err := e.RunTurn(context.Background())
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results=%d want 2", len(results))
	}
	if st.Agents[0].Energy != 9 {
		t.Fatalf("alpha energy=%d want 9", st.Agents[0].Energy)
	}
	if st.Agents[1].Alive || st.Agents[1].Energy != 0 {
		t.Fatalf("beta=%+v want dead", *st.Agents[1])
	}
	if got := rec.count(world.EventParseError); got != 2 {
		t.Fatalf("parse_error events=%d want 2", got)
	}
	if got := rec.count(world.EventDeath); got != 1 {
		t.Fatalf("death events=%d want 1", got)
	}

	beta := results[1]
	if len(beta.Events) != 2 || beta.Events[0].Kind != world.EventDeath || beta.Events[1].Kind != world.EventParseError {
		t.Fatalf("beta events=%+v", beta.Events)
	}
	if raw := beta.Events[1].Details["raw_output"]; raw != "I cho" {
		t.Fatalf("excerpt=%q", raw)
	}
	if beta.Status != string(decision.StatusParseError) || !beta.Action.IsNoop() {
		t.Fatalf("beta result=%+v", beta)
	}
}

func TestRunTurn_SequentialEffectsAreVisibleToLaterAgents(t *testing.T) {
	st := newState(t, 2, 10)
	reverse := ShuffleFunc(func(a []*world.Agent) {
		for i, j := 0, len(a)-1; i < j; i, j = i+1, j-1 {
			a[i], a[j] = a[j], a[i]
		}
	})
	var seen world.WorldView
	p := decision.ProviderFunc(func(_ context.Context, v world.WorldView) decision.Outcome {
		if v.Self.Name == "Beta" {
			return decision.Outcome{Status: decision.StatusOK, Action: world.Action{Transfer: &world.TransferRequest{To: "Alpha", Amount: 5}}}
		}
		seen = v
		return decision.Outcome{Status: decision.StatusOK}
	})
	e := New(Config{MaxTurns: 5}, st, p, Options{Shuffler: reverse})

	results, err := e.RunTurn(context.Background())
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if results[0].AgentName != "Beta" || results[1].AgentName != "Alpha" {
		t.Fatalf("order=%s,%s", results[0].AgentName, results[1].AgentName)
	}
	if seen.Self.Energy != 15 {
		t.Fatalf("alpha saw own energy %d want 15", seen.Self.Energy)
	}
	if len(seen.Others) != 1 || seen.Others[0].Energy != 4 {
		t.Fatalf("alpha saw others %+v", seen.Others)
	}
	if results[0].EnergyBefore != 10 || results[0].EnergyAfter != 4 {
		t.Fatalf("beta before/after=%d/%d", results[0].EnergyBefore, results[0].EnergyAfter)
	}
	if results[1].EnergyBefore != 15 || results[1].EnergyAfter != 14 {
		t.Fatalf("alpha before/after=%d/%d", results[1].EnergyBefore, results[1].EnergyAfter)
	}
}

func TestRunTurn_TimeoutIsNoop(t *testing.T) {
	st := newState(t, 2, 10)
	rec := &recordingLog{}
	late := decision.ProviderFunc(func(ctx context.Context, v world.WorldView) decision.Outcome {
		<-ctx.Done()
		// Ignores the deadline and answers anyway; the answer must be discarded.
		return decision.Outcome{Status: decision.StatusOK, Action: world.Action{Transfer: &world.TransferRequest{To: "Beta", Amount: 5}}}
	})
	e := New(Config{MaxTurns: 5, Timeout: 10 * time.Millisecond}, st, late, Options{Shuffler: identity(), EventLog: rec})

	results, err := e.RunTurn(context.Background())
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	for _, a := range st.Agents {
		if a.Energy != 9 {
			t.Fatalf("%s energy=%d want 9", a.Name, a.Energy)
		}
	}
	if got := rec.count(world.EventTimeout); got != 2 {
		t.Fatalf("timeout events=%d want 2", got)
	}
	if rec.count(world.EventTransfer) != 0 {
		t.Fatalf("late transfer was applied")
	}
	if results[0].Status != string(decision.StatusTimeout) {
		t.Fatalf("status=%s", results[0].Status)
	}
}

func TestRunTurn_ProviderErrorAndEmpty(t *testing.T) {
	st := newState(t, 2, 10)
	rec := &recordingLog{}
	p := decision.ProviderFunc(func(_ context.Context, v world.WorldView) decision.Outcome {
		if v.Self.Name == "Alpha" {
			return decision.Outcome{Status: decision.StatusError, Err: "exit status 3", Action: world.Action{Speak: "x"}}
		}
		return decision.Outcome{Status: decision.StatusEmpty}
	})
	e := New(Config{MaxTurns: 5}, st, p, Options{Shuffler: identity(), EventLog: rec})

	results, err := e.RunTurn(context.Background())
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if len(st.Board) != 0 {
		t.Fatalf("errored decision spoke: %+v", st.Board)
	}
	if rec.count(world.EventInvocationError) != 1 || len(rec.events) != 1 {
		t.Fatalf("events=%+v", rec.events)
	}
	if results[0].Diagnostic != "exit status 3" {
		t.Fatalf("diagnostic=%q", results[0].Diagnostic)
	}
	if results[1].Status != string(decision.StatusEmpty) || len(results[1].Events) != 0 {
		t.Fatalf("empty result=%+v", results[1])
	}
}

func TestRunTurn_EnergyAccounting(t *testing.T) {
	st := newState(t, 4, 20)
	p := decision.NewDryRun(7, world.Limits{SpeakMaxChars: 500, MemoryMaxBytes: 2048})
	e := New(Config{MaxTurns: 10}, st, p, Options{Shuffler: NewSeededShuffler(3)})

	for turn := 1; turn <= 5; turn++ {
		before := physics.TotalEnergy(st)
		alive := len(st.AliveAgents())
		if _, err := e.RunTurn(context.Background()); err != nil {
			t.Fatalf("turn %d: %v", turn, err)
		}
		if got := physics.TotalEnergy(st); got != before-alive {
			t.Fatalf("turn %d: total=%d want %d", turn, got, before-alive)
		}
		for _, a := range st.Agents {
			if a.Energy < 0 {
				t.Fatalf("turn %d: %s negative energy", turn, a.Name)
			}
		}
	}
}

func TestRunTurn_PersistFailureKeepsRunning(t *testing.T) {
	st := newState(t, 2, 100)
	store := &fakeStore{err: errors.New("disk full")}
	e := New(Config{MaxTurns: 2}, st, noop(), Options{Shuffler: identity(), Store: store})

	if _, err := e.RunTurn(context.Background()); !errors.Is(err, ErrPersist) {
		t.Fatalf("err=%v want ErrPersist", err)
	}
	if st.Turn != 1 || st.Agents[0].Energy != 99 {
		t.Fatalf("state not applied: turn=%d energy=%d", st.Turn, st.Agents[0].Energy)
	}
	if e.Phase() != PhaseIdle {
		t.Fatalf("phase=%s", e.Phase())
	}

	reason, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reason != StopTurnBudget || st.Turn != 2 {
		t.Fatalf("reason=%s turn=%d", reason, st.Turn)
	}
}

type countingObserver struct {
	turns []int
	sweep int
}

func (c *countingObserver) ObserveTurn(st *world.State, _ []world.TurnResult, sweep []world.Event) {
	c.turns = append(c.turns, st.Turn)
	c.sweep += len(sweep)
}

func TestRunTurn_ObserversSeeEveryTurn(t *testing.T) {
	st := newState(t, 3, 50)
	obs := &countingObserver{}
	e := New(Config{MaxTurns: 4}, st, noop(), Options{Shuffler: identity(), Observers: []TurnObserver{obs}})
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(obs.turns) != 4 || obs.turns[3] != 4 {
		t.Fatalf("observed turns=%v", obs.turns)
	}
	if obs.sweep != 0 {
		t.Fatalf("sweep events=%d want 0", obs.sweep)
	}
}

func TestFormatSummary(t *testing.T) {
	st := newState(t, 4, 100)
	st.Turn = 3
	st.Agents[0].Energy = 70
	got := FormatSummary(st, make([]world.TurnResult, 4))
	if got != "[T003] pop=4 totalEnergy=370 acted=4" {
		t.Fatalf("summary=%q", got)
	}
	st.Agents[1].Alive = false
	if s := FormatSurvivors(st); !strings.HasPrefix(s, "survivors: Alpha(70), Gamma(100)") {
		t.Fatalf("survivors=%q", s)
	}
}
