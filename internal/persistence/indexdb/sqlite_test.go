package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"alife.ai/internal/persistence/snapshot"
	"alife.ai/internal/sim/world"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTurn}

	_ = s.WriteTurn(world.TurnResult{Turn: 2})
	_ = s.WriteEvent(world.Event{Turn: 2})
	s.RecordSnapshot("/tmp/world.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropTurnTotal != 1 || st.DropEventTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drops=%+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_NilIsNoop(t *testing.T) {
	var s *SQLiteIndex
	if err := s.WriteTurn(world.TurnResult{}); err != nil {
		t.Fatalf("WriteTurn: %v", err)
	}
	if err := s.WriteEvent(world.Event{}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	s.RecordSnapshot("", snapshot.SnapshotV1{})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSQLiteIndex_WritesTables(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.sqlite")
	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.SetMeta("run_id", "run-1"); err != nil {
		t.Fatalf("meta: %v", err)
	}

	_ = idx.WriteTurn(world.TurnResult{
		Turn: 1, AgentID: "agent-0", AgentName: "Alpha", Status: "ok",
		Action:       world.Action{Speak: "hi"},
		EnergyBefore: 10, EnergyAfter: 9,
	})
	_ = idx.WriteEvent(world.Event{Turn: 1, Kind: world.EventBroadcast, AgentID: "agent-0", Details: map[string]any{"content": "hi"}})
	_ = idx.WriteEvent(world.Event{Turn: 1, Kind: world.EventDeath, AgentID: "agent-1", Details: map[string]any{"name": "Beta"}})
	idx.RecordSnapshot("/data/world.snap.zst", snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, RunID: "run-1", Turn: 1},
		Agents: []snapshot.AgentV1{
			{ID: "agent-0", Name: "Alpha", Energy: 9, Alive: true, Age: 1, Invoker: "claude"},
			{ID: "agent-1", Name: "Beta", Energy: 0, Alive: false, Age: 1, Invoker: "codex"},
		},
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var kind string
	var after int
	if err := db.QueryRow(`SELECT action_kind, energy_after FROM turns WHERE turn=1 AND agent_id='agent-0'`).Scan(&kind, &after); err != nil {
		t.Fatalf("turn row: %v", err)
	}
	if kind != "broadcast" || after != 9 {
		t.Fatalf("turn row kind=%s after=%d", kind, after)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM events WHERE turn=1`).Scan(&n); err != nil || n != 2 {
		t.Fatalf("events count=%d err=%v", n, err)
	}
	var seq int
	if err := db.QueryRow(`SELECT seq FROM events WHERE kind='death'`).Scan(&seq); err != nil || seq != 1 {
		t.Fatalf("death seq=%d err=%v", seq, err)
	}

	var alive int
	if err := db.QueryRow(`SELECT alive FROM snapshots WHERE turn=1`).Scan(&alive); err != nil || alive != 1 {
		t.Fatalf("snapshot alive=%d err=%v", alive, err)
	}
	var betaAlive bool
	if err := db.QueryRow(`SELECT alive FROM agent_state WHERE agent_id='agent-1'`).Scan(&betaAlive); err != nil || betaAlive {
		t.Fatalf("beta alive=%v err=%v", betaAlive, err)
	}

	var runID string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key='run_id'`).Scan(&runID); err != nil || runID != "run-1" {
		t.Fatalf("run_id=%q err=%v", runID, err)
	}
}
