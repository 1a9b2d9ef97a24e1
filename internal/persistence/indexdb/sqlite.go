// Package indexdb mirrors the audit streams into a SQLite database for ad-hoc queries.
// The JSONL logs stay the source of truth; the index may drop records under backpressure.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"alife.ai/internal/persistence/snapshot"
	"alife.ai/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTurn     atomic.Uint64
	dropEvent    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropTurnTotal     uint64
	DropEventTotal    uint64
	DropSnapshotTotal uint64
}

type reqKind int

const (
	reqTurn reqKind = iota + 1
	reqEvent
	reqSnapshot
)

type req struct {
	kind reqKind

	turn     world.TurnResult
	event    world.Event
	snapshot snapshotRow
}

type snapshotRow struct {
	Turn       int
	Path       string
	RunID      string
	Alive      int
	Agents     []snapshot.AgentV1
	Board      int
	RecordedAt string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			turn INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			agent_name TEXT NOT NULL,
			action_kind TEXT NOT NULL,
			status TEXT NOT NULL,
			energy_before INTEGER NOT NULL,
			energy_after INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (turn, agent_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_turns_agent ON turns(agent_id, turn);`,
		`CREATE TABLE IF NOT EXISTS events (
			turn INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			details_json TEXT NOT NULL,
			PRIMARY KEY (turn, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind_turn ON events(kind, turn);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			turn INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			path TEXT NOT NULL,
			alive INTEGER NOT NULL,
			agents INTEGER NOT NULL,
			board INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS agent_state (
			agent_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			energy INTEGER NOT NULL,
			alive INTEGER NOT NULL,
			age INTEGER NOT NULL,
			invoker TEXT NOT NULL,
			turn INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// SetMeta records a run-level key (run_id, started_at, ...) synchronously.
func (s *SQLiteIndex) SetMeta(key, value string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`, key, value)
	return err
}

func (s *SQLiteIndex) Close() error {
	if s == nil {
		return nil
	}
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTurnTotal:     s.dropTurn.Load(),
		DropEventTotal:    s.dropEvent.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) WriteTurn(r world.TurnResult) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTurn, turn: r}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropTurn.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteEvent(e world.Event) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEvent, event: e}:
	default:
		s.dropEvent.Add(1)
	}
	return nil
}

// RecordSnapshot indexes a saved snapshot and refreshes the agent_state table from it.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	alive := 0
	for _, a := range snap.Agents {
		if a.Alive {
			alive++
		}
	}
	r := snapshotRow{
		Turn:       snap.Header.Turn,
		Path:       path,
		RunID:      snap.Header.RunID,
		Alive:      alive,
		Agents:     append([]snapshot.AgentV1(nil), snap.Agents...),
		Board:      len(snap.Board),
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTurn, _ := s.db.Prepare(`INSERT OR REPLACE INTO turns(turn,agent_id,agent_name,action_kind,status,energy_before,energy_after,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(turn,seq,kind,agent_id,details_json) VALUES(?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(turn,run_id,path,alive,agents,board,recorded_at) VALUES(?,?,?,?,?,?,?)`)
	upsertAgent, _ := s.db.Prepare(`INSERT OR REPLACE INTO agent_state(agent_id,name,energy,alive,age,invoker,turn) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTurn, insertEvent, insertSnapshot, upsertAgent} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second

		lastEventTurn = -1
		eventSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTurn:
			t := r.turn
			if insertTurn == nil {
				break
			}
			raw, _ := json.Marshal(t)
			if _, err := tx.Stmt(insertTurn).Exec(
				t.Turn, t.AgentID, t.AgentName, string(t.Action.Kind()), t.Status,
				t.EnergyBefore, t.EnergyAfter, string(raw),
			); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqEvent:
			e := r.event
			if e.Turn != lastEventTurn {
				lastEventTurn = e.Turn
				eventSeq = 0
			}
			seq := eventSeq
			eventSeq++
			if insertEvent == nil {
				break
			}
			details, _ := json.Marshal(e.Details)
			if _, err := tx.Stmt(insertEvent).Exec(e.Turn, seq, string(e.Kind), e.AgentID, string(details)); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					sn.Turn, sn.RunID, sn.Path, sn.Alive, len(sn.Agents), sn.Board, sn.RecordedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			for _, a := range sn.Agents {
				if upsertAgent == nil {
					break
				}
				if _, err := tx.Stmt(upsertAgent).Exec(a.ID, a.Name, a.Energy, a.Alive, a.Age, a.Invoker, sn.Turn); err != nil {
					rollback()
					break
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
