package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"alife.ai/internal/decision"
	"alife.ai/internal/persistence/archive"
	"alife.ai/internal/persistence/indexdb"
	persistlog "alife.ai/internal/persistence/log"
	"alife.ai/internal/persistence/snapshot"
	"alife.ai/internal/sim/engine"
	"alife.ai/internal/sim/tuning"
	"alife.ai/internal/sim/world"
	"alife.ai/internal/telemetry"
	"alife.ai/internal/transport/observer"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/tuning.yaml", "path to tuning.yaml (missing file means defaults)")
		agents     = flag.Int("agents", 0, "number of agents (overrides config)")
		energy     = flag.Int("energy", 0, "initial energy per agent (overrides config)")
		turns      = flag.Int("turns", 0, "maximum turns (overrides config)")
		timeout    = flag.Duration("timeout", 0, "per-decision timeout (overrides config)")
		invoker    = flag.String("invoker", "", "decision CLI: claude | codex | mixed (overrides config)")
		resume     = flag.Bool("resume", false, "resume from the saved snapshot if present")
		dryRun     = flag.Bool("dry-run", false, "use canned decisions instead of invoking an agent CLI")
		dataDir    = flag.String("data", "", "snapshot/index/telemetry directory (overrides config)")
		logsDir    = flag.String("logs", "", "JSONL audit log directory (overrides config)")
		seed       = flag.Uint64("seed", 0, "seed for turn order and dry-run decisions (0 = random order)")
		obsAddr    = flag.String("observer", "", "observer http listen address, e.g. 127.0.0.1:8081 (overrides config)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index")
		streamJSON = flag.Bool("stream_json", false, "request stream-json output from the claude CLI")
		model      = flag.String("model", "sonnet", "model passed to the claude CLI")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[sim] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *configPath)
		tune = tuning.Default()
	}
	if *agents > 0 {
		tune.Agents = *agents
	}
	if *energy > 0 {
		tune.InitialEnergy = *energy
	}
	if *turns > 0 {
		tune.MaxTurns = *turns
	}
	if *timeout > 0 {
		tune.TurnTimeoutMs = int(timeout.Milliseconds())
	}
	if s := strings.TrimSpace(*invoker); s != "" {
		tune.Invoker = s
	}
	if s := strings.TrimSpace(*dataDir); s != "" {
		tune.DataDir = s
	}
	if s := strings.TrimSpace(*logsDir); s != "" {
		tune.LogsDir = s
	}
	if s := strings.TrimSpace(*obsAddr); s != "" {
		tune.ObserverAddr = s
	}
	if *disableDB {
		tune.IndexDB = false
	}
	if err := tune.Validate(); err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	store := snapshot.NewStore(tune.DataDir)
	st, runID := loadOrCreate(store, tune, *resume, logger)

	turnLog := persistlog.NewTurnLogger(tune.LogsDir)
	defer turnLog.Close()
	eventLog := persistlog.NewEventLogger(tune.LogsDir)
	defer eventLog.Close()

	var idx *indexdb.SQLiteIndex
	if tune.IndexDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(tune.DataDir, "index.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		_ = idx.SetMeta("run_id", runID)
		_ = idx.SetMeta("started_at", time.Now().UTC().Format(time.RFC3339))
	}

	var observers []engine.TurnObserver
	if tune.Telemetry {
		rec, err := telemetry.NewRecorder(tune.DataDir, logger)
		if err != nil {
			logger.Fatalf("telemetry: %v", err)
		}
		defer rec.Close()
		observers = append(observers, rec)
	}

	if tune.ObserverAddr != "" {
		hub := observer.NewHub()
		hub.ObserveTurn(st, nil, nil)
		observers = append(observers, hub)
		srv := &http.Server{
			Addr:              tune.ObserverAddr,
			Handler:           observer.NewServer(hub, runID, tune.MaxTurns, logger).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Printf("observer listening on %s", tune.ObserverAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("observer: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	var shuffler engine.Shuffler = engine.EntropyShuffler{}
	if *seed != 0 {
		shuffler = engine.NewSeededShuffler(*seed)
	}

	eng := engine.New(engine.Config{
		RunID:             runID,
		MaxTurns:          tune.MaxTurns,
		Timeout:           tune.TurnTimeout(),
		BoardLimit:        tune.BoardDisplayLimit,
		Limits:            tune.Limits(),
		ParseExcerptChars: tune.ParseErrorExcerptChars,
		Summary:           true,
	}, st, buildProvider(tune, *dryRun, *seed, *model, *streamJSON, logger), engine.Options{
		Shuffler:  shuffler,
		Logger:    logger,
		TurnLog:   engine.TurnLoggers(turnLog, nilIfNoIndex(idx)),
		EventLog:  engine.EventLoggers(eventLog, nilIfNoIndexEvents(idx)),
		Store:     indexedStore{store: store, idx: idx},
		Observers: observers,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode := tune.Invoker
	if *dryRun {
		mode = "dry-run"
	}
	logger.Printf("run=%s agents=%d energy=%d turns=%d timeout=%s mode=%s start_turn=%d",
		runID, len(st.Agents), tune.InitialEnergy, tune.MaxTurns, tune.TurnTimeout(), mode, st.Turn)

	reason, err := eng.Run(ctx)
	if err != nil {
		logger.Printf("run aborted: %v", err)
	}
	switch reason {
	case engine.StopExtinction:
		logger.Printf("population extinct at turn %d", st.Turn)
	case engine.StopTurnBudget:
		logger.Printf("turn budget reached (%d turns)", st.Turn)
	case engine.StopCanceled:
		logger.Printf("interrupted after turn %d", st.Turn)
	}
	logger.Print(engine.FormatSurvivors(st))
	if reason == engine.StopExtinction || reason == engine.StopTurnBudget {
		archiveFinal(store, tune.DataDir, string(reason), logger)
	}
	if idx != nil {
		ist := idx.Stats()
		if ist.DropTurnTotal+ist.DropEventTotal+ist.DropSnapshotTotal > 0 {
			logger.Printf("index dropped turns=%d events=%d snapshots=%d", ist.DropTurnTotal, ist.DropEventTotal, ist.DropSnapshotTotal)
		}
	}
}

// archiveFinal keeps a per-run copy of the last snapshot so later runs cannot overwrite it.
func archiveFinal(store *snapshot.Store, dataDir, reason string, logger *log.Logger) {
	snap, err := store.Load()
	if err != nil {
		logger.Printf("archive: %v", err)
		return
	}
	dst, err := archive.ArchiveRunSnapshot(dataDir, store.Path(), snap, reason)
	if err != nil {
		logger.Printf("archive: %v", err)
		return
	}
	logger.Printf("archived final snapshot to %s", dst)
}

func loadOrCreate(store *snapshot.Store, tune tuning.Tuning, resume bool, logger *log.Logger) (*world.State, string) {
	if resume {
		snap, err := store.Load()
		switch {
		case err == nil:
			st, err := world.ImportSnapshot(snap)
			if err != nil {
				logger.Fatalf("import snapshot: %v", err)
			}
			runID := snap.Header.RunID
			if runID == "" {
				runID = uuid.NewString()
			}
			logger.Printf("resumed from %s turn=%d alive=%d", store.Path(), st.Turn, len(st.AliveAgents()))
			return st, runID
		case errors.Is(err, snapshot.ErrNoSnapshot):
			logger.Printf("no usable snapshot (%v); starting fresh", err)
		default:
			logger.Fatalf("load snapshot: %v", err)
		}
	}
	st, err := world.New(tune.WorldConfig())
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	return st, uuid.NewString()
}

func buildProvider(tune tuning.Tuning, dryRun bool, seed uint64, model string, streamJSON bool, logger *log.Logger) decision.Provider {
	if dryRun {
		return decision.NewDryRun(seed, tune.Limits())
	}
	mk := func(v world.InvokerKind) decision.Provider {
		return decision.NewExec(decision.ExecConfig{
			Variant:    v,
			Model:      model,
			StreamJSON: streamJSON,
			Limits:     tune.Limits(),
			Logger:     logger,
		})
	}
	return decision.ByInvoker{Claude: mk(world.InvokerClaude), Codex: mk(world.InvokerCodex)}
}

// indexedStore saves the snapshot and then indexes it.
type indexedStore struct {
	store *snapshot.Store
	idx   *indexdb.SQLiteIndex
}

func (s indexedStore) Save(snap snapshot.SnapshotV1) error {
	if err := s.store.Save(snap); err != nil {
		return err
	}
	s.idx.RecordSnapshot(s.store.Path(), snap)
	return nil
}

func nilIfNoIndex(idx *indexdb.SQLiteIndex) engine.TurnLogger {
	if idx == nil {
		return nil
	}
	return idx
}

func nilIfNoIndexEvents(idx *indexdb.SQLiteIndex) engine.EventLogger {
	if idx == nil {
		return nil
	}
	return idx
}
