package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	persistlog "alife.ai/internal/persistence/log"
	"alife.ai/internal/persistence/snapshot"
)

func main() {
	var (
		snapPath = flag.String("snapshot", "./data/world.snap.zst", "path to world.snap.zst")
		logsDir  = flag.String("logs", "", "directory containing turns-*/events-*.jsonl.zst (optional)")
	)
	flag.Parse()

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	alive := 0
	total := 0
	for _, a := range snap.Agents {
		total += a.Energy
		if a.Alive {
			alive++
		}
	}
	fmt.Printf("snapshot v%d run=%s turn=%d agents=%d alive=%d total_energy=%d board=%d\n",
		snap.Header.Version, snap.Header.RunID, snap.Header.Turn, len(snap.Agents), alive, total, len(snap.Board))

	if *logsDir == "" {
		return
	}

	events, err := persistlog.ReadEvents(*logsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read events:", err)
		os.Exit(1)
	}
	turns, err := persistlog.ReadTurns(*logsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read turns:", err)
		os.Exit(1)
	}

	rep := audit(snap, turns, events)

	kinds := make([]string, 0, len(rep.ByKind))
	for k := range rep.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("  %-18s %d\n", k, rep.ByKind[k])
	}
	fmt.Printf("turn records=%d events=%d energy_moved=%d\n", rep.TurnRecords, rep.Events, rep.EnergyMoved)

	if len(rep.Violations) > 0 {
		for _, v := range rep.Violations {
			fmt.Fprintln(os.Stderr, "violation:", v)
		}
		os.Exit(1)
	}
	fmt.Println("audit ok")
}
