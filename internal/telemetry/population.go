// Package telemetry writes a per-turn population table (population.csv) for offline analysis.
package telemetry

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"

	"alife.ai/internal/sim/world"
)

// PopulationStats is one row of population.csv.
type PopulationStats struct {
	Turn        int     `csv:"turn"`
	Alive       int     `csv:"alive"`
	Dead        int     `csv:"dead"`
	TotalEnergy int     `csv:"total_energy"`
	MeanEnergy  float64 `csv:"mean_energy"`
	StdEnergy   float64 `csv:"std_energy"`
	Median      float64 `csv:"median_energy"`
	Gini        float64 `csv:"gini"`
	Transfers   int     `csv:"transfers"`
	Moved       int     `csv:"energy_moved"`
	Broadcasts  int     `csv:"broadcasts"`
	Deaths      int     `csv:"deaths"`
	ParseErrors int     `csv:"parse_errors"`
	Timeouts    int     `csv:"timeouts"`
	Failures    int     `csv:"invocation_errors"`
}

// Compute derives the row for the turn just applied. Energy statistics cover living agents.
func Compute(st *world.State, results []world.TurnResult, sweep []world.Event) PopulationStats {
	ps := PopulationStats{Turn: st.Turn}

	energies := make([]float64, 0, len(st.Agents))
	for _, a := range st.Agents {
		ps.TotalEnergy += a.Energy
		if !a.Alive {
			ps.Dead++
			continue
		}
		ps.Alive++
		energies = append(energies, float64(a.Energy))
	}
	if len(energies) > 0 {
		sort.Float64s(energies)
		ps.MeanEnergy, ps.StdEnergy = stat.MeanStdDev(energies, nil)
		if len(energies) == 1 {
			ps.StdEnergy = 0
		}
		ps.Median = stat.Quantile(0.5, stat.Empirical, energies, nil)
		ps.Gini = gini(energies)
	}

	count := func(ev world.Event) {
		switch ev.Kind {
		case world.EventTransfer:
			ps.Transfers++
			if n, ok := ev.Details["amount"].(int); ok {
				ps.Moved += n
			}
		case world.EventBroadcast:
			ps.Broadcasts++
		case world.EventDeath:
			ps.Deaths++
		case world.EventParseError:
			ps.ParseErrors++
		case world.EventTimeout:
			ps.Timeouts++
		case world.EventInvocationError:
			ps.Failures++
		}
	}
	for _, r := range results {
		for _, ev := range r.Events {
			count(ev)
		}
	}
	for _, ev := range sweep {
		count(ev)
	}
	return ps
}

// gini expects ascending input.
func gini(sorted []float64) float64 {
	n := float64(len(sorted))
	var sum, weighted float64
	for i, x := range sorted {
		sum += x
		weighted += float64(i+1) * x
	}
	if sum == 0 {
		return 0
	}
	return (2*weighted)/(n*sum) - (n+1)/n
}

// Recorder appends one PopulationStats row per observed turn.
// A nil *Recorder is a no-op.
type Recorder struct {
	f             *os.File
	logger        *log.Logger
	headerWritten bool
}

func NewRecorder(dir string, logger *log.Logger) (*Recorder, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating telemetry directory: %w", err)
	}
	path := filepath.Join(dir, "population.csv")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening population.csv: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	// Resumed runs append to an existing table.
	return &Recorder{f: f, logger: logger, headerWritten: info.Size() > 0}, nil
}

func (r *Recorder) Write(ps PopulationStats) error {
	if r == nil {
		return nil
	}
	records := []PopulationStats{ps}
	if !r.headerWritten {
		if err := gocsv.Marshal(records, r.f); err != nil {
			return fmt.Errorf("writing population: %w", err)
		}
		r.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, r.f); err != nil {
		return fmt.Errorf("writing population: %w", err)
	}
	return nil
}

func (r *Recorder) ObserveTurn(st *world.State, results []world.TurnResult, sweep []world.Event) {
	if r == nil {
		return
	}
	if err := r.Write(Compute(st, results, sweep)); err != nil {
		r.logger.Printf("telemetry: %v", err)
	}
}

func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	return r.f.Close()
}

// ReadPopulation loads a population.csv written by Recorder.
func ReadPopulation(path string) ([]PopulationStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var rows []PopulationStats
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("reading population: %w", err)
	}
	return rows, nil
}
