package tuning

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"alife.ai/internal/sim/world"
)

var ErrInvalid = errors.New("tuning: invalid")

type Tuning struct {
	Agents        int    `yaml:"agents"`
	InitialEnergy int    `yaml:"initial_energy"`
	MaxTurns      int    `yaml:"max_turns"`
	TurnTimeoutMs int    `yaml:"turn_timeout_ms"`
	Invoker       string `yaml:"invoker"`
	Names         []string `yaml:"names"`

	BoardDisplayLimit      int `yaml:"board_display_limit"`
	MemoryMaxBytes         int `yaml:"memory_max_bytes"`
	SpeakMaxChars          int `yaml:"speak_max_chars"`
	ParseErrorExcerptChars int `yaml:"parse_error_excerpt_chars"`

	DataDir      string `yaml:"data_dir"`
	LogsDir      string `yaml:"logs_dir"`
	ObserverAddr string `yaml:"observer_addr"`
	IndexDB      bool   `yaml:"index_db"`
	Telemetry    bool   `yaml:"telemetry"`
}

func Default() Tuning {
	return Tuning{
		Agents:                 8,
		InitialEnergy:          100,
		MaxTurns:               300,
		TurnTimeoutMs:          30_000,
		Invoker:                "claude",
		BoardDisplayLimit:      20,
		MemoryMaxBytes:         2048,
		SpeakMaxChars:          500,
		ParseErrorExcerptChars: 200,
		DataDir:                "./data",
		LogsDir:                "./data/logs",
		IndexDB:                true,
		Telemetry:              true,
	}
}

// Load reads path on top of Default. Keys absent from the file keep their defaults.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Validate checks ranges. Caps may be -1 (world.NoCap) but never zero.
func (t Tuning) Validate() error {
	switch {
	case t.Agents <= 0:
		return fmt.Errorf("%w: agents must be > 0", ErrInvalid)
	case t.InitialEnergy <= 0:
		return fmt.Errorf("%w: initial_energy must be > 0", ErrInvalid)
	case t.MaxTurns < 0:
		return fmt.Errorf("%w: max_turns must be >= 0", ErrInvalid)
	case t.TurnTimeoutMs <= 0:
		return fmt.Errorf("%w: turn_timeout_ms must be > 0", ErrInvalid)
	case t.BoardDisplayLimit <= 0:
		return fmt.Errorf("%w: board_display_limit must be > 0", ErrInvalid)
	case t.ParseErrorExcerptChars <= 0:
		return fmt.Errorf("%w: parse_error_excerpt_chars must be > 0", ErrInvalid)
	}
	if err := validCap("memory_max_bytes", t.MemoryMaxBytes); err != nil {
		return err
	}
	if err := validCap("speak_max_chars", t.SpeakMaxChars); err != nil {
		return err
	}
	switch t.Invoker {
	case "claude", "codex", "mixed":
	default:
		return fmt.Errorf("%w: invoker %q (want claude|codex|mixed)", ErrInvalid, t.Invoker)
	}
	return nil
}

func validCap(name string, v int) error {
	if v == world.NoCap || v > 0 {
		return nil
	}
	return fmt.Errorf("%w: %s must be > 0 or %d", ErrInvalid, name, world.NoCap)
}

func (t Tuning) TurnTimeout() time.Duration {
	return time.Duration(t.TurnTimeoutMs) * time.Millisecond
}

func (t Tuning) Limits() world.Limits {
	return world.Limits{SpeakMaxChars: t.SpeakMaxChars, MemoryMaxBytes: t.MemoryMaxBytes}
}

func (t Tuning) WorldConfig() world.Config {
	return world.Config{
		Agents:        t.Agents,
		InitialEnergy: t.InitialEnergy,
		Invoker:       t.Invoker,
		Names:         t.Names,
	}
}
