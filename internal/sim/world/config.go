package world

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("world: invalid config")

// NoCap disables a size limit.
const NoCap = -1

var defaultNames = []string{
	"Alpha",
	"Beta",
	"Gamma",
	"Delta",
	"Epsilon",
	"Zeta",
	"Eta",
	"Theta",
}

type Config struct {
	Agents        int
	InitialEnergy int

	// Invoker is "claude", "codex" or "mixed" (first half claude, second half codex).
	Invoker string

	// Names overrides the display-name roster; indices past the end fall back to Agent-<i>.
	Names []string
}

// Limits bounds free-text fields carried by actions. Non-positive values mean no cap.
type Limits struct {
	SpeakMaxChars  int
	MemoryMaxBytes int
}

func (c Config) validate() error {
	if c.Agents <= 0 {
		return fmt.Errorf("%w: agent count must be positive, got %d", ErrInvalidConfig, c.Agents)
	}
	if c.InitialEnergy <= 0 {
		return fmt.Errorf("%w: initial energy must be positive, got %d", ErrInvalidConfig, c.InitialEnergy)
	}
	switch c.Invoker {
	case "", "mixed", string(InvokerClaude), string(InvokerCodex):
	default:
		return fmt.Errorf("%w: unknown invoker %q", ErrInvalidConfig, c.Invoker)
	}
	seen := map[string]bool{}
	for i := 0; i < c.Agents; i++ {
		n := c.nameAt(i)
		if seen[n] {
			return fmt.Errorf("%w: duplicate agent name %q", ErrInvalidConfig, n)
		}
		seen[n] = true
	}
	return nil
}

func (c Config) nameAt(i int) string {
	names := c.Names
	if len(names) == 0 {
		names = defaultNames
	}
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	return fmt.Sprintf("Agent-%d", i)
}

func (c Config) invokerAt(i int) InvokerKind {
	switch c.Invoker {
	case string(InvokerCodex):
		return InvokerCodex
	case "mixed":
		if i >= c.Agents/2 {
			return InvokerCodex
		}
	}
	return InvokerClaude
}
