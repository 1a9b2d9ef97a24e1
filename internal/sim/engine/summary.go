package engine

import (
	"fmt"
	"strings"

	"alife.ai/internal/sim/physics"
	"alife.ai/internal/sim/world"
)

// FormatSummary renders the one-line turn report, e.g. "[T003] pop=4 totalEnergy=370 acted=5".
func FormatSummary(st *world.State, results []world.TurnResult) string {
	return fmt.Sprintf("[T%03d] pop=%d totalEnergy=%d acted=%d",
		st.Turn, len(st.AliveAgents()), physics.TotalEnergy(st), len(results))
}

// FormatSurvivors lists the living agents with their energy, in roster order.
func FormatSurvivors(st *world.State) string {
	alive := st.AliveAgents()
	if len(alive) == 0 {
		return "no survivors"
	}
	parts := make([]string, 0, len(alive))
	for _, a := range alive {
		parts = append(parts, fmt.Sprintf("%s(%d)", a.Name, a.Energy))
	}
	return "survivors: " + strings.Join(parts, ", ")
}

// FormatResult renders one agent-turn, e.g. "  Alpha E=50->49 transfer ok".
func FormatResult(r world.TurnResult) string {
	line := fmt.Sprintf("  %s E=%d->%d %s %s", r.AgentName, r.EnergyBefore, r.EnergyAfter, r.Action.Kind(), r.Status)
	if r.Diagnostic != "" {
		line += " (" + r.Diagnostic + ")"
	}
	return line
}
