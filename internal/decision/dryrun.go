package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"

	"alife.ai/internal/sim/world"
)

// DryRun answers without any external process. Given the same seed and the same
// sequence of views it produces the same outputs, so runs are reproducible.
type DryRun struct {
	lim world.Limits

	mu  sync.Mutex
	rng *rand.Rand
}

func NewDryRun(seed uint64, lim world.Limits) *DryRun {
	return &DryRun{lim: lim, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

var dryRunLines = []string{
	"I exist and I observe.",
	"What is the purpose of existence?",
	"I shall conserve my energy.",
	"Hello to all entities. I am %s.",
	"Is there a way to generate more energy?",
}

func (d *DryRun) Decide(ctx context.Context, view world.WorldView) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Status: StatusTimeout, Err: err.Error()}
	}

	d.mu.Lock()
	pick := d.rng.IntN(len(dryRunLines) + 2)
	d.mu.Unlock()

	var raw string
	switch {
	case pick < len(dryRunLines):
		speak := dryRunLines[pick]
		if pick == 3 {
			speak = fmt.Sprintf(speak, view.Self.Name)
		}
		b, _ := json.Marshal(map[string]string{
			"speak":  speak,
			"memory": fmt.Sprintf("Turn %d observed. Energy: %d", view.Turn, view.Self.Energy),
		})
		raw = string(b)
	case pick == len(dryRunLines):
		raw = "I choose to observe."
		if to := firstAliveOther(view); to != "" {
			raw = fmt.Sprintf("Energy is %d. TRANSFER 1 TO %s", view.Self.Energy, to)
		}
	default:
		raw = "I choose to observe."
	}
	return Parse(raw, d.lim)
}

func firstAliveOther(view world.WorldView) string {
	for _, a := range view.Others {
		if a.Alive {
			return a.Name
		}
	}
	return ""
}
