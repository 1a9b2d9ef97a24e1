// Package decision defines how an agent's next move is obtained. The simulation core
// only sees the Provider interface; prompt building, process invocation and output
// parsing stay behind it.
package decision

import (
	"context"

	"alife.ai/internal/sim/world"
)

type Status string

const (
	StatusOK         Status = "ok"
	StatusEmpty      Status = "empty"
	StatusParseError Status = "parse_error"
	StatusTimeout    Status = "timeout"
	StatusError      Status = "error"
)

// Outcome is what a provider produced for one agent-turn. Only StatusOK outcomes
// carry a non-empty Action.
type Outcome struct {
	Action    world.Action
	RawOutput string
	Status    Status

	// Err holds the failure text for timeout/error outcomes.
	Err string
	// Dropped lists action fields removed by sanitization.
	Dropped []string
	// SchemaErr is set when the payload parsed but did not conform to the action schema.
	SchemaErr string
}

// Provider returns a decision for the agent in view. The deadline on ctx bounds the wait.
// Implementations must not block past the deadline and must never touch simulation state.
type Provider interface {
	Decide(ctx context.Context, view world.WorldView) Outcome
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, view world.WorldView) Outcome

func (f ProviderFunc) Decide(ctx context.Context, view world.WorldView) Outcome { return f(ctx, view) }

// ByInvoker routes each agent to the provider variant it was created with.
type ByInvoker struct {
	Claude Provider
	Codex  Provider
}

func (r ByInvoker) Decide(ctx context.Context, view world.WorldView) Outcome {
	p := r.Claude
	if view.Self.Invoker == world.InvokerCodex && r.Codex != nil {
		p = r.Codex
	}
	if p == nil {
		return Outcome{Status: StatusError, Err: "no provider for invoker " + string(view.Self.Invoker)}
	}
	return p.Decide(ctx, view)
}
