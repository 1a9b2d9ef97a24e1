package world

// InvokerKind names the decision-provider variant that drives an agent.
type InvokerKind string

const (
	InvokerClaude InvokerKind = "claude"
	InvokerCodex  InvokerKind = "codex"
)

type Agent struct {
	ID   string
	Name string

	Energy int
	Alive  bool
	Age    int

	// Memory is private free text carried between turns (size-capped by Limits).
	Memory string

	Invoker InvokerKind
}

// Snapshot returns a detached copy of the agent.
func (a *Agent) Snapshot() Agent {
	return *a
}
