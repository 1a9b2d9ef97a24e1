package world

type EventKind string

const (
	EventDeath           EventKind = "death"
	EventTransfer        EventKind = "transfer"
	EventBroadcast       EventKind = "broadcast"
	EventParseError      EventKind = "parse_error"
	EventTimeout         EventKind = "timeout"
	EventInvocationError EventKind = "invocation_error"
)

// Event is one audit record of a state change. Events are never mutated after creation.
type Event struct {
	Turn    int            `json:"turn"`
	Kind    EventKind      `json:"type"`
	AgentID string         `json:"agent_id"`
	Details map[string]any `json:"details,omitempty"`
}

// TurnResult summarizes one agent's turn.
type TurnResult struct {
	Turn      int    `json:"turn"`
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`

	Action    Action `json:"action"`
	Status    string `json:"status"`
	RawOutput string `json:"raw_output"`

	// Diagnostic carries provider/parse context (errors, dropped fields, schema violations).
	Diagnostic string `json:"diagnostic,omitempty"`

	EnergyBefore int     `json:"energy_before"`
	EnergyAfter  int     `json:"energy_after"`
	Events       []Event `json:"events"`
}
