package world

type TransferRequest struct {
	To     string `json:"to"`
	Amount int    `json:"amount"`
}

// Action is an agent's decision for one turn. Every field is optional;
// the zero Action is a valid no-op.
type Action struct {
	Speak    string           `json:"speak,omitempty"`
	Transfer *TransferRequest `json:"transfer,omitempty"`
	Memory   string           `json:"memory,omitempty"`
}

type ActionKind string

const (
	ActionNone      ActionKind = "none"
	ActionBroadcast ActionKind = "broadcast"
	ActionTransfer  ActionKind = "transfer"
	ActionMemory    ActionKind = "memory"
	ActionCombined  ActionKind = "combined"
)

// Kind classifies the action by which fields are present.
func (a Action) Kind() ActionKind {
	n := 0
	kind := ActionNone
	if a.Speak != "" {
		n++
		kind = ActionBroadcast
	}
	if a.Transfer != nil {
		n++
		kind = ActionTransfer
	}
	if a.Memory != "" {
		n++
		kind = ActionMemory
	}
	if n > 1 {
		return ActionCombined
	}
	return kind
}

func (a Action) IsNoop() bool { return a.Kind() == ActionNone }
