package observerproto

// Version is the observer protocol version.
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// BoardLimit caps the board posts carried by each TURN message. 0 selects the default.
	BoardLimit int `json:"board_limit"`
	// Results asks for per-agent turn results in TURN messages.
	Results bool `json:"results,omitempty"`
}

// HTTP response for GET /observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string  `json:"protocol_version"`
	RunID           string  `json:"run_id"`
	MaxTurns        int     `json:"max_turns"`
	Latest          TurnMsg `json:"latest"`
}

// Server -> Client. Sent after every completed turn.
type TurnMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Turn            int    `json:"turn"`

	Alive       int `json:"alive"`
	TotalEnergy int `json:"total_energy"`

	Agents  []AgentState `json:"agents"`
	Results []TurnResult `json:"results,omitempty"`
	Events  []Event      `json:"events,omitempty"`
	Board   []BoardPost  `json:"board,omitempty"`
}

type AgentState struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Energy  int    `json:"energy"`
	Alive   bool   `json:"alive"`
	Age     int    `json:"age"`
	Invoker string `json:"invoker"`
}

type TurnResult struct {
	AgentID      string `json:"agent_id"`
	Action       string `json:"action"`
	Status       string `json:"status"`
	EnergyBefore int    `json:"energy_before"`
	EnergyAfter  int    `json:"energy_after"`
}

type Event struct {
	Kind    string         `json:"kind"`
	AgentID string         `json:"agent_id"`
	Details map[string]any `json:"details,omitempty"`
}

type BoardPost struct {
	Author  string `json:"author"`
	Turn    int    `json:"turn"`
	Content string `json:"content"`
}
