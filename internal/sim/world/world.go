package world

import "fmt"

// State is the authoritative simulation state for one run.
// The agent collection is fixed at creation; dead agents stay addressable.
type State struct {
	Turn   int
	Agents []*Agent
	Board  []BoardMessage // append-only, newest last
}

func New(cfg Config) (*State, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &State{
		Agents: make([]*Agent, 0, cfg.Agents),
		Board:  []BoardMessage{},
	}
	for i := 0; i < cfg.Agents; i++ {
		s.Agents = append(s.Agents, &Agent{
			ID:      fmt.Sprintf("agent-%d", i),
			Name:    cfg.nameAt(i),
			Energy:  cfg.InitialEnergy,
			Alive:   true,
			Invoker: cfg.invokerAt(i),
		})
	}
	return s, nil
}

// AliveAgents returns living agents in collection order.
func (s *State) AliveAgents() []*Agent {
	out := make([]*Agent, 0, len(s.Agents))
	for _, a := range s.Agents {
		if a.Alive {
			out = append(out, a)
		}
	}
	return out
}

func (s *State) AgentByName(name string) *Agent {
	for _, a := range s.Agents {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (s *State) AgentByID(id string) *Agent {
	for _, a := range s.Agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}
