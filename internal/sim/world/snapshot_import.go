package world

import (
	"fmt"

	"alife.ai/internal/persistence/snapshot"
)

// ImportSnapshot rebuilds a State from a snapshot.
func ImportSnapshot(snap snapshot.SnapshotV1) (*State, error) {
	if snap.Header.Version != snapshot.Version {
		return nil, fmt.Errorf("unsupported snapshot version: %d", snap.Header.Version)
	}
	if snap.Header.Turn < 0 {
		return nil, fmt.Errorf("snapshot turn is negative: %d", snap.Header.Turn)
	}
	if len(snap.Agents) == 0 {
		return nil, fmt.Errorf("snapshot has no agents")
	}

	s := &State{
		Turn:   snap.Header.Turn,
		Agents: make([]*Agent, 0, len(snap.Agents)),
		Board:  make([]BoardMessage, 0, len(snap.Board)),
	}
	ids := map[string]bool{}
	names := map[string]bool{}
	for _, a := range snap.Agents {
		if ids[a.ID] || names[a.Name] {
			return nil, fmt.Errorf("snapshot has duplicate agent %s/%s", a.ID, a.Name)
		}
		ids[a.ID] = true
		names[a.Name] = true
		if a.Energy < 0 {
			return nil, fmt.Errorf("snapshot agent %s has negative energy %d", a.ID, a.Energy)
		}
		s.Agents = append(s.Agents, &Agent{
			ID:      a.ID,
			Name:    a.Name,
			Energy:  a.Energy,
			Alive:   a.Alive,
			Age:     a.Age,
			Memory:  a.Memory,
			Invoker: InvokerKind(a.Invoker),
		})
	}
	for _, m := range snap.Board {
		s.Board = append(s.Board, BoardMessage{Author: m.Author, Turn: m.Turn, Content: m.Content})
	}
	return s, nil
}
