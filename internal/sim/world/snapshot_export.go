package world

import "alife.ai/internal/persistence/snapshot"

// ExportSnapshot captures the full state. The result shares no memory with s.
func (s *State) ExportSnapshot(runID string) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, RunID: runID, Turn: s.Turn},
		Agents: make([]snapshot.AgentV1, 0, len(s.Agents)),
		Board:  make([]snapshot.BoardMessageV1, 0, len(s.Board)),
	}
	for _, a := range s.Agents {
		snap.Agents = append(snap.Agents, snapshot.AgentV1{
			ID:      a.ID,
			Name:    a.Name,
			Energy:  a.Energy,
			Alive:   a.Alive,
			Age:     a.Age,
			Memory:  a.Memory,
			Invoker: string(a.Invoker),
		})
	}
	for _, m := range s.Board {
		snap.Board = append(snap.Board, snapshot.BoardMessageV1{Author: m.Author, Turn: m.Turn, Content: m.Content})
	}
	return snap
}
