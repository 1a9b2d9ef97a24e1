package world

// WorldView is the read-only picture handed to a decision provider.
// Every field is a copy; mutating it never touches State.
type WorldView struct {
	Turn   int
	Self   Agent
	Others []Agent
	Board  []BoardMessage
}

// View builds the view for agentID with at most boardLimit recent posts.
func (s *State) View(agentID string, boardLimit int) WorldView {
	v := WorldView{
		Turn:   s.Turn,
		Others: make([]Agent, 0, len(s.Agents)),
		Board:  s.RecentBoard(boardLimit),
	}
	for _, a := range s.Agents {
		if a.ID == agentID {
			v.Self = a.Snapshot()
			continue
		}
		v.Others = append(v.Others, a.Snapshot())
	}
	return v
}
