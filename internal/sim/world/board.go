package world

type BoardMessage struct {
	Author  string `json:"author"`
	Turn    int    `json:"turn"`
	Content string `json:"content"`
}

// AppendBroadcast appends to the shared board, tagged with the current turn.
func (s *State) AppendBroadcast(author, text string) {
	s.Board = append(s.Board, BoardMessage{Author: author, Turn: s.Turn, Content: text})
}

// RecentBoard returns a copy of the last limit posts (all posts if limit <= 0).
func (s *State) RecentBoard(limit int) []BoardMessage {
	posts := s.Board
	if limit > 0 && len(posts) > limit {
		posts = posts[len(posts)-limit:]
	}
	out := make([]BoardMessage, len(posts))
	copy(out, posts)
	return out
}
