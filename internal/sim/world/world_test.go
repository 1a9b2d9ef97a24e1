package world

import (
	"errors"
	"testing"
)

func TestNew_AssignsNamesAndVitals(t *testing.T) {
	s, err := New(Config{Agents: 10, InitialEnergy: 25})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Turn != 0 {
		t.Fatalf("turn: got %d want 0", s.Turn)
	}
	if len(s.Board) != 0 {
		t.Fatalf("board should start empty, got %d posts", len(s.Board))
	}
	wantNames := []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon", "Zeta", "Eta", "Theta", "Agent-8", "Agent-9"}
	for i, a := range s.Agents {
		if a.Name != wantNames[i] {
			t.Fatalf("agent %d name: got %q want %q", i, a.Name, wantNames[i])
		}
		if a.Energy != 25 || !a.Alive || a.Age != 0 {
			t.Fatalf("agent %d vitals: %+v", i, *a)
		}
		if a.Invoker != InvokerClaude {
			t.Fatalf("agent %d invoker: got %q", i, a.Invoker)
		}
	}
}

func TestNew_MixedInvokersSplitInHalf(t *testing.T) {
	s, err := New(Config{Agents: 4, InitialEnergy: 5, Invoker: "mixed"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	want := []InvokerKind{InvokerClaude, InvokerClaude, InvokerCodex, InvokerCodex}
	for i, a := range s.Agents {
		if a.Invoker != want[i] {
			t.Fatalf("agent %d invoker: got %q want %q", i, a.Invoker, want[i])
		}
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cases := []Config{
		{Agents: 0, InitialEnergy: 10},
		{Agents: -2, InitialEnergy: 10},
		{Agents: 2, InitialEnergy: 0},
		{Agents: 2, InitialEnergy: 10, Invoker: "gpt"},
		{Agents: 2, InitialEnergy: 10, Names: []string{"Same", "Same"}},
	}
	for _, c := range cases {
		if _, err := New(c); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("config %+v: expected ErrInvalidConfig, got %v", c, err)
		}
	}
}

func TestAliveAgents_StableCollectionOrder(t *testing.T) {
	s, _ := New(Config{Agents: 4, InitialEnergy: 3})
	s.Agents[1].Alive = false
	s.Agents[1].Energy = 0

	alive := s.AliveAgents()
	if len(alive) != 3 {
		t.Fatalf("alive: got %d want 3", len(alive))
	}
	for i, want := range []string{"Alpha", "Gamma", "Delta"} {
		if alive[i].Name != want {
			t.Fatalf("alive[%d]: got %s want %s", i, alive[i].Name, want)
		}
	}
}

func TestAppendBroadcast_TagsCurrentTurn(t *testing.T) {
	s, _ := New(Config{Agents: 2, InitialEnergy: 3})
	s.Turn = 4
	s.AppendBroadcast("Alpha", "first")
	s.Turn = 5
	s.AppendBroadcast("Beta", "second")

	if len(s.Board) != 2 {
		t.Fatalf("board len: %d", len(s.Board))
	}
	if s.Board[0] != (BoardMessage{Author: "Alpha", Turn: 4, Content: "first"}) {
		t.Fatalf("post 0: %+v", s.Board[0])
	}
	if s.Board[1].Turn != 5 {
		t.Fatalf("post 1 turn: %d", s.Board[1].Turn)
	}
}

func TestRecentBoard_Window(t *testing.T) {
	s, _ := New(Config{Agents: 1, InitialEnergy: 3})
	for i := 0; i < 5; i++ {
		s.AppendBroadcast("Alpha", string(rune('a'+i)))
	}
	got := s.RecentBoard(2)
	if len(got) != 2 || got[0].Content != "d" || got[1].Content != "e" {
		t.Fatalf("recent: %+v", got)
	}
	got[0].Content = "mutated"
	if s.Board[3].Content != "d" {
		t.Fatalf("RecentBoard must return a copy")
	}
	if all := s.RecentBoard(0); len(all) != 5 {
		t.Fatalf("limit 0 should return all posts, got %d", len(all))
	}
}

func TestView_IsDetached(t *testing.T) {
	s, _ := New(Config{Agents: 3, InitialEnergy: 9})
	s.AppendBroadcast("Alpha", "hi")

	v := s.View("agent-1", 10)
	if v.Self.Name != "Beta" {
		t.Fatalf("self: %+v", v.Self)
	}
	if len(v.Others) != 2 || v.Others[0].Name != "Alpha" || v.Others[1].Name != "Gamma" {
		t.Fatalf("others: %+v", v.Others)
	}

	v.Self.Energy = 1000
	v.Others[0].Alive = false
	v.Board[0].Content = "rewritten"

	if s.Agents[1].Energy != 9 || !s.Agents[0].Alive || s.Board[0].Content != "hi" {
		t.Fatalf("view mutation leaked into state")
	}
}

func TestAgentLookup(t *testing.T) {
	s, _ := New(Config{Agents: 3, InitialEnergy: 9})
	if a := s.AgentByName("Gamma"); a == nil || a.ID != "agent-2" {
		t.Fatalf("by name: %+v", a)
	}
	if a := s.AgentByName("gamma"); a != nil {
		t.Fatalf("names are case-sensitive")
	}
	if a := s.AgentByID("agent-0"); a == nil || a.Name != "Alpha" {
		t.Fatalf("by id: %+v", a)
	}
	if s.AgentByID("agent-9") != nil {
		t.Fatalf("unknown id should be nil")
	}
}

func TestActionKind(t *testing.T) {
	cases := []struct {
		a    Action
		want ActionKind
	}{
		{Action{}, ActionNone},
		{Action{Speak: "hi"}, ActionBroadcast},
		{Action{Transfer: &TransferRequest{To: "Beta", Amount: 1}}, ActionTransfer},
		{Action{Memory: "note"}, ActionMemory},
		{Action{Speak: "hi", Transfer: &TransferRequest{To: "Beta", Amount: 1}}, ActionCombined},
	}
	for _, c := range cases {
		if got := c.a.Kind(); got != c.want {
			t.Fatalf("%+v: got %s want %s", c.a, got, c.want)
		}
	}
	if !(Action{}).IsNoop() {
		t.Fatalf("zero action must be a no-op")
	}
}
