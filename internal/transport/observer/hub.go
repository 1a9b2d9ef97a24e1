package observer

import (
	"encoding/json"
	"sync"

	"alife.ai/internal/observerproto"
	"alife.ai/internal/sim/physics"
	"alife.ai/internal/sim/world"
)

// MaxBoardPosts is the most board history a TURN message can carry.
const MaxBoardPosts = 50

// Hub turns completed turns into TURN messages and fans them out to websocket sessions.
// ObserveTurn runs on the simulation goroutine; everything it hands to sessions is a copy.
type Hub struct {
	mu     sync.Mutex
	latest observerproto.TurnMsg
	subs   map[string]*session
}

type session struct {
	sub observerproto.SubscribeMsg
	out chan []byte
}

func NewHub() *Hub {
	return &Hub{subs: map[string]*session{}}
}

func (h *Hub) ObserveTurn(st *world.State, results []world.TurnResult, sweep []world.Event) {
	h.Publish(BuildTurnMsg(st, results, sweep))
}

// Publish records msg as the latest turn and queues it for every session, dropping
// the oldest pending message of a slow session.
func (h *Hub) Publish(msg observerproto.TurnMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = msg
	for _, s := range h.subs {
		if b, err := encodeFor(msg, s.sub); err == nil {
			sendLatest(s.out, b)
		}
	}
}

func (h *Hub) Latest() observerproto.TurnMsg {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// join registers a session and queues the latest turn so new viewers see state immediately.
func (h *Hub) join(id string, sub observerproto.SubscribeMsg) <-chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := &session{sub: sub, out: make(chan []byte, 8)}
	h.subs[id] = s
	if h.latest.Type != "" {
		if b, err := encodeFor(h.latest, sub); err == nil {
			sendLatest(s.out, b)
		}
	}
	return s.out
}

func (h *Hub) resubscribe(id string, sub observerproto.SubscribeMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		s.sub = sub
	}
}

func (h *Hub) leave(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

func (h *Hub) sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func encodeFor(msg observerproto.TurnMsg, sub observerproto.SubscribeMsg) ([]byte, error) {
	if len(msg.Board) > sub.BoardLimit {
		msg.Board = msg.Board[len(msg.Board)-sub.BoardLimit:]
	}
	if !sub.Results {
		msg.Results = nil
	}
	return json.Marshal(msg)
}

// BuildTurnMsg copies what observers may see out of st.
func BuildTurnMsg(st *world.State, results []world.TurnResult, sweep []world.Event) observerproto.TurnMsg {
	msg := observerproto.TurnMsg{
		Type:            "TURN",
		ProtocolVersion: observerproto.Version,
		Turn:            st.Turn,
		TotalEnergy:     physics.TotalEnergy(st),
		Agents:          make([]observerproto.AgentState, 0, len(st.Agents)),
	}
	for _, a := range st.Agents {
		if a.Alive {
			msg.Alive++
		}
		msg.Agents = append(msg.Agents, observerproto.AgentState{
			ID:      a.ID,
			Name:    a.Name,
			Energy:  a.Energy,
			Alive:   a.Alive,
			Age:     a.Age,
			Invoker: string(a.Invoker),
		})
	}
	for _, r := range results {
		msg.Results = append(msg.Results, observerproto.TurnResult{
			AgentID:      r.AgentID,
			Action:       string(r.Action.Kind()),
			Status:       r.Status,
			EnergyBefore: r.EnergyBefore,
			EnergyAfter:  r.EnergyAfter,
		})
		for _, ev := range r.Events {
			msg.Events = append(msg.Events, eventInfo(ev))
		}
	}
	for _, ev := range sweep {
		msg.Events = append(msg.Events, eventInfo(ev))
	}
	for _, p := range st.RecentBoard(MaxBoardPosts) {
		msg.Board = append(msg.Board, observerproto.BoardPost{Author: p.Author, Turn: p.Turn, Content: p.Content})
	}
	return msg
}

func eventInfo(ev world.Event) observerproto.Event {
	var details map[string]any
	if len(ev.Details) > 0 {
		details = make(map[string]any, len(ev.Details))
		for k, v := range ev.Details {
			details[k] = v
		}
	}
	return observerproto.Event{Kind: string(ev.Kind), AgentID: ev.AgentID, Details: details}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
