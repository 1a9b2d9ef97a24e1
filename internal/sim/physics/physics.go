// Package physics holds the deterministic state transitions of the simulation:
// energy decay, transfer settlement, broadcasts, memory updates and death detection.
// Nothing here performs I/O or draws randomness.
package physics

import (
	"unicode/utf8"

	"alife.ai/internal/sim/world"
)

// Decay charges one turn of existence. A dead agent is left untouched.
func Decay(a *world.Agent, turn int) []world.Event {
	if !a.Alive {
		return nil
	}
	a.Energy--
	a.Age++
	if a.Energy > 0 {
		return nil
	}
	return []world.Event{kill(a, turn)}
}

// Transfer moves min(req.Amount, sender.Energy) from sender to the named living recipient.
// Invalid requests are silent no-ops.
func Transfer(sender *world.Agent, req world.TransferRequest, s *world.State) []world.Event {
	if req.Amount <= 0 {
		return nil
	}
	recipient := s.AgentByName(req.To)
	if recipient == nil || !recipient.Alive {
		return nil
	}
	if recipient.ID == sender.ID {
		return nil
	}

	actual := min(req.Amount, sender.Energy)
	if actual <= 0 {
		return nil
	}
	sender.Energy -= actual
	recipient.Energy += actual

	return []world.Event{{
		Turn:    s.Turn,
		Kind:    world.EventTransfer,
		AgentID: sender.ID,
		Details: map[string]any{
			"from":      sender.Name,
			"to":        recipient.Name,
			"to_id":     recipient.ID,
			"amount":    actual,
			"requested": req.Amount,
		},
	}}
}

// ApplyBroadcast posts text to the shared board, truncated to maxChars runes.
func ApplyBroadcast(a *world.Agent, text string, s *world.State, maxChars int) []world.Event {
	text = TruncateChars(text, maxChars)
	if text == "" {
		return nil
	}
	s.AppendBroadcast(a.Name, text)
	return []world.Event{{
		Turn:    s.Turn,
		Kind:    world.EventBroadcast,
		AgentID: a.ID,
		Details: map[string]any{"name": a.Name, "message": text},
	}}
}

// SetMemory replaces the agent's private memory, capped at maxBytes.
func SetMemory(a *world.Agent, text string, maxBytes int) {
	a.Memory = TruncateBytes(text, maxBytes)
}

// ApplyAction applies whichever effects the action carries: broadcast, transfer, then memory.
func ApplyAction(a *world.Agent, act world.Action, s *world.State, lim world.Limits) []world.Event {
	var events []world.Event
	if act.Speak != "" {
		events = append(events, ApplyBroadcast(a, act.Speak, s, lim.SpeakMaxChars)...)
	}
	if act.Transfer != nil {
		events = append(events, Transfer(a, *act.Transfer, s)...)
	}
	if act.Memory != "" {
		SetMemory(a, act.Memory, lim.MemoryMaxBytes)
	}
	return events
}

// CheckDeaths marks every living agent with no energy as dead. Calling it again
// emits nothing for agents already processed.
func CheckDeaths(s *world.State) []world.Event {
	var events []world.Event
	for _, a := range s.Agents {
		if a.Alive && a.Energy <= 0 {
			events = append(events, kill(a, s.Turn))
		}
	}
	return events
}

func TotalEnergy(s *world.State) int {
	total := 0
	for _, a := range s.Agents {
		total += a.Energy
	}
	return total
}

func kill(a *world.Agent, turn int) world.Event {
	a.Energy = 0
	a.Alive = false
	return world.Event{
		Turn:    turn,
		Kind:    world.EventDeath,
		AgentID: a.ID,
		Details: map[string]any{"name": a.Name, "age": a.Age},
	}
}

// TruncateChars cuts s to at most n runes. n <= 0 means no cap.
func TruncateChars(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// TruncateBytes cuts s to at most n bytes without splitting a rune. n <= 0 means no cap.
func TruncateBytes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
