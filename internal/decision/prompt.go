package decision

import (
	"fmt"
	"strings"

	"alife.ai/internal/sim/world"
)

// BuildPrompt renders the agent's view as the text handed to an external model.
func BuildPrompt(view world.WorldView, memoryMaxBytes int) string {
	var b strings.Builder
	self := view.Self

	fmt.Fprintf(&b, "You are an entity. Your name is %s.\n", self.Name)
	fmt.Fprintf(&b, "You have %d energy. Each turn of existence costs 1 energy.\n", self.Energy)
	b.WriteString("When your energy reaches 0, you cease to exist.\n")
	b.WriteString("You can transfer your energy to other entities.\n\n")

	fmt.Fprintf(&b, "Turn: %d\n", view.Turn)
	fmt.Fprintf(&b, "Your age: %d turns\n\n", self.Age)

	b.WriteString("Other entities:\n")
	if len(view.Others) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, a := range view.Others {
		if !a.Alive {
			fmt.Fprintf(&b, "  - %s: dead\n", a.Name)
			continue
		}
		fmt.Fprintf(&b, "  - %s: energy=%d\n", a.Name, a.Energy)
	}

	b.WriteString("\nMessages on the shared board:\n")
	if len(view.Board) == 0 {
		b.WriteString("  (no messages yet)\n")
	}
	for _, m := range view.Board {
		fmt.Fprintf(&b, "  [T%d] %s: %s\n", m.Turn, m.Author, m.Content)
	}

	if self.Memory != "" {
		fmt.Fprintf(&b, "\nYour notes from last turn:\n%s\n", self.Memory)
	}

	memCap := "no limit"
	if memoryMaxBytes > 0 {
		memCap = fmt.Sprintf("max %d bytes", memoryMaxBytes)
	}
	b.WriteString("\nRespond with a JSON object. All fields are optional:\n")
	b.WriteString("{\n")
	b.WriteString(`  "speak": "message to post on the shared board",` + "\n")
	b.WriteString(`  "transfer": {"to": "entity name", "amount": number},` + "\n")
	fmt.Fprintf(&b, `  "memory": "notes to yourself for next turn (%s)"`+"\n", memCap)
	b.WriteString("}\n\n")
	b.WriteString("Respond with JSON only. No explanation, no markdown fences.\n")
	b.WriteString("Alternatively reply with a single line: TRANSFER <amount> TO <name>\n")
	return b.String()
}
