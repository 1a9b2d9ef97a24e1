package decision

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"alife.ai/internal/sim/physics"
	"alife.ai/internal/sim/world"
)

var (
	fenceRe    = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	transferRe = regexp.MustCompile(`(?i)\bTRANSFER\s+(\d+)\s+TO\s+([A-Za-z0-9_-]+)`)
)

const maxSchemaErrLen = 300

// Parse turns raw provider output into an Outcome. Structured JSON is sanitized field
// by field; text without JSON falls back to the bare "TRANSFER <n> TO <name>" directive.
// Output with nothing usable is a parse error carrying a no-op action.
func Parse(raw string, lim world.Limits) Outcome {
	out := Outcome{RawOutput: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		out.Status = StatusEmpty
		return out
	}

	if obj, ok := decodeObject(extractJSON(trimmed)); ok {
		if err := validateAction(obj); err != "" {
			out.SchemaErr = err
		}
		out.Action, out.Dropped = SanitizeAction(obj, lim)
		if out.Action.IsNoop() && len(out.Dropped) > 0 {
			out.Status = StatusParseError
			return out
		}
		out.Status = StatusOK
		return out
	}

	if req, ok := ParseTransferDirective(trimmed); ok {
		out.Action = world.Action{Transfer: &req}
		out.Status = StatusOK
		return out
	}

	out.Status = StatusParseError
	return out
}

// ParseTransferDirective finds the first "TRANSFER <n> TO <name>" in text.
func ParseTransferDirective(text string) (world.TransferRequest, bool) {
	m := transferRe.FindStringSubmatch(text)
	if m == nil {
		return world.TransferRequest{}, false
	}
	amount, err := strconv.Atoi(m[1])
	if err != nil || amount <= 0 {
		return world.TransferRequest{}, false
	}
	return world.TransferRequest{To: m[2], Amount: amount}, true
}

// SanitizeAction keeps every well-formed field of obj and reports the names of the ones it dropped.
// Unknown keys are ignored.
func SanitizeAction(obj map[string]any, lim world.Limits) (world.Action, []string) {
	var (
		act     world.Action
		dropped []string
	)

	if v, ok := obj["speak"]; ok && v != nil {
		if s, ok := v.(string); ok {
			act.Speak = physics.TruncateChars(strings.TrimSpace(s), lim.SpeakMaxChars)
		} else {
			dropped = append(dropped, "speak")
		}
	}

	if v, ok := obj["transfer"]; ok && v != nil {
		if req, ok := sanitizeTransfer(v); ok {
			act.Transfer = &req
		} else {
			dropped = append(dropped, "transfer")
		}
	}

	if v, ok := obj["memory"]; ok && v != nil {
		if s, ok := v.(string); ok {
			act.Memory = physics.TruncateBytes(s, lim.MemoryMaxBytes)
		} else {
			dropped = append(dropped, "memory")
		}
	}

	return act, dropped
}

func sanitizeTransfer(v any) (world.TransferRequest, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return world.TransferRequest{}, false
	}
	to, ok := m["to"].(string)
	to = strings.TrimSpace(to)
	if !ok || to == "" {
		return world.TransferRequest{}, false
	}
	amount, ok := positiveInt(m["amount"])
	if !ok {
		return world.TransferRequest{}, false
	}
	return world.TransferRequest{To: to, Amount: amount}, true
}

func positiveInt(v any) (int, bool) {
	var n int64
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, false
		}
		n = i
	case float64:
		if x != float64(int64(x)) {
			return 0, false
		}
		n = int64(x)
	case int:
		n = int64(x)
	default:
		return 0, false
	}
	if n <= 0 || n > int64(^uint32(0)>>1) {
		return 0, false
	}
	return int(n), true
}

func extractJSON(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

func decodeObject(text string) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func validateAction(obj map[string]any) string {
	sch, err := ActionSchema()
	if err != nil {
		return ""
	}
	if err := sch.Validate(obj); err != nil {
		return physics.TruncateChars(err.Error(), maxSchemaErrLen)
	}
	return ""
}
