package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"alife.ai/internal/sim/physics"
	"alife.ai/internal/sim/world"
)

const maxErrLen = 500

type ExecConfig struct {
	Variant world.InvokerKind

	// Binary defaults to the variant name ("claude" or "codex").
	Binary string
	// Model is passed to the claude CLI (default "sonnet").
	Model string
	// StreamJSON asks the claude CLI for stream-json output and extracts the text blocks.
	StreamJSON bool

	Limits world.Limits
	Logger *log.Logger
}

// Exec obtains decisions by piping the prompt into an external agent CLI.
type Exec struct {
	cfg ExecConfig
}

func NewExec(cfg ExecConfig) *Exec {
	if cfg.Binary == "" {
		cfg.Binary = string(cfg.Variant)
	}
	if cfg.Model == "" {
		cfg.Model = "sonnet"
	}
	return &Exec{cfg: cfg}
}

func (e *Exec) Decide(ctx context.Context, view world.WorldView) Outcome {
	prompt := BuildPrompt(view, e.cfg.Limits.MemoryMaxBytes)

	var (
		raw string
		err error
	)
	switch e.cfg.Variant {
	case world.InvokerCodex:
		raw, err = e.runCodex(ctx, view.Self, prompt)
	default:
		raw, err = e.runClaude(ctx, prompt)
	}
	if err != nil {
		status := StatusError
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			status = StatusTimeout
		}
		msg := physics.TruncateChars(err.Error(), maxErrLen)
		if e.cfg.Logger != nil {
			e.cfg.Logger.Printf("[%s] invocation %s: %s", view.Self.Name, status, physics.TruncateChars(msg, 200))
		}
		return Outcome{Status: status, Err: msg, RawOutput: raw}
	}
	return Parse(raw, e.cfg.Limits)
}

func (e *Exec) runClaude(ctx context.Context, prompt string) (string, error) {
	format := "text"
	if e.cfg.StreamJSON {
		format = "stream-json"
	}
	args := []string{"-p", "--output-format", format, "--model", e.cfg.Model}
	if e.cfg.StreamJSON {
		args = append(args, "--verbose")
	}
	stdout, err := e.run(ctx, prompt, args...)
	if err != nil {
		return stdout, err
	}
	if e.cfg.StreamJSON {
		return ExtractStreamText(stdout), nil
	}
	return stdout, nil
}

func (e *Exec) runCodex(ctx context.Context, self world.Agent, prompt string) (string, error) {
	f, err := os.CreateTemp("", "alife-output-"+self.ID+"-*.txt")
	if err != nil {
		return "", err
	}
	outPath := f.Name()
	_ = f.Close()
	defer os.Remove(outPath)

	if _, err := e.run(ctx, prompt, "exec", "-o", outPath, "--sandbox", "read-only"); err != nil {
		return "", err
	}
	b, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("read codex output: %w", err)
	}
	return string(b), nil
}

func (e *Exec) run(ctx context.Context, stdin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, e.cfg.Binary, args...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = childEnv()
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdout.String(), fmt.Errorf("%s: %w", e.cfg.Binary, ctxErr)
		}
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return stdout.String(), fmt.Errorf("%s: %w: %s", e.cfg.Binary, err, s)
		}
		return stdout.String(), fmt.Errorf("%s: %w", e.cfg.Binary, err)
	}
	return stdout.String(), nil
}

// childEnv drops CLAUDECODE so a nested agent CLI does not think it runs inside another session.
func childEnv() []string {
	env := os.Environ()
	out := env[:0:0]
	for _, kv := range env {
		if strings.HasPrefix(kv, "CLAUDECODE=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// ExtractStreamText collects assistant text blocks and result lines from stream-json output.
// Input that contains no recognizable lines is returned unchanged.
func ExtractStreamText(jsonl string) string {
	var parts []string
	for _, line := range strings.Split(jsonl, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var msg struct {
			Type    string `json:"type"`
			Result  string `json:"result"`
			Message *struct {
				Content []struct {
					Type string `json:"type"`
					Text string `json:"text"`
				} `json:"content"`
			} `json:"message"`
		}
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "assistant":
			if msg.Message == nil {
				continue
			}
			for _, c := range msg.Message.Content {
				if c.Type == "text" {
					parts = append(parts, c.Text)
				}
			}
		case "result":
			if msg.Result != "" {
				parts = append(parts, msg.Result)
			}
		}
	}
	if len(parts) == 0 {
		return jsonl
	}
	return strings.Join(parts, "\n")
}
