// Package agent implements the role-configured reasoning runtime: a
// think/act/observe loop over an LLM provider with a bounded tool set, a
// token-budgeted memory and a hard iteration cap.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/wayfarer/tools"
)

// ErrIterationLimit signals that a role invocation exhausted its reasoning
// budget without producing a final answer. Callers match it with errors.Is;
// it is a recoverable condition, not a defect.
var ErrIterationLimit = errors.New("agent: iteration limit exceeded")

// State tracks one role invocation through its lifecycle.
type State int

const (
	StateIdle State = iota
	StateReasoning
	StateCompleted
	StateIterationLimit
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReasoning:
		return "reasoning"
	case StateCompleted:
		return "completed"
	case StateIterationLimit:
		return "iteration_limit_exceeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Role is an immutable configuration pairing a tool subset, an instruction
// prompt and a memory budget with the shared reasoning capability.
type Role struct {
	Name          string
	SystemPrompt  string
	Tools         *tools.Registry
	MemoryBudget  int
	MaxIterations int
}

// Agent executes one role. It is not safe for concurrent use: its memory is
// mutable conversational state, which is why roles are constructed fresh per
// planning session.
type Agent struct {
	role   Role
	llm    Provider
	memory *Memory
	logger *log.Logger
	state  State
}

// New creates an idle agent for the role.
func New(role Role, llm Provider, logger *log.Logger) *Agent {
	if logger == nil {
		logger = log.New(log.Writer(), "[AGENT] ", log.LstdFlags)
	}
	return &Agent{
		role:   role,
		llm:    llm,
		memory: NewMemory(role.MemoryBudget),
		logger: logger,
		state:  StateIdle,
	}
}

// State returns the outcome of the last invocation.
func (a *Agent) State() State { return a.state }

// Role returns the agent's role configuration.
func (a *Agent) Role() Role { return a.role }

// ResetMemory clears conversational state between sessions.
func (a *Agent) ResetMemory() { a.memory.Reset() }

// Chat runs the think/act/observe loop for one prompt. It returns the final
// answer text, ErrIterationLimit when the reasoning budget runs out, or the
// underlying failure.
func (a *Agent) Chat(ctx context.Context, prompt string) (string, error) {
	a.state = StateReasoning
	a.memory.Append("user", prompt)

	for i := 0; i < a.role.MaxIterations; i++ {
		messages := append([]Message{{Role: "system", Content: a.systemPrompt()}}, a.memory.Messages()...)

		out, err := a.llm.Chat(ctx, messages)
		if err != nil {
			a.state = StateFailed
			return "", fmt.Errorf("%s: llm call failed: %w", a.role.Name, err)
		}
		a.memory.Append("assistant", out)

		if action, input, ok := parseAction(out); ok {
			observation := a.act(ctx, action, input)
			if observation.err != nil {
				a.state = StateFailed
				return "", fmt.Errorf("%s: tool %s failed: %w", a.role.Name, action, observation.err)
			}
			a.memory.Append("user", "Observation: "+observation.text)
			continue
		}

		a.state = StateCompleted
		return finalAnswer(out), nil
	}

	a.state = StateIterationLimit
	return "", fmt.Errorf("%s after %d iterations: %w", a.role.Name, a.role.MaxIterations, ErrIterationLimit)
}

func (a *Agent) systemPrompt() string {
	if a.role.Tools == nil || a.role.Tools.Len() == 0 {
		return a.role.SystemPrompt
	}
	return a.role.SystemPrompt + "\n\nAvailable tools:\n" + a.role.Tools.Describe()
}

type observation struct {
	text string
	err  error
}

// act invokes one tool. A reference to an unknown tool or unparseable input
// is fed back as an observation so the model can correct itself; a tool
// returning an error (credential or validation defects) fails the invocation.
func (a *Agent) act(ctx context.Context, name, input string) observation {
	if a.role.Tools == nil {
		return observation{text: fmt.Sprintf("Error: this role has no tools, but tried to call %q.", name)}
	}
	tool, ok := a.role.Tools.Get(name)
	if !ok {
		return observation{text: fmt.Sprintf("Error: unknown tool %q. Available tools: %s.", name, strings.Join(a.role.Tools.Names(), ", "))}
	}

	args, err := decodeArgs(input)
	if err != nil {
		return observation{text: fmt.Sprintf("Error: could not parse Action Input as JSON: %s.", err)}
	}

	a.logger.Printf("%s -> %s(%s)", a.role.Name, name, compact(input))
	result, err := tool.Run(ctx, args)
	if err != nil {
		return observation{err: err}
	}
	return observation{text: result}
}

// parseAction extracts "Action:" and "Action Input:" lines from a reasoning
// turn.
func parseAction(text string) (name, input string, ok bool) {
	idx := strings.Index(text, "Action:")
	if idx < 0 {
		return "", "", false
	}
	rest := text[idx+len("Action:"):]

	nameEnd := strings.IndexByte(rest, '\n')
	if nameEnd < 0 {
		nameEnd = len(rest)
	}
	name = strings.TrimSpace(rest[:nameEnd])
	if name == "" {
		return "", "", false
	}

	if inIdx := strings.Index(rest, "Action Input:"); inIdx >= 0 {
		input = strings.TrimSpace(rest[inIdx+len("Action Input:"):])
	}
	return name, input, true
}

// finalAnswer strips the reasoning preamble from a terminal turn.
func finalAnswer(text string) string {
	if idx := strings.Index(text, "Final Answer:"); idx >= 0 {
		return strings.TrimSpace(text[idx+len("Final Answer:"):])
	}
	if idx := strings.LastIndex(text, "Thought:"); idx >= 0 {
		// A terminal thought with no action is the answer itself.
		candidate := strings.TrimSpace(text[idx+len("Thought:"):])
		if candidate != "" {
			return candidate
		}
	}
	return strings.TrimSpace(text)
}

// decodeArgs parses the Action Input JSON object. Inputs wrapped in code
// fences or followed by trailing prose are tolerated.
func decodeArgs(input string) (tools.Args, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return tools.Args{}, nil
	}

	if body, ok := extractJSONObject(input); ok {
		var args tools.Args
		if err := json.Unmarshal([]byte(body), &args); err != nil {
			return nil, err
		}
		return args, nil
	}
	return nil, fmt.Errorf("no JSON object found in %q", compact(input))
}

// extractJSONObject finds the first balanced {...} in text.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func compact(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
