package hooks

import (
	"time"

	"github.com/zcc-dev/zcc/internal/pack"
)

// Event is an assistant lifecycle event.
type Event string

const (
	EventUserPromptSubmit Event = "UserPromptSubmit"
	EventPreToolUse       Event = "PreToolUse"
	EventPostToolUse      Event = "PostToolUse"
	EventSessionStart     Event = "SessionStart"
	EventSessionEnd       Event = "SessionEnd"
	EventStop             Event = "Stop"
	EventSubagentStop     Event = "SubagentStop"
	EventPreCompact       Event = "PreCompact"
	EventNotification     Event = "Notification"
)

// Events lists every event in a stable order.
func Events() []Event {
	out := make([]Event, 0, len(pack.HookEvents))
	for _, e := range pack.HookEvents {
		out = append(out, Event(e))
	}
	return out
}

// ParseEvent validates s as an event name.
func ParseEvent(s string) (Event, bool) {
	if pack.ValidEvent(s) {
		return Event(s), true
	}
	return "", false
}

// ExitBlock is the exit code a hook uses to block the event.
const ExitBlock = 2

// MatcherType selects how a Matcher pattern is applied.
type MatcherType string

const (
	MatchKeyword MatcherType = "keyword"
	MatchRegex   MatcherType = "regex"
	MatchTool    MatcherType = "tool"
	MatchGlob    MatcherType = "glob"
)

// Matcher restricts a hook to matching inputs.
type Matcher struct {
	Type    MatcherType `json:"type" yaml:"type"`
	Pattern string      `json:"pattern" yaml:"pattern"`
}

// Config is a hook definition, persisted as one JSON file per hook.
type Config struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Event           Event             `json:"event"`
	Enabled         bool              `json:"enabled"`
	Matcher         *Matcher          `json:"matcher,omitempty"`
	Command         string            `json:"command"`
	Args            []string          `json:"args,omitempty"`
	Env             map[string]string `json:"env,omitempty"`
	Timeout         int               `json:"timeout,omitempty"`
	Priority        int               `json:"priority,omitempty"`
	ContinueOnError bool              `json:"continueOnError,omitempty"`
	// Pack is the pack that configured the hook, if any.
	Pack string `json:"pack,omitempty"`
}

// Input is the event payload written to a hook's stdin as JSON.
type Input struct {
	Event     Event          `json:"hook_event_name"`
	SessionID string         `json:"session_id,omitempty"`
	Cwd       string         `json:"cwd,omitempty"`
	Prompt    string         `json:"prompt,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	ToolInput map[string]any `json:"tool_input,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// Result is the outcome of running one hook.
type Result struct {
	HookID      string        `json:"hookId"`
	ExitCode    int           `json:"exitCode"`
	Stdout      string        `json:"stdout,omitempty"`
	Stderr      string        `json:"stderr,omitempty"`
	Duration    time.Duration `json:"duration"`
	TimedOut    bool          `json:"timedOut,omitempty"`
	ShouldBlock bool          `json:"shouldBlock,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Success reports whether the hook exited 0.
func (r Result) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut && r.Error == ""
}

// Outcome is the dispatch result for one event.
type Outcome struct {
	Event   Event    `json:"event"`
	Results []Result `json:"results"`
	Blocked bool     `json:"blocked"`
	Failed  bool     `json:"failed"`
	// Prompt is the possibly rewritten prompt for UserPromptSubmit.
	Prompt string `json:"prompt,omitempty"`
}
