package contract

import "encoding/json"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a session's conversation log. The log is
// append-only: once a message is added it is never mutated, and identity is
// positional. Content may be a plain string or a structured payload (tool
// results keep their decoded form); the sanitizer reduces it to a string
// before the planner sees it.
type Message struct {
	Role       Role       `json:"role"`
	Content    any        `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant messages requesting tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool messages answering a call
	ToolName   string     `json:"tool_name,omitempty"`
}

// PlannerMessage is the sanitized form fed to the planner: same wire
// structure as Message but with content guaranteed to be a plain string.
type PlannerMessage struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// ToolCall is a planner-requested tool invocation. Arguments are kept as the
// raw JSON the planner produced; decoding and schema validation happen in
// the executor so malformed output turns into a corrective ToolResult
// instead of aborting the turn.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolStatus is the outcome of a tool invocation.
type ToolStatus string

const (
	ToolStatusOK    ToolStatus = "ok"
	ToolStatusError ToolStatus = "error"
)

// ToolResult is the single response produced for one ToolCall.
type ToolResult struct {
	CallID      string     `json:"call_id"`
	Name        string     `json:"name"`
	Status      ToolStatus `json:"status"`
	Payload     any        `json:"payload,omitempty"`
	ErrorDetail string     `json:"error_detail,omitempty"`
}

// OK reports whether the invocation succeeded.
func (r ToolResult) OK() bool {
	return r.Status == ToolStatusOK
}

// ToolSchema is the planner-facing description of a registered tool.
// Parameters holds a JSON Schema document (object form).
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Plan is a single planner decision: either a final answer or a batch of
// tool calls, optionally preceded by free-text reasoning. Reasoning is
// surfaced as a thought event even when tool calls follow.
type Plan struct {
	Reasoning   string     `json:"reasoning,omitempty"`
	FinalAnswer string     `json:"final_answer,omitempty"`
	ToolCalls   []ToolCall `json:"tool_calls,omitempty"`
}

// IsFinal reports whether the plan terminates the turn.
func (p Plan) IsFinal() bool {
	return len(p.ToolCalls) == 0
}

// EventKind discriminates AgentEvent payloads.
type EventKind string

const (
	EventThought        EventKind = "thought"
	EventToolRequest    EventKind = "tool_request"
	EventToolResult     EventKind = "tool_result"
	EventFinalAnswer    EventKind = "final_answer"
	EventBudgetExceeded EventKind = "budget_exceeded"
	EventError          EventKind = "error"
)

// Terminal reports whether the kind ends the event stream for a turn.
func (k EventKind) Terminal() bool {
	switch k {
	case EventFinalAnswer, EventBudgetExceeded, EventError:
		return true
	}
	return false
}

// AgentEvent is one unit of streamed progress information. Events are
// transient: emitted once, consumed once, never stored in the session.
type AgentEvent struct {
	Kind       EventKind   `json:"kind"`
	Text       string      `json:"text,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}
