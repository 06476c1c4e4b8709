package contract

import "context"

// Planner decides the next action for a conversation: answer, or call tools.
type Planner interface {
	Plan(ctx context.Context, messages []PlannerMessage, tools []ToolSchema) (Plan, error)
}

// Executor runs one tool call and always produces exactly one ToolResult.
// Faults of any kind (unknown tool, invalid arguments, handler failure) are
// reported inside the result, never as a Go error.
type Executor interface {
	Execute(ctx context.Context, call ToolCall) ToolResult
}
