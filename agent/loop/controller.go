// Package loop drives the reason/act/observe cycle for one conversation
// turn: plan against the sanitized history, execute requested tools in
// order, feed results back, and stream progress events to the caller.
package loop

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	contractx "github.com/fasfous92/public-transport-RAG/agent/contract"
	statex "github.com/fasfous92/public-transport-RAG/agent/state"
)

const (
	// DefaultMaxIterations bounds plan/act cycles per turn. The counter is
	// the only guard against a planner that keeps requesting tools.
	DefaultMaxIterations = 8

	// eventBufferSize keeps the loop from blocking on a slow consumer
	// through ordinary bursts. Ordering is preserved by the channel.
	eventBufferSize = 64
)

// budgetApology is appended and surfaced when the iteration budget runs out.
const budgetApology = "I could not complete this request within the allotted number of steps. Please try a more specific question."

// Option customizes a Controller.
type Option func(*Controller)

func WithMaxIterations(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(c *Controller) {
		c.systemPrompt = prompt
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// Controller is the loop state machine. It is stateless across turns and
// safe to share between sessions; all mutable state lives in the Session.
type Controller struct {
	planner       contractx.Planner
	executor      contractx.Executor
	schemas       []contractx.ToolSchema
	systemPrompt  string
	maxIterations int
	logger        zerolog.Logger
}

func New(planner contractx.Planner, executor contractx.Executor, schemas []contractx.ToolSchema, opts ...Option) (*Controller, error) {
	if planner == nil {
		return nil, fmt.Errorf("%w: planner is required", contractx.ErrValidation)
	}
	if executor == nil {
		return nil, fmt.Errorf("%w: executor is required", contractx.ErrValidation)
	}

	c := &Controller{
		planner:       planner,
		executor:      executor,
		schemas:       schemas,
		maxIterations: DefaultMaxIterations,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Run starts one turn: the user message is appended to the session and the
// reasoning loop executes in a goroutine, emitting AgentEvents on the
// returned channel. The channel is buffered, preserves emission order, and
// is closed after exactly one terminal event (final_answer, budget_exceeded
// or error). A second Run on a session whose turn is still in flight fails
// with ErrSessionBusy.
func (c *Controller) Run(ctx context.Context, sess *statex.Session, userText string) (<-chan contractx.AgentEvent, error) {
	if sess == nil {
		return nil, fmt.Errorf("%w: session is required", contractx.ErrValidation)
	}
	if userText == "" {
		return nil, contractx.ErrEmptyMessage
	}
	if !sess.TryAcquire() {
		return nil, fmt.Errorf("%w: %s", contractx.ErrSessionBusy, sess.ID)
	}

	if c.systemPrompt != "" && sess.Len() == 0 {
		sess.Append(contractx.Message{Role: contractx.RoleSystem, Content: c.systemPrompt})
	}
	sess.Append(contractx.Message{Role: contractx.RoleUser, Content: userText})
	turn := sess.BumpTurn()

	events := make(chan contractx.AgentEvent, eventBufferSize)
	go func() {
		defer close(events)
		defer sess.Release()
		c.run(ctx, sess, turn, events)
	}()
	return events, nil
}

// run executes plan/act cycles until a terminal state is reached. Exactly
// one terminal event is emitted on every path.
func (c *Controller) run(ctx context.Context, sess *statex.Session, turn int, events chan<- contractx.AgentEvent) {
	logger := c.logger.With().Str("session", sess.ID).Int("turn", turn).Logger()

	for iter := 0; ; iter++ {
		if iter >= c.maxIterations {
			logger.Warn().Int("iterations", iter).Msg("iteration budget exhausted")
			sess.Append(contractx.Message{Role: contractx.RoleAssistant, Content: budgetApology})
			events <- contractx.AgentEvent{Kind: contractx.EventBudgetExceeded, Text: budgetApology}
			return
		}
		if err := ctx.Err(); err != nil {
			events <- contractx.AgentEvent{Kind: contractx.EventError, Text: fmt.Sprintf("turn cancelled: %v", err)}
			return
		}

		plan, err := c.planner.Plan(ctx, Sanitize(sess.Snapshot()), c.schemas)
		if err != nil {
			// Transport-level planner failure is the one fatal fault.
			logger.Error().Err(err).Int("iteration", iter).Msg("planner call failed")
			events <- contractx.AgentEvent{Kind: contractx.EventError, Text: err.Error()}
			return
		}

		if plan.IsFinal() {
			logger.Debug().Int("iteration", iter).Msg("final answer")
			sess.Append(contractx.Message{Role: contractx.RoleAssistant, Content: plan.FinalAnswer})
			events <- contractx.AgentEvent{Kind: contractx.EventFinalAnswer, Text: plan.FinalAnswer}
			return
		}

		if plan.Reasoning != "" {
			events <- contractx.AgentEvent{Kind: contractx.EventThought, Text: plan.Reasoning}
		}

		// One assistant message carries the whole batch; the tool messages
		// that answer it are appended in execution order.
		sess.Append(contractx.Message{
			Role:      contractx.RoleAssistant,
			Content:   plan.Reasoning,
			ToolCalls: plan.ToolCalls,
		})

		cancelled := false
		for i := range plan.ToolCalls {
			call := plan.ToolCalls[i]
			if err := ctx.Err(); err != nil {
				// Safe checkpoint between sequential calls: stop issuing
				// new executions. The batch message is already in the log,
				// so every remaining call still gets a tool reply —
				// otherwise the next turn would replay an assistant
				// tool_calls message with unanswered calls, which the
				// completions API rejects.
				for _, skipped := range plan.ToolCalls[i:] {
					sess.Append(contractx.Message{
						Role:       contractx.RoleTool,
						Content:    fmt.Sprintf("Error executing %s: cancelled before execution", skipped.Name),
						ToolCallID: skipped.ID,
						ToolName:   skipped.Name,
					})
				}
				events <- contractx.AgentEvent{Kind: contractx.EventError, Text: fmt.Sprintf("turn cancelled: %v", err)}
				cancelled = true
				break
			}

			events <- contractx.AgentEvent{Kind: contractx.EventToolRequest, ToolCall: &call}
			logger.Debug().Str("tool", call.Name).Int("iteration", iter).Msg("executing tool")

			result := c.executor.Execute(ctx, call)
			events <- contractx.AgentEvent{Kind: contractx.EventToolResult, ToolResult: &result}

			sess.Append(contractx.Message{
				Role:       contractx.RoleTool,
				Content:    toolFeedback(result),
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
		if cancelled {
			return
		}
	}
}

// toolFeedback is what the planner sees for a completed call on the next
// iteration. Errors are phrased as corrective feedback so the model can
// self-correct rather than repeat the mistake.
func toolFeedback(result contractx.ToolResult) any {
	if result.OK() {
		return result.Payload
	}
	return fmt.Sprintf("Error executing %s: %s", result.Name, result.ErrorDetail)
}
