package tool

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v6"

	contractx "github.com/fasfous92/public-transport-RAG/agent/contract"
)

// Executor runs tool calls against the registry. Every fault — unknown
// tool, malformed or invalid arguments, handler error, handler panic — is
// converted into an error ToolResult so the reasoning loop never crashes on
// a tool and can feed the failure back to the planner as corrective context.
type Executor struct {
	registry *Registry
	logger   zerolog.Logger
}

var _ contractx.Executor = (*Executor)(nil)

func NewExecutor(registry *Registry, logger zerolog.Logger) *Executor {
	return &Executor{
		registry: registry,
		logger:   logger,
	}
}

// Execute performs one tool call and returns exactly one ToolResult.
// Handlers may reach external services; the executor does not retry —
// retry policy, if any, belongs to the handler.
func (e *Executor) Execute(ctx context.Context, call contractx.ToolCall) contractx.ToolResult {
	tool, ok := e.registry.lookup(call.Name)
	if !ok {
		e.logger.Warn().Str("tool", call.Name).Msg("unknown tool requested")
		return errorResult(call, fmt.Sprintf("%v: %q", contractx.ErrUnknownTool, call.Name))
	}

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		return errorResult(call, fmt.Sprintf("invalid tool arguments: %v", err))
	}
	if err := tool.schema.Validate(args); err != nil {
		return errorResult(call, fmt.Sprintf("tool arguments violate schema: %v", err))
	}

	payload, err := e.invoke(ctx, tool, args)
	if err != nil {
		e.logger.Warn().Str("tool", call.Name).Err(err).Msg("tool execution failed")
		return errorResult(call, err.Error())
	}

	return contractx.ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Status:  contractx.ToolStatusOK,
		Payload: payload,
	}
}

// invoke runs the handler with panic isolation.
func (e *Executor) invoke(ctx context.Context, tool *registeredTool, args map[string]any) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("tool", tool.spec.Name).Any("panic", r).Msg("tool handler panicked")
			payload = nil
			err = fmt.Errorf("tool %s failed internally", tool.spec.Name)
		}
	}()
	return tool.spec.Handler(ctx, args)
}

func decodeArguments(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	args, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arguments must be a JSON object, got %T", doc)
	}
	return args, nil
}

func errorResult(call contractx.ToolCall, detail string) contractx.ToolResult {
	return contractx.ToolResult{
		CallID:      call.ID,
		Name:        call.Name,
		Status:      contractx.ToolStatusError,
		ErrorDetail: detail,
	}
}
