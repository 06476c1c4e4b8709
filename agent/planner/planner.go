// Package planner wraps the NVIDIA Integrate chat completions API (an
// OpenAI-compatible endpoint) behind the contract.Planner interface.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	contractx "github.com/fasfous92/public-transport-RAG/agent/contract"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://integrate.api.nvidia.com/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"nvidia/llama-3.3-nemotron-super-49b-v1.5"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: planner api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: planner model is required", contractx.ErrValidation)
	}
	return nil
}

// Client implements contract.Planner over the chat completions API.
type Client struct {
	api         openaisdk.Client
	model       string
	temperature float64
	maxTokens   int
	logger      zerolog.Logger
}

var _ contractx.Planner = (*Client)(nil)

func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{
		api:         openaisdk.NewClient(opts...),
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxCompletionToken,
		logger:      logger,
	}, nil
}

// Plan sends the sanitized history plus tool schemas to the model and maps
// the completion to a Plan. Transport, auth and rate-limit failures wrap
// ErrPlannerTransport and are fatal for the turn; structurally malformed
// tool calls are passed through untouched so the executor can answer them
// with a corrective error ToolResult.
func (c *Client) Plan(ctx context.Context, messages []contractx.PlannerMessage, tools []contractx.ToolSchema) (contractx.Plan, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.model),
		Messages: toWireMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = toWireTools(tools)
	}
	if c.temperature >= 0 {
		params.Temperature = openaisdk.Float(c.temperature)
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(c.maxTokens))
	}

	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Error().Err(err).Str("model", c.model).Msg("chat completion failed")
		return contractx.Plan{}, fmt.Errorf("%w: %v", contractx.ErrPlannerTransport, err)
	}
	if len(completion.Choices) == 0 {
		return contractx.Plan{}, fmt.Errorf("%w: completion has no choices", contractx.ErrPlannerTransport)
	}

	msg := completion.Choices[0].Message
	content := strings.TrimSpace(msg.Content)

	if len(msg.ToolCalls) == 0 {
		return contractx.Plan{FinalAnswer: content}, nil
	}

	calls := make([]contractx.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		id := tc.ID
		if id == "" {
			id = uuid.NewString()
		}
		calls = append(calls, contractx.ToolCall{
			ID:        id,
			Name:      strings.TrimSpace(tc.Function.Name),
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}

	return contractx.Plan{
		Reasoning: content,
		ToolCalls: calls,
	}, nil
}

func toWireMessages(messages []contractx.PlannerMessage) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case contractx.RoleSystem:
			out = append(out, openaisdk.SystemMessage(m.Content))
		case contractx.RoleUser:
			out = append(out, openaisdk.UserMessage(m.Content))
		case contractx.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openaisdk.AssistantMessage(m.Content))
				continue
			}
			assistant := openaisdk.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openaisdk.String(m.Content)
			}
			for _, call := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openaisdk.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: string(call.Arguments),
					},
				})
			}
			out = append(out, openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case contractx.RoleTool:
			out = append(out, openaisdk.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

func toWireTools(tools []contractx.ToolSchema) []openaisdk.ChatCompletionToolParam {
	out := make([]openaisdk.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openaisdk.ChatCompletionToolParam{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openaisdk.String(t.Description),
				Parameters:  openaisdk.FunctionParameters(t.Parameters),
			},
		})
	}
	return out
}

// IsTransportFault reports whether err is fatal for the reasoning loop.
func IsTransportFault(err error) bool {
	return errors.Is(err, contractx.ErrPlannerTransport)
}
