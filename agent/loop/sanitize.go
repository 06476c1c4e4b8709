package loop

import (
	"encoding/json"
	"fmt"

	contractx "github.com/fasfous92/public-transport-RAG/agent/contract"
)

// placeholderContent replaces content that has no string representation.
// History sanitization must never abort the loop, so conversion failures
// degrade to this marker instead of propagating.
const placeholderContent = "[unrepresentable content]"

// Sanitize reduces a message log to the plain-string form the planner
// accepts. Wire structure (roles, tool call ids, tool call batches)
// survives; only content is normalized. Pure and total: any input yields a
// same-length output without error.
func Sanitize(messages []contractx.Message) []contractx.PlannerMessage {
	out := make([]contractx.PlannerMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, contractx.PlannerMessage{
			Role:       m.Role,
			Content:    stringify(m.Content),
			ToolCalls:  m.ToolCalls,
			ToolCallID: m.ToolCallID,
			ToolName:   m.ToolName,
		})
	}
	return out
}

func stringify(content any) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []byte:
		return string(c)
	case fmt.Stringer:
		return c.String()
	case error:
		return c.Error()
	default:
		raw, err := json.Marshal(c)
		if err != nil {
			return placeholderContent
		}
		return string(raw)
	}
}
