package gateway

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"aide/internal/logging"
)

// toolCallPayload is the JSON shape the model is instructed to emit when it
// wants a tool.
type toolCallPayload struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

// Transduce deterministically classifies model output. A response is a tool
// intent only when it carries a JSON object with a non-empty "tool_name"
// string; anything else, including malformed JSON, is a text reply. Failing
// open to text means a confused model talks to the user instead of silently
// triggering execution.
func Transduce(content string) *Reply {
	candidate, ok := extractJSONObject(content)
	if ok {
		var payload toolCallPayload
		if err := json.Unmarshal([]byte(candidate), &payload); err == nil && payload.ToolName != "" {
			args := payload.Arguments
			if args == nil {
				args = map[string]any{}
			}
			logging.GatewayDebug("transduced tool intent: %s", payload.ToolName)
			return &Reply{
				Kind: KindToolIntent,
				Intent: &ToolIntent{
					ID:        uuid.NewString(),
					Name:      payload.ToolName,
					Arguments: args,
				},
			}
		}
	}

	return &Reply{Kind: KindText, Text: strings.TrimSpace(content)}
}

// extractJSONObject pulls a JSON object out of model output. Handles fenced
// blocks (```json ... ```) and naked objects, possibly surrounded by prose.
func extractJSONObject(content string) (string, bool) {
	trimmed := strings.TrimSpace(content)

	if idx := strings.Index(trimmed, "```json"); idx >= 0 {
		rest := trimmed[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), true
		}
	}
	if strings.HasPrefix(trimmed, "```") {
		rest := strings.TrimPrefix(trimmed, "```")
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), true
		}
	}

	// A naked object must span the whole reply; an object embedded in prose
	// is prose quoting JSON, not an invocation.
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed, true
	}

	return "", false
}
