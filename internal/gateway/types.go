// Package gateway talks to the local inference backend and translates its
// output into either plain text or a structured tool intent.
//
// The gateway performs no confirmation and no execution; it is purely
// translation between conversation state and the backend wire format.
package gateway

// Message is one turn of the conversation in backend wire format.
type Message struct {
	Role    string `json:"role"` // system, user, assistant, tool
	Content string `json:"content"`
}

// Roles used in conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ReplyKind distinguishes the two reply shapes.
type ReplyKind string

const (
	// KindText is a plain natural-language reply.
	KindText ReplyKind = "text"

	// KindToolIntent is a structured capability invocation request.
	KindToolIntent ReplyKind = "tool_intent"
)

// ToolIntent is the model's request to invoke a capability.
type ToolIntent struct {
	// ID correlates the intent with its execution result.
	ID string

	// Name is the requested tool.
	Name string

	// Arguments maps parameter names to raw values.
	Arguments map[string]any
}

// Reply is the deterministic classification of a backend response.
type Reply struct {
	Kind   ReplyKind
	Text   string
	Intent *ToolIntent // set only when Kind == KindToolIntent
}

// ModelInfo describes one model available on the backend.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}
