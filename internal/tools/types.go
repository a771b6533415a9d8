// Package tools provides the tool registry for aide.
//
// Every capability the model may request is a Tool registered here at
// startup. The registry is the single source of truth for what exists, what
// arguments it takes, and whether it needs user confirmation before running.
package tools

import (
	"context"
)

// ArgPath is the conventional name of a tool's primary path argument.
// Navigation tools must accept their target under this name.
const ArgPath = "path"

// Category classifies tools for display grouping.
type Category string

const (
	// CategoryFilesystem covers file reading, writing, search and navigation.
	CategoryFilesystem Category = "filesystem"

	// CategoryProcess covers shell commands and background processes.
	CategoryProcess Category = "process"

	// CategoryWeb covers network fetching.
	CategoryWeb Category = "web"
)

// Property describes a single parameter for the argument schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
}

// Schema defines the expected arguments for a tool.
type Schema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution.
// Arguments arrive fully resolved; paths are absolute.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool defines a capability the model may invoke.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does. It is advertised to the
	// model, so it should say when the tool applies.
	Description string

	// Category classifies the tool for display grouping.
	Category Category

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema Schema

	// RequiresConfirmation gates the tool behind an explicit user yes/no.
	// Every tool with an external effect must set this; read-only
	// introspection may leave it false.
	RequiresConfirmation bool

	// Navigation marks the tool as mutating the session's directory
	// context on success. Its path argument goes through natural-language
	// resolution rather than plain absolutization.
	Navigation bool

	// PathArgs names arguments that hold filesystem paths. They are
	// absolutized against the directory context before execution.
	PathArgs []string
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// Result wraps the outcome of tool execution with metadata.
type Result struct {
	// ToolName identifies which tool was executed.
	ToolName string

	// Output is the string output from the tool.
	Output string

	// Error is set if the tool failed.
	Error error

	// DurationMs is how long execution took.
	DurationMs int64
}

// IsSuccess returns true if the tool executed without error.
func (r *Result) IsSuccess() bool {
	return r.Error == nil
}
