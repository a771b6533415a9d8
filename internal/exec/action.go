// Package exec runs resolved actions and normalizes their outcomes.
//
// The confirm-then-execute sequence is modeled as an explicit state machine
// (Proposed -> Confirmed/Rejected -> Executed/Failed) so every reachable
// state is reproducible under test.
package exec

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"aide/internal/tools"
)

// State is the lifecycle state of an action.
type State string

const (
	StateProposed  State = "proposed"
	StateConfirmed State = "confirmed"
	StateRejected  State = "rejected"
	StateExecuted  State = "executed"
	StateFailed    State = "failed"
)

// Action is a tool intent with all arguments validated and concretized.
// An action is always fully resolved by the time it exists: path arguments
// are absolute and the tool is known to the registry.
type Action struct {
	// ID correlates the action with the originating tool intent.
	ID string

	// Tool is the registered descriptor to dispatch to.
	Tool *tools.Tool

	// Args are the fully resolved parameters.
	Args map[string]any

	// Description is the human-readable line shown at the confirmation gate.
	Description string

	state State
}

// NewAction creates an action in the Proposed state.
func NewAction(id string, tool *tools.Tool, args map[string]any, description string) *Action {
	return &Action{
		ID:          id,
		Tool:        tool,
		Args:        args,
		Description: description,
		state:       StateProposed,
	}
}

// State returns the current lifecycle state.
func (a *Action) State() State { return a.state }

// Confirm transitions Proposed -> Confirmed.
func (a *Action) Confirm() error {
	if a.state != StateProposed {
		return fmt.Errorf("cannot confirm action in state %s", a.state)
	}
	a.state = StateConfirmed
	return nil
}

// Reject transitions Proposed -> Rejected.
func (a *Action) Reject() error {
	if a.state != StateProposed {
		return fmt.Errorf("cannot reject action in state %s", a.state)
	}
	a.state = StateRejected
	return nil
}

// DescribeInvocation renders a one-line summary of a tool call for the
// confirmation gate and logs, e.g. `write_file(path: "/tmp/x", content: ...)`.
// Path arguments are always shown in full: the user approves a concrete
// target, and an elided path hides exactly the part that matters. Only bulky
// values like file content get clipped.
func DescribeInvocation(tool *tools.Tool, args map[string]any) string {
	parts := make([]string, 0, len(args))
	for _, name := range sortedKeys(args) {
		value := fmt.Sprintf("%v", args[name])
		if len(value) > 60 && !isPathArg(tool, name) {
			value = clip(value, 57) + "..."
		}
		parts = append(parts, fmt.Sprintf("%s: %q", name, value))
	}
	return fmt.Sprintf("%s(%s)", tool.Name, strings.Join(parts, ", "))
}

func isPathArg(tool *tools.Tool, name string) bool {
	for _, p := range tool.PathArgs {
		if p == name {
			return true
		}
	}
	return false
}

// clip cuts s to at most max bytes without splitting a rune.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
