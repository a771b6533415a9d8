package exec

import (
	"context"
	"fmt"
	"time"

	"aide/internal/logging"
	"aide/internal/pathres"
	"aide/internal/tools"
)

// Status is the terminal outcome of an executed action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Reason qualifies a failure so the conversation fold-back can phrase it.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonUserRejected Reason = "user_rejected"
	ReasonBadArgs      Reason = "bad_arguments"
	ReasonFault        Reason = "fault"
	ReasonError        Reason = "error"
)

// Result is the normalized outcome of one action, success or failure.
type Result struct {
	ActionID   string
	ToolName   string
	Status     Status
	Reason     Reason
	Output     string
	Detail     string
	DurationMs int64
}

// Failed reports whether the result is a failure of any kind.
func (r Result) Failed() bool { return r.Status == StatusFailure }

// Engine dispatches confirmed actions to their tools. It is the only
// component that mutates the directory context: a navigation tool's target
// becomes the new working directory iff the tool run succeeded.
type Engine struct {
	registry       *tools.Registry
	dirctx         *pathres.Context
	maxOutputBytes int
}

// NewEngine creates an engine bound to the session's directory context.
func NewEngine(registry *tools.Registry, dirctx *pathres.Context, maxOutputBytes int) *Engine {
	if maxOutputBytes <= 0 {
		maxOutputBytes = 50000
	}
	return &Engine{registry: registry, dirctx: dirctx, maxOutputBytes: maxOutputBytes}
}

// Reject transitions the action to Rejected and returns the failure result
// that gets folded back into the conversation. Nothing runs and no state
// outside the action changes.
func (e *Engine) Reject(action *Action) Result {
	if err := action.Reject(); err != nil {
		logging.Get(logging.CategoryExec).Warn("reject in state %s: %v", action.State(), err)
	}
	logging.Exec("Action %s (%s) rejected by user", action.ID, action.Tool.Name)
	return Result{
		ActionID: action.ID,
		ToolName: action.Tool.Name,
		Status:   StatusFailure,
		Reason:   ReasonUserRejected,
		Detail:   "the user declined this action",
	}
}

// Execute runs a confirmed action and returns its result. A tool panic is
// contained and reported as a failed result; it never unwinds into the
// session loop.
func (e *Engine) Execute(ctx context.Context, action *Action) (result Result) {
	start := time.Now()
	result = Result{ActionID: action.ID, ToolName: action.Tool.Name}

	defer func() {
		if rec := recover(); rec != nil {
			action.state = StateFailed
			result.Status = StatusFailure
			result.Reason = ReasonFault
			result.Output = ""
			result.Detail = fmt.Sprintf("%s crashed: %v", action.Tool.Name, rec)
			result.DurationMs = time.Since(start).Milliseconds()
			logging.Get(logging.CategoryExec).Error("Tool %s panicked: %v", action.Tool.Name, rec)
		}
	}()

	if action.State() != StateConfirmed {
		result.Status = StatusFailure
		result.Reason = ReasonFault
		result.Detail = fmt.Sprintf("action in state %s cannot execute", action.State())
		return result
	}

	if err := e.registry.ValidateArgs(action.Tool, action.Args); err != nil {
		action.state = StateFailed
		result.Status = StatusFailure
		result.Reason = ReasonBadArgs
		result.Detail = err.Error()
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	output, err := action.Tool.Execute(ctx, action.Args)
	result.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		action.state = StateFailed
		result.Status = StatusFailure
		result.Reason = ReasonError
		result.Detail = err.Error()
		logging.Exec("Tool %s failed after %dms: %v", action.Tool.Name, result.DurationMs, err)
		return result
	}

	action.state = StateExecuted
	result.Status = StatusSuccess
	result.Output = truncate(output, e.maxOutputBytes)

	if action.Tool.Navigation {
		if target, ok := action.Args[tools.ArgPath].(string); ok && target != "" {
			e.dirctx.Dir = target
			logging.Exec("Working directory now %s", target)
		}
	}

	logging.ExecDebug("Tool %s executed in %dms", action.Tool.Name, result.DurationMs)
	return result
}

// Dir returns the current working directory of the session.
func (e *Engine) Dir() string { return e.dirctx.Dir }

// truncate caps s at max bytes, cutting at a rune boundary so the result
// stays valid UTF-8 when it is folded back to the model.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return clip(s, max) + fmt.Sprintf("\n... [truncated, %d bytes total]", len(s))
}
