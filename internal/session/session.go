// Package session owns the conversation loop: it carries history to the
// inference gateway, turns tool intents into confirmed actions, and folds
// execution results back into the conversation.
//
// Everything here runs on one goroutine. Tools, confirmation, and backend
// calls are strictly sequential within a turn; the only concurrency is the
// cancellable line reader.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"aide/internal/confirm"
	"aide/internal/exec"
	"aide/internal/gateway"
	"aide/internal/logging"
	"aide/internal/pathres"
	"aide/internal/tools"
	"aide/internal/ui"
)

// Backend is the slice of the gateway client the session needs.
type Backend interface {
	Infer(ctx context.Context, messages []gateway.Message) (*gateway.Reply, error)
}

// Options wires a session together.
type Options struct {
	Backend  Backend
	Registry *tools.Registry
	Resolver *pathres.Resolver
	DirCtx   *pathres.Context
	Engine   *exec.Engine
	Gate     confirm.Confirmer
	Printer  *ui.Printer

	// SystemPrompt is the operator-level instruction prepended to the
	// conversation. The tool catalog is appended to it automatically.
	SystemPrompt string

	// MaxToolIterations bounds tool hops within a single user turn.
	MaxToolIterations int
}

// Session is the conversation orchestrator.
type Session struct {
	backend  Backend
	registry *tools.Registry
	resolver *pathres.Resolver
	dirctx   *pathres.Context
	engine   *exec.Engine
	gate     confirm.Confirmer
	printer  *ui.Printer

	history []gateway.Message
	maxIter int
}

// New creates a session with the system prompt installed as the first
// conversation message.
func New(opts Options) *Session {
	maxIter := opts.MaxToolIterations
	if maxIter <= 0 {
		maxIter = 8
	}

	s := &Session{
		backend:  opts.Backend,
		registry: opts.Registry,
		resolver: opts.Resolver,
		dirctx:   opts.DirCtx,
		engine:   opts.Engine,
		gate:     opts.Gate,
		printer:  opts.Printer,
		maxIter:  maxIter,
	}

	s.history = append(s.history, gateway.Message{
		Role:    gateway.RoleSystem,
		Content: buildSystemPrompt(opts.SystemPrompt, opts.Registry),
	})
	return s
}

// Dir returns the session's current working directory.
func (s *Session) Dir() string {
	return s.dirctx.Dir
}

// History returns the conversation so far.
func (s *Session) History() []gateway.Message {
	return s.history
}

// RunTurn processes one user input to completion: inference, any number of
// tool hops up to the iteration bound, and the final text reply.
//
// On a gateway error the turn aborts but the user message stays in history,
// so a transient backend failure costs nothing but a retry.
func (s *Session) RunTurn(ctx context.Context, input string) error {
	s.history = append(s.history, gateway.Message{Role: gateway.RoleUser, Content: input})
	logging.Session("turn started (history=%d)", len(s.history))

	for hop := 0; hop < s.maxIter; hop++ {
		reply, err := s.backend.Infer(ctx, s.history)
		if err != nil {
			logging.Session("turn aborted: %v", err)
			return err
		}

		if reply.Kind == gateway.KindText {
			s.history = append(s.history, gateway.Message{Role: gateway.RoleAssistant, Content: reply.Text})
			s.printer.Assistant(reply.Text)
			return nil
		}

		// Record the intent as the assistant's turn before acting on it.
		s.history = append(s.history, gateway.Message{
			Role:    gateway.RoleAssistant,
			Content: intentJSON(reply.Intent),
		})

		feedback := s.handleIntent(ctx, reply.Intent)
		if feedback.err != nil {
			return feedback.err
		}
		s.history = append(s.history, gateway.Message{Role: gateway.RoleTool, Content: feedback.message})
	}

	s.printer.Error("stopped after %d tool calls in one turn; ask again to continue", s.maxIter)
	s.history = append(s.history, gateway.Message{
		Role:    gateway.RoleTool,
		Content: fmt.Sprintf("tool iteration limit (%d) reached; stopping this turn", s.maxIter),
	})
	return nil
}

// turnFeedback is what one tool hop contributes back to the conversation.
type turnFeedback struct {
	message string
	err     error // fatal for the turn (context cancelled, input closed)
}

// handleIntent takes a tool intent through resolution, confirmation, and
// execution. Every recoverable problem becomes a tool message for the model
// to correct itself with.
func (s *Session) handleIntent(ctx context.Context, intent *gateway.ToolIntent) turnFeedback {
	tool, err := s.registry.Resolve(intent.Name)
	if err != nil {
		logging.Session("unknown tool requested: %s", intent.Name)
		return turnFeedback{message: fmt.Sprintf(
			"unknown tool %q; available tools: %s", intent.Name, strings.Join(s.registry.Names(), ", "))}
	}

	args, err := s.resolvePathArgs(tool, intent.Arguments)
	if err != nil {
		var ambiguous *pathres.AmbiguousError
		if errors.As(err, &ambiguous) {
			return turnFeedback{message: fmt.Sprintf(
				"path %q is ambiguous; candidates: %s; ask the user or pick one",
				ambiguous.Expression, strings.Join(ambiguous.Candidates, ", "))}
		}
		return turnFeedback{message: fmt.Sprintf("cannot resolve path for %s: %v", tool.Name, err)}
	}

	// An action must be fully validated before the user is asked to approve
	// it; the gate never sees a call that could not run.
	if err := s.registry.ValidateArgs(tool, args); err != nil {
		logging.Session("invalid arguments for %s: %v", tool.Name, err)
		return turnFeedback{message: fmt.Sprintf("%s has invalid arguments: %v; fix the call and retry", tool.Name, err)}
	}

	description := exec.DescribeInvocation(tool, args)
	action := exec.NewAction(intent.ID, tool, args, description)

	if tool.RequiresConfirmation {
		approved, err := s.gate.Confirm(ctx, description)
		if err != nil {
			return turnFeedback{err: err}
		}
		if !approved {
			result := s.engine.Reject(action)
			s.printer.ToolResult(result)
			return turnFeedback{message: resultMessage(result)}
		}
	} else {
		s.printer.ToolRunning(description)
	}

	if err := action.Confirm(); err != nil {
		return turnFeedback{message: fmt.Sprintf("internal error: %v", err)}
	}

	result := s.engine.Execute(ctx, action)
	s.printer.ToolResult(result)
	if tool.Navigation && !result.Failed() {
		s.printer.CwdChanged(s.dirctx.Dir)
	}
	return turnFeedback{message: resultMessage(result)}
}

// resolvePathArgs concretizes every declared path argument. The navigation
// tool's target goes through natural-language resolution; everything else is
// just made absolute against the current directory.
func (s *Session) resolvePathArgs(tool *tools.Tool, raw map[string]any) (map[string]any, error) {
	args := make(map[string]any, len(raw))
	for k, v := range raw {
		args[k] = v
	}

	for _, name := range tool.PathArgs {
		value, ok := args[name].(string)
		if !ok || value == "" {
			continue
		}

		var resolved string
		var err error
		if tool.Navigation && name == tools.ArgPath {
			resolved, err = s.resolver.Resolve(value, *s.dirctx)
		} else {
			resolved, err = s.resolver.Absolutize(value, *s.dirctx)
		}
		if err != nil {
			return nil, err
		}
		logging.ResolverDebug("%s: %q -> %s", name, value, resolved)
		args[name] = resolved
	}
	return args, nil
}

// resultMessage renders an execution result as the tool-role message the
// model sees next hop.
func resultMessage(result exec.Result) string {
	if result.Failed() {
		switch result.Reason {
		case exec.ReasonUserRejected:
			return fmt.Sprintf("%s was not run: %s", result.ToolName, result.Detail)
		default:
			return fmt.Sprintf("%s failed: %s", result.ToolName, result.Detail)
		}
	}
	if strings.TrimSpace(result.Output) == "" {
		return fmt.Sprintf("%s succeeded (no output)", result.ToolName)
	}
	return fmt.Sprintf("%s succeeded:\n%s", result.ToolName, result.Output)
}

func intentJSON(intent *gateway.ToolIntent) string {
	payload := map[string]any{
		"tool_name": intent.Name,
		"arguments": intent.Arguments,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"tool_name":%q}`, intent.Name)
	}
	return string(b)
}

// buildSystemPrompt combines the operator instruction with the tool catalog
// and the invocation protocol.
func buildSystemPrompt(base string, registry *tools.Registry) string {
	var b strings.Builder
	if base != "" {
		b.WriteString(strings.TrimSpace(base))
		b.WriteString("\n\n")
	}
	b.WriteString(registry.PromptBlock())
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(`
To use a tool, reply with ONLY a JSON object of the form
{"tool_name": "<name>", "arguments": {...}} and nothing else.
Reply with plain text when no tool is needed. After a tool result arrives,
continue the task or summarize the outcome for the user.`))
	return b.String()
}
