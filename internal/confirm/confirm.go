// Package confirm implements the user-approval checkpoint every effectful
// action must pass before execution.
package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirmer blocks until the user accepts or rejects a pending action.
// Implementations must be synchronous: the whole orchestrator suspends on
// this call and nothing else proceeds concurrently.
type Confirmer interface {
	Confirm(ctx context.Context, description string) (bool, error)
}

// TerminalGate prompts for y/n on a terminal. Invalid input re-prompts; an
// interrupt cancels the pending prompt through the context.
type TerminalGate struct {
	in     *bufio.Reader
	out    io.Writer
	render func(description string) string
}

// NewTerminalGate creates a gate reading from in and writing prompts to out.
// The render function formats the description line; nil means plain text.
func NewTerminalGate(in io.Reader, out io.Writer, render func(string) string) *TerminalGate {
	if render == nil {
		render = func(s string) string { return s }
	}
	return &TerminalGate{
		in:     bufio.NewReader(in),
		out:    out,
		render: render,
	}
}

// Confirm presents the description and blocks for a y/n answer.
func (g *TerminalGate) Confirm(ctx context.Context, description string) (bool, error) {
	fmt.Fprintln(g.out, g.render(description))

	for {
		fmt.Fprint(g.out, "Proceed? (y/n): ")

		line, err := g.readLine(ctx)
		if err != nil {
			return false, err
		}

		switch ParseAnswer(line) {
		case AnswerYes:
			return true, nil
		case AnswerNo:
			return false, nil
		default:
			fmt.Fprintln(g.out, "Invalid input. Please enter 'y' or 'n'.")
		}
	}
}

// readLine reads one line, honoring context cancellation so an interrupt can
// cancel a pending suspension. The reader goroutine may outlive a canceled
// call until the underlying Read returns; teardown closes the input anyway.
func (g *TerminalGate) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := g.in.ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil && res.line == "" {
			return "", res.err
		}
		return res.line, nil
	}
}

// Answer classifies a confirmation reply.
type Answer int

const (
	AnswerInvalid Answer = iota
	AnswerYes
	AnswerNo
)

// ParseAnswer interprets a confirmation line.
func ParseAnswer(line string) Answer {
	clean := strings.ToLower(strings.TrimSpace(line))
	switch clean {
	case "y", "yes":
		return AnswerYes
	case "n", "no":
		return AnswerNo
	default:
		return AnswerInvalid
	}
}
