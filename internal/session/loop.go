package session

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"aide/internal/gateway"
)

// Run drives the interactive loop until the user exits, the input closes,
// or the context is cancelled. The reader should be the same buffered reader
// the confirmation gate uses, so typed-ahead input lands in one place.
func (s *Session) Run(ctx context.Context, in *bufio.Reader) error {
	for {
		s.printer.ShowPrompt(s.dirctx.Dir)

		line, err := readLine(ctx, in)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				s.printer.Goodbye()
				return nil
			}
			return err
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if cmd, ok := slashCommand(input); ok {
			if s.runCommand(cmd) {
				s.printer.Goodbye()
				return nil
			}
			continue
		}

		if err := s.RunTurn(ctx, input); err != nil {
			if errors.Is(err, context.Canceled) {
				s.printer.Goodbye()
				return nil
			}
			s.printer.Error("%v", err)
			if errors.Is(err, gateway.ErrUnavailable) {
				s.printer.Info("is the backend running? check the host and try again")
			}
		}
	}
}

// slashCommand normalizes session commands. Bare "exit" and "quit" are
// accepted alongside the slash forms.
func slashCommand(input string) (string, bool) {
	lower := strings.ToLower(input)
	switch lower {
	case "exit", "quit":
		return "exit", true
	}
	if !strings.HasPrefix(lower, "/") {
		return "", false
	}
	return strings.TrimPrefix(lower, "/"), true
}

// runCommand executes a session command. Returns true when the session
// should end.
func (s *Session) runCommand(cmd string) bool {
	switch cmd {
	case "exit", "quit":
		return true
	case "help":
		s.printer.Help()
	case "cwd":
		s.printer.Plain(s.dirctx.Dir)
	case "tools":
		for _, tool := range s.registry.All() {
			marker := " "
			if tool.RequiresConfirmation {
				marker = "*"
			}
			s.printer.Plain(marker + " " + tool.Name + " - " + tool.Description)
		}
		s.printer.Info("* requires confirmation")
	default:
		s.printer.Error("unknown command /%s", cmd)
		s.printer.Help()
	}
	return false
}

// readLine reads one line, honoring context cancellation. The blocked read
// goroutine is abandoned on cancel; process shutdown reclaims it.
func readLine(ctx context.Context, in *bufio.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := in.ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && r.line == "" {
			return "", r.err
		}
		return r.line, nil
	}
}
