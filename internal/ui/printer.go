package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"

	"aide/internal/exec"
)

// Printer writes all session output. In quiet mode decorative output is
// suppressed and assistant replies pass through unrendered, which keeps the
// one-shot mode pipeable.
type Printer struct {
	out      io.Writer
	quiet    bool
	renderer *glamour.TermRenderer
}

// NewPrinter creates a printer for the given writer. The markdown renderer
// is best-effort: if it cannot initialize, replies print as plain text.
func NewPrinter(out io.Writer, quiet bool) *Printer {
	p := &Printer{out: out, quiet: quiet}
	if !quiet {
		p.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
	}
	return p
}

// Banner prints the startup banner with backend details.
func (p *Printer) Banner(model, host string) {
	if p.quiet {
		return
	}
	text := fmt.Sprintf("aide | %s @ %s", model, host)
	fmt.Fprintln(p.out, bannerStyle.Render(text))
	fmt.Fprintln(p.out, mutedStyle.Render("Type /help for commands, /exit to quit."))
	fmt.Fprintln(p.out)
}

// Prompt renders the input prompt line showing the current directory's
// basename, e.g. "aide (Documents) > ".
func (p *Printer) Prompt(cwd string) string {
	base := filepath.Base(cwd)
	return promptStyle.Render("aide ") + cwdStyle.Render("("+base+")") + promptStyle.Render(" > ")
}

// ShowPrompt writes the prompt line without a trailing newline.
func (p *Printer) ShowPrompt(cwd string) {
	fmt.Fprint(p.out, p.Prompt(cwd))
}

// Assistant prints a model reply, rendered as markdown when possible.
func (p *Printer) Assistant(text string) {
	if p.renderer != nil {
		if rendered, err := p.renderer.Render(text); err == nil {
			fmt.Fprint(p.out, rendered)
			return
		}
	}
	fmt.Fprintln(p.out, text)
}

// ToolRequest formats the proposed-action line the confirmation gate shows.
// Wire it in as the gate's render function.
func (p *Printer) ToolRequest(description string) string {
	if p.quiet {
		return "wants to run: " + description
	}
	return confirmStyle.Render("wants to run: " + description)
}

// ToolRunning announces an auto-approved action as it starts.
func (p *Printer) ToolRunning(description string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, toolStyle.Render("→ ")+mutedStyle.Render(description))
}

// ToolResult prints the outcome of an executed action.
func (p *Printer) ToolResult(result exec.Result) {
	if p.quiet {
		return
	}
	if result.Failed() {
		fmt.Fprintln(p.out, errorStyle.Render("✗ "+result.ToolName)+mutedStyle.Render(": "+result.Detail))
		return
	}
	line := toolStyle.Render("✓ " + result.ToolName)
	if result.DurationMs > 0 {
		line += mutedStyle.Render(fmt.Sprintf(" (%dms)", result.DurationMs))
	}
	fmt.Fprintln(p.out, line)
	if out := strings.TrimSpace(result.Output); out != "" {
		fmt.Fprintln(p.out, indent(out, "  "))
	}
}

// CwdChanged announces a successful navigation.
func (p *Printer) CwdChanged(dir string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, cwdStyle.Render("cwd: "+dir))
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.out, errorStyle.Render("error: ")+fmt.Sprintf(format, args...))
}

// Info prints a muted informational line.
func (p *Printer) Info(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Plain prints unstyled text regardless of quiet mode.
func (p *Printer) Plain(text string) {
	fmt.Fprintln(p.out, text)
}

// Help prints the slash-command reference.
func (p *Printer) Help() {
	help := `Commands:
  /help    show this help
  /cwd     print the current working directory
  /tools   list available tools
  /exit    quit (also /quit)`
	fmt.Fprintln(p.out, mutedStyle.Render(help))
}

// Goodbye prints the exit line.
func (p *Printer) Goodbye() {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, mutedStyle.Render("bye"))
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
