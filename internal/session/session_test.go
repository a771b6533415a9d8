package session

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/internal/confirm"
	"aide/internal/exec"
	"aide/internal/gateway"
	"aide/internal/pathres"
	"aide/internal/tools"
	"aide/internal/ui"
)

// scriptedBackend returns canned replies in order and records what it saw.
type scriptedBackend struct {
	replies []*gateway.Reply
	errs    []error
	calls   [][]gateway.Message
}

func (b *scriptedBackend) Infer(ctx context.Context, messages []gateway.Message) (*gateway.Reply, error) {
	snapshot := make([]gateway.Message, len(messages))
	copy(snapshot, messages)
	b.calls = append(b.calls, snapshot)

	i := len(b.calls) - 1
	if i < len(b.errs) && b.errs[i] != nil {
		return nil, b.errs[i]
	}
	if i >= len(b.replies) {
		return &gateway.Reply{Kind: gateway.KindText, Text: "done"}, nil
	}
	return b.replies[i], nil
}

// scriptedGate answers confirmations in order and logs events into a shared
// trace so ordering against tool execution can be asserted.
type scriptedGate struct {
	answers []bool
	asked   []string
	trace   *[]string
}

func (g *scriptedGate) Confirm(ctx context.Context, description string) (bool, error) {
	g.asked = append(g.asked, description)
	if g.trace != nil {
		*g.trace = append(*g.trace, "confirm")
	}
	if len(g.asked) > len(g.answers) {
		return false, nil
	}
	return g.answers[len(g.asked)-1], nil
}

func textReply(text string) *gateway.Reply {
	return &gateway.Reply{Kind: gateway.KindText, Text: text}
}

func intentReply(id, name string, args map[string]any) *gateway.Reply {
	return &gateway.Reply{
		Kind:   gateway.KindToolIntent,
		Intent: &gateway.ToolIntent{ID: id, Name: name, Arguments: args},
	}
}

type fixture struct {
	session *Session
	backend *scriptedBackend
	gate    confirm.Confirmer
	dirctx  *pathres.Context
	out     *bytes.Buffer
	trace   []string
}

// newFixture builds a session over a real temp directory tree with a
// Documents subdirectory, mirroring a home directory layout.
func newFixture(t *testing.T, backend *scriptedBackend, gate confirm.Confirmer, register func(*tools.Registry)) *fixture {
	t.Helper()

	home := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(home, "Documents"), 0755))
	require.NoError(t, os.Mkdir(filepath.Join(home, "Downloads"), 0755))

	registry := tools.NewRegistry()
	if register != nil {
		register(registry)
	}

	resolver, err := pathres.New(pathres.WithHome(home))
	require.NoError(t, err)

	f := &fixture{
		backend: backend,
		gate:    gate,
		dirctx:  &pathres.Context{Dir: home},
		out:     &bytes.Buffer{},
	}
	if sg, ok := gate.(*scriptedGate); ok {
		sg.trace = &f.trace
	}

	f.session = New(Options{
		Backend:           backend,
		Registry:          registry,
		Resolver:          resolver,
		DirCtx:            f.dirctx,
		Engine:            exec.NewEngine(registry, f.dirctx, 10000),
		Gate:              gate,
		Printer:           ui.NewPrinter(f.out, true),
		SystemPrompt:      "You are a terminal assistant.",
		MaxToolIterations: 4,
	})
	return f
}

func TestRunTurn_TextReply(t *testing.T) {
	backend := &scriptedBackend{replies: []*gateway.Reply{textReply("hello there")}}
	f := newFixture(t, backend, &scriptedGate{}, nil)

	require.NoError(t, f.session.RunTurn(context.Background(), "hi"))

	history := f.session.History()
	require.Len(t, history, 3) // system, user, assistant
	assert.Equal(t, gateway.RoleSystem, history[0].Role)
	assert.Equal(t, "hi", history[1].Content)
	assert.Equal(t, "hello there", history[2].Content)
	assert.Contains(t, f.out.String(), "hello there")
}

func TestRunTurn_ConfirmBeforeExecute(t *testing.T) {
	var f *fixture
	backend := &scriptedBackend{replies: []*gateway.Reply{
		intentReply("i1", "touchy", map[string]any{"value": "x"}),
		textReply("all set"),
	}}
	gate := &scriptedGate{answers: []bool{true}}

	f = newFixture(t, backend, gate, func(r *tools.Registry) {
		r.MustRegister(&tools.Tool{
			Name:                 "touchy",
			Description:          "a gated tool",
			RequiresConfirmation: true,
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				f.trace = append(f.trace, "execute")
				return "side effect", nil
			},
		})
	})

	require.NoError(t, f.session.RunTurn(context.Background(), "do the thing"))

	require.Equal(t, []string{"confirm", "execute"}, f.trace, "confirmation must strictly precede execution")
	require.Len(t, gate.asked, 1)
	assert.Contains(t, gate.asked[0], "touchy")

	// Result folded back as a tool message before the final text.
	history := f.session.History()
	require.Len(t, history, 5) // system, user, assistant(intent), tool, assistant(text)
	assert.Equal(t, gateway.RoleTool, history[3].Role)
	assert.Contains(t, history[3].Content, "touchy succeeded")
	assert.Equal(t, "all set", history[4].Content)
}

func TestRunTurn_RejectionRunsNothing(t *testing.T) {
	ran := false
	backend := &scriptedBackend{replies: []*gateway.Reply{
		intentReply("i1", "touchy", nil),
		textReply("ok, skipped"),
	}}
	gate := &scriptedGate{answers: []bool{false}}

	f := newFixture(t, backend, gate, func(r *tools.Registry) {
		r.MustRegister(&tools.Tool{
			Name:                 "touchy",
			RequiresConfirmation: true,
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				ran = true
				return "", nil
			},
		})
	})

	startDir := f.dirctx.Dir
	require.NoError(t, f.session.RunTurn(context.Background(), "do it"))

	assert.False(t, ran, "rejected tool must never execute")
	assert.Equal(t, startDir, f.dirctx.Dir)

	history := f.session.History()
	assert.Contains(t, history[3].Content, "was not run")
	assert.Contains(t, history[3].Content, "declined")
}

func TestRunTurn_UnconfirmedToolRunsDirectly(t *testing.T) {
	backend := &scriptedBackend{replies: []*gateway.Reply{
		intentReply("i1", "peek", nil),
		textReply("done"),
	}}
	gate := &scriptedGate{}

	f := newFixture(t, backend, gate, func(r *tools.Registry) {
		r.MustRegister(&tools.Tool{
			Name:    "peek",
			Execute: func(ctx context.Context, args map[string]any) (string, error) { return "data", nil },
		})
	})

	require.NoError(t, f.session.RunTurn(context.Background(), "peek"))
	assert.Empty(t, gate.asked, "read-only tool must not hit the gate")
	assert.Contains(t, f.session.History()[3].Content, "peek succeeded")
}

func TestRunTurn_InvalidArgsNeverReachGate(t *testing.T) {
	ran := false
	backend := &scriptedBackend{replies: []*gateway.Reply{
		intentReply("i1", "writer", map[string]any{"path": "x.txt"}),
		textReply("let me fix that"),
	}}
	gate := &scriptedGate{answers: []bool{true}}

	f := newFixture(t, backend, gate, func(r *tools.Registry) {
		r.MustRegister(&tools.Tool{
			Name:                 "writer",
			RequiresConfirmation: true,
			Schema: tools.Schema{
				Required:   []string{"path", "content"},
				Properties: map[string]tools.Property{"path": {Type: "string"}, "content": {Type: "string"}},
			},
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				ran = true
				return "", nil
			},
		})
	})

	require.NoError(t, f.session.RunTurn(context.Background(), "write it"))

	assert.Empty(t, gate.asked, "the user must not be asked to approve a call that cannot run")
	assert.False(t, ran)

	history := f.session.History()
	assert.Contains(t, history[3].Content, "invalid arguments")
	assert.Contains(t, history[3].Content, "content")
}

func TestRunTurn_UnknownToolFoldsBack(t *testing.T) {
	backend := &scriptedBackend{replies: []*gateway.Reply{
		intentReply("i1", "teleport", nil),
		textReply("my mistake"),
	}}
	f := newFixture(t, backend, &scriptedGate{}, func(r *tools.Registry) {
		r.MustRegister(&tools.Tool{
			Name:    "read_file",
			Execute: func(ctx context.Context, args map[string]any) (string, error) { return "", nil },
		})
	})

	require.NoError(t, f.session.RunTurn(context.Background(), "go"))

	history := f.session.History()
	assert.Contains(t, history[3].Content, `unknown tool "teleport"`)
	assert.Contains(t, history[3].Content, "read_file")
	assert.Equal(t, "my mistake", history[4].Content)
}

func TestRunTurn_GatewayErrorKeepsUserTurn(t *testing.T) {
	backend := &scriptedBackend{errs: []error{gateway.ErrUnavailable}}
	f := newFixture(t, backend, &scriptedGate{}, nil)

	err := f.session.RunTurn(context.Background(), "hello?")
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrUnavailable)

	history := f.session.History()
	require.Len(t, history, 2)
	assert.Equal(t, "hello?", history[1].Content)
}

func TestRunTurn_IterationLimit(t *testing.T) {
	// The backend stubbornly asks for the same tool forever.
	replies := make([]*gateway.Reply, 10)
	for i := range replies {
		replies[i] = intentReply("i", "peek", nil)
	}
	backend := &scriptedBackend{replies: replies}

	f := newFixture(t, backend, &scriptedGate{}, func(r *tools.Registry) {
		r.MustRegister(&tools.Tool{
			Name:    "peek",
			Execute: func(ctx context.Context, args map[string]any) (string, error) { return "x", nil },
		})
	})

	require.NoError(t, f.session.RunTurn(context.Background(), "loop"))
	assert.Len(t, backend.calls, 4, "inference calls bounded by MaxToolIterations")

	history := f.session.History()
	assert.Contains(t, history[len(history)-1].Content, "iteration limit")
}

func TestRunTurn_NavigationResolvesNaturalLanguage(t *testing.T) {
	backend := &scriptedBackend{replies: []*gateway.Reply{
		intentReply("i1", "change_directory", map[string]any{"path": "my documents folder"}),
		textReply("moved"),
	}}
	gate := &scriptedGate{answers: []bool{true}}

	var executedPath string
	f := newFixture(t, backend, gate, func(r *tools.Registry) {
		r.MustRegister(&tools.Tool{
			Name:                 "change_directory",
			Navigation:           true,
			RequiresConfirmation: true,
			PathArgs:             []string{"path"},
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				executedPath = args["path"].(string)
				return "ok", nil
			},
		})
	})

	home := f.dirctx.Dir
	require.NoError(t, f.session.RunTurn(context.Background(), "go to my documents"))

	want := filepath.Join(home, "Documents")
	assert.Equal(t, want, executedPath, "tool must receive the resolved absolute path")
	assert.Equal(t, want, f.dirctx.Dir, "successful navigation moves the session directory")
	assert.Contains(t, gate.asked[0], want, "the user confirms the concrete target, not the phrase")
}

func TestRunTurn_AmbiguousPathFoldsCandidates(t *testing.T) {
	backend := &scriptedBackend{replies: []*gateway.Reply{
		intentReply("i1", "change_directory", map[string]any{"path": "do"}),
		textReply("which one?"),
	}}
	gate := &scriptedGate{answers: []bool{true}}

	ran := false
	f := newFixture(t, backend, gate, func(r *tools.Registry) {
		r.MustRegister(&tools.Tool{
			Name:                 "change_directory",
			Navigation:           true,
			RequiresConfirmation: true,
			PathArgs:             []string{"path"},
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				ran = true
				return "", nil
			},
		})
	})

	require.NoError(t, f.session.RunTurn(context.Background(), "go to do"))

	assert.False(t, ran, "ambiguous targets must not execute")
	assert.Empty(t, gate.asked, "nothing to confirm when resolution fails")

	history := f.session.History()
	assert.Contains(t, history[3].Content, "ambiguous")
	assert.Contains(t, history[3].Content, "Documents")
	assert.Contains(t, history[3].Content, "Downloads")
}

func TestRunTurn_PlainPathArgsAbsolutized(t *testing.T) {
	backend := &scriptedBackend{replies: []*gateway.Reply{
		intentReply("i1", "read_file", map[string]any{"path": "notes.txt"}),
		textReply("read it"),
	}}

	var executedPath string
	f := newFixture(t, backend, &scriptedGate{}, func(r *tools.Registry) {
		r.MustRegister(&tools.Tool{
			Name:     "read_file",
			PathArgs: []string{"path"},
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				executedPath = args["path"].(string)
				return "contents", nil
			},
		})
	})

	home := f.dirctx.Dir
	require.NoError(t, f.session.RunTurn(context.Background(), "read notes"))
	assert.Equal(t, filepath.Join(home, "notes.txt"), executedPath)
}

func TestRunTurn_ContextCancelDuringConfirm(t *testing.T) {
	backend := &scriptedBackend{replies: []*gateway.Reply{
		intentReply("i1", "touchy", nil),
	}}
	gate := &cancellingGate{}

	f := newFixture(t, backend, gate, func(r *tools.Registry) {
		r.MustRegister(&tools.Tool{
			Name:                 "touchy",
			RequiresConfirmation: true,
			Execute:              func(ctx context.Context, args map[string]any) (string, error) { return "", nil },
		})
	})

	err := f.session.RunTurn(context.Background(), "go")
	assert.ErrorIs(t, err, context.Canceled)
}

type cancellingGate struct{}

func (g *cancellingGate) Confirm(ctx context.Context, description string) (bool, error) {
	return false, context.Canceled
}

func TestBuildSystemPrompt_IncludesToolCatalog(t *testing.T) {
	registry := tools.NewRegistry()
	registry.MustRegister(&tools.Tool{
		Name:        "read_file",
		Description: "Read a file",
		Execute:     func(ctx context.Context, args map[string]any) (string, error) { return "", nil },
	})

	prompt := buildSystemPrompt("Base instruction.", registry)
	assert.Contains(t, prompt, "Base instruction.")
	assert.Contains(t, prompt, "read_file")
	assert.Contains(t, prompt, `"tool_name"`)
}

func TestSlashCommands(t *testing.T) {
	cases := map[string]struct {
		cmd string
		ok  bool
	}{
		"/exit":  {"exit", true},
		"/quit":  {"quit", true},
		"exit":   {"exit", true},
		"quit":   {"exit", true},
		"/help":  {"help", true},
		"/cwd":   {"cwd", true},
		"/tools": {"tools", true},
		"hello":  {"", false},
	}
	for input, want := range cases {
		cmd, ok := slashCommand(input)
		if assert.Equal(t, want.ok, ok, input) && ok {
			assert.Equal(t, want.cmd, cmd, input)
		}
	}
}

func TestResultMessage(t *testing.T) {
	assert.Equal(t, "x succeeded (no output)", resultMessage(exec.Result{ToolName: "x", Status: exec.StatusSuccess}))
	assert.Contains(t, resultMessage(exec.Result{
		ToolName: "x", Status: exec.StatusFailure, Reason: exec.ReasonError, Detail: "boom",
	}), "x failed: boom")
	assert.Contains(t, resultMessage(exec.Result{
		ToolName: "x", Status: exec.StatusFailure, Reason: exec.ReasonUserRejected, Detail: "the user declined this action",
	}), "was not run")
}
