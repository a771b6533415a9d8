package exec

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/internal/pathres"
	"aide/internal/tools"
)

func newTestEngine(t *testing.T) (*Engine, *tools.Registry, *pathres.Context) {
	t.Helper()
	registry := tools.NewRegistry()
	dirctx := &pathres.Context{Dir: "/home/user"}
	return NewEngine(registry, dirctx, 200), registry, dirctx
}

func registerTool(t *testing.T, registry *tools.Registry, tool *tools.Tool) *tools.Tool {
	t.Helper()
	require.NoError(t, registry.Register(tool))
	return tool
}

func TestActionStateMachine(t *testing.T) {
	tool := &tools.Tool{Name: "noop", Execute: func(ctx context.Context, args map[string]any) (string, error) { return "", nil }}

	a := NewAction("a1", tool, nil, "noop()")
	assert.Equal(t, StateProposed, a.State())

	require.NoError(t, a.Confirm())
	assert.Equal(t, StateConfirmed, a.State())

	// Confirmed actions cannot be rejected or re-confirmed.
	assert.Error(t, a.Confirm())
	assert.Error(t, a.Reject())

	b := NewAction("b1", tool, nil, "noop()")
	require.NoError(t, b.Reject())
	assert.Equal(t, StateRejected, b.State())
	assert.Error(t, b.Confirm())
}

func TestExecuteSuccess(t *testing.T) {
	engine, registry, _ := newTestEngine(t)
	tool := registerTool(t, registry, &tools.Tool{
		Name: "echo",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		},
		Schema: tools.Schema{
			Required:   []string{"text"},
			Properties: map[string]tools.Property{"text": {Type: "string"}},
		},
	})

	action := NewAction("a1", tool, map[string]any{"text": "hello"}, "echo(text: hello)")
	require.NoError(t, action.Confirm())

	result := engine.Execute(context.Background(), action)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "hello", result.Output)
	assert.Equal(t, StateExecuted, action.State())
	assert.False(t, result.Failed())
}

func TestExecuteRefusesUnconfirmed(t *testing.T) {
	engine, registry, _ := newTestEngine(t)
	ran := false
	tool := registerTool(t, registry, &tools.Tool{
		Name: "danger",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			ran = true
			return "", nil
		},
	})

	action := NewAction("a1", tool, nil, "danger()")
	result := engine.Execute(context.Background(), action)

	assert.Equal(t, StatusFailure, result.Status)
	assert.Equal(t, ReasonFault, result.Reason)
	assert.False(t, ran, "unconfirmed action must never run")
}

func TestExecuteToolError(t *testing.T) {
	engine, registry, _ := newTestEngine(t)
	tool := registerTool(t, registry, &tools.Tool{
		Name: "fail",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("disk on fire")
		},
	})

	action := NewAction("a1", tool, nil, "fail()")
	require.NoError(t, action.Confirm())

	result := engine.Execute(context.Background(), action)
	assert.Equal(t, StatusFailure, result.Status)
	assert.Equal(t, ReasonError, result.Reason)
	assert.Contains(t, result.Detail, "disk on fire")
	assert.Equal(t, StateFailed, action.State())
}

func TestExecutePanicRecovered(t *testing.T) {
	engine, registry, _ := newTestEngine(t)
	tool := registerTool(t, registry, &tools.Tool{
		Name: "boom",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			panic("index out of range")
		},
	})

	action := NewAction("a1", tool, nil, "boom()")
	require.NoError(t, action.Confirm())

	result := engine.Execute(context.Background(), action)
	assert.Equal(t, StatusFailure, result.Status)
	assert.Equal(t, ReasonFault, result.Reason)
	assert.Contains(t, result.Detail, "index out of range")
	assert.Equal(t, StateFailed, action.State())
}

func TestExecuteMissingRequiredArg(t *testing.T) {
	engine, registry, _ := newTestEngine(t)
	tool := registerTool(t, registry, &tools.Tool{
		Name:    "needy",
		Execute: func(ctx context.Context, args map[string]any) (string, error) { return "", nil },
		Schema: tools.Schema{
			Required:   []string{"path"},
			Properties: map[string]tools.Property{"path": {Type: "string"}},
		},
	})

	action := NewAction("a1", tool, map[string]any{}, "needy()")
	require.NoError(t, action.Confirm())

	result := engine.Execute(context.Background(), action)
	assert.Equal(t, StatusFailure, result.Status)
	assert.Equal(t, ReasonBadArgs, result.Reason)
	assert.Contains(t, result.Detail, "path")
}

func TestRejectFoldsBackAsUserRejected(t *testing.T) {
	engine, registry, dirctx := newTestEngine(t)
	ran := false
	tool := registerTool(t, registry, &tools.Tool{
		Name:       "change_directory",
		Navigation: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			ran = true
			return "", nil
		},
	})

	action := NewAction("a1", tool, map[string]any{"path": "/private"}, "change_directory(path: /private)")
	result := engine.Reject(action)

	assert.Equal(t, StatusFailure, result.Status)
	assert.Equal(t, ReasonUserRejected, result.Reason)
	assert.Equal(t, StateRejected, action.State())
	assert.False(t, ran)
	assert.Equal(t, "/home/user", dirctx.Dir, "rejection must not move the working directory")
}

func TestNavigationMovesDirectoryOnSuccessOnly(t *testing.T) {
	engine, registry, dirctx := newTestEngine(t)
	tool := registerTool(t, registry, &tools.Tool{
		Name:       "change_directory",
		Navigation: true,
		PathArgs:   []string{"path"},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			if args["path"] == "/nope" {
				return "", errors.New("no such directory")
			}
			return "changed", nil
		},
	})

	bad := NewAction("a1", tool, map[string]any{"path": "/nope"}, "")
	require.NoError(t, bad.Confirm())
	result := engine.Execute(context.Background(), bad)
	assert.Equal(t, StatusFailure, result.Status)
	assert.Equal(t, "/home/user", dirctx.Dir)

	good := NewAction("a2", tool, map[string]any{"path": "/home/user/Documents"}, "")
	require.NoError(t, good.Confirm())
	result = engine.Execute(context.Background(), good)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "/home/user/Documents", dirctx.Dir)
	assert.Equal(t, "/home/user/Documents", engine.Dir())
}

func TestExecuteTruncatesLongOutput(t *testing.T) {
	engine, registry, _ := newTestEngine(t)
	tool := registerTool(t, registry, &tools.Tool{
		Name: "spam",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return strings.Repeat("x", 1000), nil
		},
	})

	action := NewAction("a1", tool, nil, "spam()")
	require.NoError(t, action.Confirm())

	result := engine.Execute(context.Background(), action)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Contains(t, result.Output, "[truncated, 1000 bytes total]")
	assert.Less(t, len(result.Output), 300)
}

func TestExecuteTruncatesAtRuneBoundary(t *testing.T) {
	engine, registry, _ := newTestEngine(t)
	tool := registerTool(t, registry, &tools.Tool{
		Name: "unicode_spam",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return strings.Repeat("日本語", 100), nil
		},
	})

	action := NewAction("a1", tool, nil, "unicode_spam()")
	require.NoError(t, action.Confirm())

	result := engine.Execute(context.Background(), action)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Contains(t, result.Output, "truncated")
	assert.True(t, utf8.ValidString(result.Output), "truncated output must stay valid UTF-8")
}

func TestDescribeInvocation(t *testing.T) {
	tool := &tools.Tool{Name: "write_file", PathArgs: []string{"path"}}
	desc := DescribeInvocation(tool, map[string]any{
		"path":    "/tmp/notes.txt",
		"content": strings.Repeat("a", 100),
	})

	assert.True(t, strings.HasPrefix(desc, "write_file("))
	assert.Contains(t, desc, `path: "/tmp/notes.txt"`)
	assert.Contains(t, desc, "...")
	// Keys render in stable order.
	assert.Less(t, strings.Index(desc, "content"), strings.Index(desc, "path"))
}

func TestDescribeInvocation_PathsShownInFull(t *testing.T) {
	tool := &tools.Tool{Name: "write_file", PathArgs: []string{"path"}}
	longPath := "/home/user/" + strings.Repeat("deeply/nested/", 10) + "notes.txt"
	desc := DescribeInvocation(tool, map[string]any{
		"path":    longPath,
		"content": strings.Repeat("b", 100),
	})

	// The user approves the exact target, never an elided one.
	assert.Contains(t, desc, longPath)
	assert.NotContains(t, desc, strings.Repeat("b", 100))
}

func TestDescribeInvocation_ClipsAtRuneBoundary(t *testing.T) {
	tool := &tools.Tool{Name: "write_file"}
	desc := DescribeInvocation(tool, map[string]any{
		"content": strings.Repeat("é", 80),
	})
	assert.Contains(t, desc, "...")
	assert.True(t, utf8.ValidString(desc), "clipped description must stay valid UTF-8")
}
