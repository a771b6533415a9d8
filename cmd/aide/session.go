package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aide/internal/confirm"
	"aide/internal/exec"
	"aide/internal/gateway"
	"aide/internal/pathres"
	"aide/internal/session"
	"aide/internal/tools"
	"aide/internal/tools/fsops"
	"aide/internal/tools/proc"
	"aide/internal/tools/web"
	"aide/internal/ui"
)

// runCmd executes a single instruction and exits.
var runCmd = &cobra.Command{
	Use:   "run [instruction]",
	Short: "Process one instruction and exit",
	Long: `Runs a single instruction through the assistant and exits. Combine with
-q for pipeable output:

  aide run -q "summarize the files in this directory"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOneShot(cmd, strings.Join(args, " "))
	},
}

// runtime bundles everything a session needs, plus its teardown.
type runtime struct {
	client  *gateway.Client
	session *session.Session
	printer *ui.Printer
	procs   *proc.Manager
	stdin   *bufio.Reader
}

func (r *runtime) teardown() {
	r.procs.StopAll()
}

// buildRuntime wires the full stack: backend client, tool registry, path
// resolver, confirmation gate, execution engine, and the session over them.
func buildRuntime(ctx context.Context) (*runtime, error) {
	client := gateway.NewClient(gateway.Config{
		Host:    cfg.Backend.Host,
		Model:   cfg.Backend.Model,
		Timeout: cfg.GetBackendTimeout(),
	})

	model, err := preflight(ctx, client)
	if err != nil {
		return nil, err
	}
	if model != client.Model() {
		client = gateway.NewClient(gateway.Config{
			Host:    cfg.Backend.Host,
			Model:   model,
			Timeout: cfg.GetBackendTimeout(),
		})
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("cannot determine working directory: %w", err)
	}

	resolverOpts := []pathres.Option{}
	if cfg.Session.WorkspaceRoot != "" {
		resolverOpts = append(resolverOpts, pathres.WithRoot(cfg.Session.WorkspaceRoot))
	}
	resolver, err := pathres.New(resolverOpts...)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize path resolver: %w", err)
	}

	procs := proc.NewManager(cfg.GetProcessOutputWindow(), cfg.Execution.MaxOutputBytes)

	registry := tools.NewRegistry()
	if err := fsops.RegisterAll(registry); err != nil {
		return nil, err
	}
	if err := proc.RegisterAll(registry, procs, cfg.GetCommandTimeout(), cfg.Execution.MaxOutputBytes); err != nil {
		return nil, err
	}
	if err := registry.Register(web.FetchURLTool()); err != nil {
		return nil, err
	}
	logger.Debug("tools registered", zap.Int("count", registry.Count()))

	dirctx := &pathres.Context{Dir: cwd}
	printer := ui.NewPrinter(os.Stdout, cfg.Session.QuietMode)
	stdin := bufio.NewReader(os.Stdin)

	sess := session.New(session.Options{
		Backend:           client,
		Registry:          registry,
		Resolver:          resolver,
		DirCtx:            dirctx,
		Engine:            exec.NewEngine(registry, dirctx, cfg.Execution.MaxOutputBytes),
		Gate:              confirm.NewTerminalGate(stdin, os.Stdout, printer.ToolRequest),
		Printer:           printer,
		SystemPrompt:      cfg.Backend.SystemPrompt,
		MaxToolIterations: cfg.Session.MaxToolIterations,
	})

	return &runtime{
		client:  client,
		session: sess,
		printer: printer,
		procs:   procs,
		stdin:   stdin,
	}, nil
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runInteractive(cmd *cobra.Command) error {
	ctx, cancel := signalContext()
	defer cancel()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.teardown()

	rt.printer.Banner(rt.client.Model(), rt.client.Host())
	return rt.session.Run(ctx, rt.stdin)
}

func runOneShot(cmd *cobra.Command, instruction string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.teardown()

	return rt.session.RunTurn(ctx, instruction)
}
