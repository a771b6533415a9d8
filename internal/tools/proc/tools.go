package proc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"aide/internal/logging"
	"aide/internal/tools"
)

// RunCommandTool returns a tool for executing a foreground shell command.
func RunCommandTool(defaultTimeout time.Duration, maxOutput int) *tools.Tool {
	if defaultTimeout <= 0 {
		defaultTimeout = 60 * time.Second
	}
	if maxOutput <= 0 {
		maxOutput = 50000
	}
	return &tools.Tool{
		Name:                 "run_command",
		Description:          "Execute a shell command and return its output",
		Category:             tools.CategoryProcess,
		PathArgs:             []string{"working_dir"},
		RequiresConfirmation: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return executeRunCommand(ctx, args, defaultTimeout, maxOutput)
		},
		Schema: tools.Schema{
			Required: []string{"command"},
			Properties: map[string]tools.Property{
				"command": {
					Type:        "string",
					Description: "The command to execute",
				},
				"working_dir": {
					Type:        "string",
					Description: "Working directory for the command (default: current directory)",
				},
				"timeout_seconds": {
					Type:        "integer",
					Description: "Timeout in seconds (default: 60)",
					Default:     60,
				},
			},
		},
	}
}

func executeRunCommand(ctx context.Context, args map[string]any, defaultTimeout time.Duration, maxOutput int) (string, error) {
	command, _ := args["command"].(string)
	if command == "" {
		return "", fmt.Errorf("command is required")
	}

	workingDir, _ := args["working_dir"].(string)

	timeout := defaultTimeout
	if secs, ok := intArg(args, "timeout_seconds"); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	logging.ToolsDebug("run_command: cmd=%q, dir=%s, timeout=%s", command, workingDir, timeout)

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	if workingDir != "" {
		cmd.Dir = workingDir
	}

	// On timeout the whole process group dies, not just the shell; a
	// backgrounded child would otherwise hold the output pipe and keep Run
	// blocked long past the deadline.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 3 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String()
	if stderr.Len() > 0 {
		if output != "" {
			output += "\n--- stderr ---\n"
		}
		output += stderr.String()
	}
	if len(output) > maxOutput {
		output = output[:maxOutput] + "\n...[truncated]"
	}

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return output, fmt.Errorf("command timed out after %s", timeout)
		}
		logging.Tools("run_command failed: %q (%v)", command, err)
		return output, fmt.Errorf("command failed: %w\nOutput:\n%s", err, output)
	}

	logging.Tools("run_command completed: %q (%d bytes output)", command, len(output))
	return output, nil
}

// StartProcessTool returns a tool for launching a managed background process.
func StartProcessTool(manager *Manager) *tools.Tool {
	return &tools.Tool{
		Name:                 "start_process",
		Description:          "Start a long-running command in the background and keep it managed; returns a process id and initial output",
		Category:             tools.CategoryProcess,
		PathArgs:             []string{"working_dir"},
		RequiresConfirmation: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			command, _ := args["command"].(string)
			workingDir, _ := args["working_dir"].(string)

			p, output, err := manager.Start(ctx, command, workingDir)
			if err != nil {
				return "", err
			}

			status := "running"
			if !p.Running() {
				status = "already exited"
			}
			result := fmt.Sprintf("Started process %d (pid %d, %s): %s", p.ID, p.PID, status, p.Command)
			if output != "" {
				result += "\n--- initial output ---\n" + output
			}
			return result, nil
		},
		Schema: tools.Schema{
			Required: []string{"command"},
			Properties: map[string]tools.Property{
				"command": {
					Type:        "string",
					Description: "The command to run in the background",
				},
				"working_dir": {
					Type:        "string",
					Description: "Working directory for the process (default: current directory)",
				},
			},
		},
	}
}

// StopProcessTool returns a tool for stopping a managed background process.
func StopProcessTool(manager *Manager) *tools.Tool {
	return &tools.Tool{
		Name:                 "stop_process",
		Description:          "Stop a background process previously started with start_process",
		Category:             tools.CategoryProcess,
		RequiresConfirmation: true,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			id, ok := intArg(args, "id")
			if !ok {
				return "", fmt.Errorf("id is required")
			}

			output, err := manager.Stop(id)
			if err != nil {
				return "", err
			}

			result := fmt.Sprintf("Stopped process %d", id)
			if output != "" {
				result += "\n--- final output ---\n" + output
			}
			return result, nil
		},
		Schema: tools.Schema{
			Required: []string{"id"},
			Properties: map[string]tools.Property{
				"id": {
					Type:        "integer",
					Description: "The process id returned by start_process",
				},
			},
		},
	}
}

// ListProcessesTool returns a tool for listing managed background processes.
func ListProcessesTool(manager *Manager) *tools.Tool {
	return &tools.Tool{
		Name:        "list_processes",
		Description: "List background processes started during this session",
		Category:    tools.CategoryProcess,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			procs := manager.List()
			if len(procs) == 0 {
				return "No background processes", nil
			}

			var b strings.Builder
			for _, p := range procs {
				status := "running"
				if !p.Running() {
					status = "exited"
				}
				fmt.Fprintf(&b, "[%d] pid=%d %s uptime=%s: %s\n",
					p.ID, p.PID, status, time.Since(p.StartedAt).Round(time.Second), p.Command)
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
		Schema: tools.Schema{Properties: map[string]tools.Property{}},
	}
}

func intArg(args map[string]any, name string) (int, bool) {
	switch v := args[name].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}
