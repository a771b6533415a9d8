// Package proc provides shell execution tools: foreground commands and
// managed background processes that survive across turns.
package proc

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"aide/internal/logging"
)

// stopGrace is how long Stop waits after SIGTERM before escalating to
// SIGKILL, and again after SIGKILL before giving up.
const stopGrace = 5 * time.Second

// Process is a managed background process.
type Process struct {
	ID        int
	Command   string
	Dir       string
	PID       int
	StartedAt time.Time

	cmd  *exec.Cmd
	buf  *outputBuffer
	done chan struct{}

	mu      sync.Mutex
	exited  bool
	waitErr error
}

// Running reports whether the process is still alive.
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.exited
}

// Output returns a snapshot of the captured combined output.
func (p *Process) Output() string {
	return p.buf.String()
}

// signal delivers sig to the whole process group. The shell runs as a group
// leader, so children it spawned go down with it instead of surviving as
// orphans holding the output pipe open.
func (p *Process) signal(sig syscall.Signal) {
	if err := syscall.Kill(-p.PID, sig); err != nil {
		logging.ToolsDebug("signal %v to pgid %d: %v", sig, p.PID, err)
	}
}

func (p *Process) markExited(err error) {
	p.mu.Lock()
	p.exited = true
	p.waitErr = err
	p.mu.Unlock()
	close(p.done)
}

// Manager owns all background processes started during a session. It kills
// everything it started on teardown so nothing outlives the assistant.
type Manager struct {
	mu           sync.Mutex
	nextID       int
	procs        map[int]*Process
	outputWindow time.Duration
	maxOutput    int
}

// NewManager creates a process manager. outputWindow is how long Start waits
// to gather initial output before returning.
func NewManager(outputWindow time.Duration, maxOutput int) *Manager {
	if outputWindow <= 0 {
		outputWindow = 2 * time.Second
	}
	if maxOutput <= 0 {
		maxOutput = 50000
	}
	return &Manager{
		nextID:       1,
		procs:        make(map[int]*Process),
		outputWindow: outputWindow,
		maxOutput:    maxOutput,
	}
}

// Start launches a background process and returns it together with whatever
// output it produced during the initial output window. A process that exits
// within the window is reported immediately rather than tracked.
func (m *Manager) Start(ctx context.Context, command, dir string) (*Process, string, error) {
	if command == "" {
		return nil, "", fmt.Errorf("command is required")
	}

	cmd := exec.Command("sh", "-c", command)
	if dir != "" {
		cmd.Dir = dir
	}

	// Own process group, so Stop can signal the shell and everything it
	// spawned in one shot.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// Wait must not be held hostage by grandchildren that inherited the
	// output pipe and outlived the shell.
	cmd.WaitDelay = 3 * time.Second

	buf := newOutputBuffer(m.maxOutput)
	cmd.Stdout = buf
	cmd.Stderr = buf

	if err := cmd.Start(); err != nil {
		return nil, "", fmt.Errorf("failed to start process: %w", err)
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	p := &Process{
		ID:        id,
		Command:   command,
		Dir:       dir,
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
		cmd:       cmd,
		buf:       buf,
		done:      make(chan struct{}),
	}
	m.procs[id] = p
	m.mu.Unlock()

	go func() {
		p.markExited(cmd.Wait())
	}()

	logging.Tools("start_process: id=%d pid=%d cmd=%q", id, p.PID, command)

	// Give the process a moment to produce output or fail fast.
	select {
	case <-p.done:
	case <-time.After(m.outputWindow):
	case <-ctx.Done():
	}

	return p, p.Output(), nil
}

// Get returns a process by ID.
func (m *Manager) Get(id int) (*Process, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.procs[id]
	if !ok {
		return nil, fmt.Errorf("no such process: %d", id)
	}
	return p, nil
}

// List returns all tracked processes sorted by ID, including ones that have
// already exited but were not yet stopped.
func (m *Manager) List() []*Process {
	m.mu.Lock()
	defer m.mu.Unlock()

	procs := make([]*Process, 0, len(m.procs))
	for _, p := range m.procs {
		procs = append(procs, p)
	}
	sort.Slice(procs, func(i, j int) bool { return procs[i].ID < procs[j].ID })
	return procs
}

// Stop terminates a process group, escalating SIGTERM to SIGKILL after a
// grace period, waits for exit, and removes the process from tracking.
// Returns the final captured output.
func (m *Manager) Stop(id int) (string, error) {
	p, err := m.Get(id)
	if err != nil {
		return "", err
	}

	if p.Running() {
		p.signal(syscall.SIGTERM)
		select {
		case <-p.done:
		case <-time.After(stopGrace):
			p.signal(syscall.SIGKILL)
		}
	}

	select {
	case <-p.done:
	case <-time.After(stopGrace):
		return "", fmt.Errorf("process %d did not exit after kill", id)
	}

	m.mu.Lock()
	delete(m.procs, id)
	m.mu.Unlock()

	logging.Tools("stop_process: id=%d pid=%d stopped", id, p.PID)
	return p.Output(), nil
}

// StopAll kills every tracked process. Called on session teardown.
func (m *Manager) StopAll() {
	for _, p := range m.List() {
		if _, err := m.Stop(p.ID); err != nil {
			logging.ToolsDebug("StopAll: %v", err)
		}
	}
}

// Count returns the number of tracked processes.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.procs)
}

// outputBuffer is a size-capped, concurrency-safe sink for process output.
// When full it keeps the tail, which is what you want for long-running logs.
type outputBuffer struct {
	mu  sync.Mutex
	max int
	b   []byte
}

func newOutputBuffer(max int) *outputBuffer {
	return &outputBuffer{max: max}
}

func (o *outputBuffer) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.b = append(o.b, p...)
	if len(o.b) > o.max {
		o.b = o.b[len(o.b)-o.max:]
	}
	return len(p), nil
}

func (o *outputBuffer) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return string(o.b)
}
