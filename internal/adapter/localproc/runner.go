// Package localproc implements the proc runner port with local OS
// processes. Agent programs run detached in their own process group so
// stopping the control server does not take them down.
package localproc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/Strob0t/AgentForge/internal/port/proc"
)

// Runner launches and manages local agent processes.
type Runner struct{}

// New creates a Runner.
func New() *Runner {
	return &Runner{}
}

// Start launches the process described by spec and returns its pid.
// Combined stdout/stderr goes to spec.LogPath; the file stays open in the
// child after the parent releases the process handle.
func (r *Runner) Start(ctx context.Context, spec proc.StartSpec) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	logFile, err := os.OpenFile(spec.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	// The agent outlives the deploying request, so it is not tied to ctx.
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", spec.Command, err)
	}

	pid := cmd.Process.Pid

	// Reap the child in the background so it never turns into a zombie.
	go func() { _ = cmd.Wait() }()

	return pid, nil
}

// Alive reports whether the process is still running. Signal 0 probes
// existence without affecting the process.
func (r *Runner) Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// Stop terminates the process: SIGTERM first, SIGKILL once the grace
// period runs out. A process that is already gone is not an error.
func (r *Runner) Stop(ctx context.Context, pid int, grace time.Duration) error {
	if !r.Alive(pid) {
		return nil
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		if err == syscall.ESRCH {
			return nil
		}
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(grace)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !r.Alive(pid) {
				return nil
			}
		}
	}

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	return nil
}
