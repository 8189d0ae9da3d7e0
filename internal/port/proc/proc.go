// Package proc defines the subprocess runner port (interface).
package proc

import (
	"context"
	"time"
)

// StartSpec describes a process to launch. Env entries are KEY=VALUE pairs
// appended to the parent environment; LogPath receives combined
// stdout/stderr.
type StartSpec struct {
	Dir     string
	Command string
	Args    []string
	Env     []string
	LogPath string
}

// Runner is the port interface for managing local agent processes.
type Runner interface {
	// Start launches the process detached from the caller and returns its pid.
	Start(ctx context.Context, spec StartSpec) (int, error)

	// Alive reports whether the process with the given pid is still running.
	Alive(pid int) bool

	// Stop terminates the process: SIGTERM, then SIGKILL once the grace
	// period expires. Stopping an already-dead process is not an error.
	Stop(ctx context.Context, pid int, grace time.Duration) error
}
