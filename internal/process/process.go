// Package process probes and controls the external container group managed
// by docker-compose.
package process

import (
	"context"
	"strings"
)

// NoOutput is reported when a command wrote nothing to stdout or stderr.
const NoOutput = "No output"

// Status is a point-in-time snapshot of the controlled process.
type Status struct {
	Running bool
}

// String returns "running" or "stopped".
func (s Status) String() string {
	if s.Running {
		return "running"
	}
	return "stopped"
}

// CommandResult captures the outcome of a single control command.
type CommandResult struct {
	Success bool
	Output  string
	Err     error
}

// Prober reports whether the controlled process is running. Implementations
// never fail outward: any query error maps to a stopped status.
type Prober interface {
	Probe(ctx context.Context) Status
}

// Runner executes a control command and waits for it to finish.
type Runner interface {
	Run(ctx context.Context, command string) CommandResult
}

// pickOutput keeps stdout when it has content, else stderr, else NoOutput.
func pickOutput(stdout, stderr string) string {
	if out := strings.TrimSpace(stdout); out != "" {
		return out
	}
	if out := strings.TrimSpace(stderr); out != "" {
		return out
	}
	return NoOutput
}
