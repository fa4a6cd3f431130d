package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ShellRunner runs commands through "sh -c" in a fixed working directory.
type ShellRunner struct {
	shell   string
	workDir string
	logger  *slog.Logger
}

// NewShellRunner creates a runner executing commands in workDir. An empty
// workDir means the current directory of the bot process.
func NewShellRunner(workDir string, logger *slog.Logger) *ShellRunner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ShellRunner{
		shell:   "sh",
		workDir: workDir,
		logger:  logger.With("component", "command_runner"),
	}
}

// Run executes command and blocks until it exits. Cancellation of ctx does
// not interrupt a command that has already been started.
func (r *ShellRunner) Run(ctx context.Context, command string) CommandResult {
	command = strings.TrimSpace(command)
	if command == "" {
		return CommandResult{Success: false, Output: NoOutput, Err: errors.New("command is empty")}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(context.WithoutCancel(ctx), r.shell, "-c", command)
	cmd.Dir = r.workDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.InfoContext(ctx, "Running command", "command", command, "workdir", r.workDir)
	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	output := pickOutput(stdout.String(), stderr.String())
	if err != nil {
		runErr := fmt.Errorf("command %q failed: %w", command, err)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			runErr = fmt.Errorf("%w\n%s", runErr, msg)
		}
		r.logger.ErrorContext(ctx, "Command failed", "command", command, "duration", duration, "error", err)
		return CommandResult{Success: false, Output: output, Err: runErr}
	}

	r.logger.InfoContext(ctx, "Command finished", "command", command, "duration", duration)
	return CommandResult{Success: true, Output: output}
}
