package process

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// ExecProber runs a shell query and treats any non-empty stdout as running,
// e.g. "docker ps -q -f name=hll-geofences-basic".
type ExecProber struct {
	command string
	logger  *slog.Logger
}

// NewExecProber creates a prober for the given shell command.
func NewExecProber(command string, logger *slog.Logger) *ExecProber {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ExecProber{
		command: command,
		logger:  logger.With("component", "status_probe", "backend", "exec"),
	}
}

func (p *ExecProber) Probe(ctx context.Context) Status {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", p.command)
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		p.logger.WarnContext(ctx, "Error checking process status", "command", p.command, "error", err)
		return Status{Running: false}
	}

	return Status{Running: strings.TrimSpace(stdout.String()) != ""}
}

// containerLister is the part of the Docker client used by DockerProber.
type containerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	Close() error
}

// DockerProber asks the Docker Engine API whether a container whose name
// matches is running.
type DockerProber struct {
	client    containerLister
	container string
	logger    *slog.Logger
}

// NewDockerProber connects to the Docker daemon described by the standard
// DOCKER_* environment variables.
func NewDockerProber(containerName string, logger *slog.Logger) (*DockerProber, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return newDockerProber(cli, containerName, logger), nil
}

func newDockerProber(cli containerLister, containerName string, logger *slog.Logger) *DockerProber {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DockerProber{
		client:    cli,
		container: containerName,
		logger:    logger.With("component", "status_probe", "backend", "docker"),
	}
}

func (p *DockerProber) Probe(ctx context.Context) Status {
	containers, err := p.client.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", p.container)),
	})
	if err != nil {
		p.logger.WarnContext(ctx, "Error checking container status", "container", p.container, "error", err)
		return Status{Running: false}
	}
	return Status{Running: len(containers) > 0}
}

// Close releases the Docker client.
func (p *DockerProber) Close() error {
	return p.client.Close()
}
