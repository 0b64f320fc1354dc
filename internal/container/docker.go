package container

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CLIOrchestrator drives the container runtime through its CLI. It works
// against docker or podman; the binary name is configurable.
type CLIOrchestrator struct {
	bin string
	log zerolog.Logger
}

// NewCLIOrchestrator builds an orchestrator using the given runtime binary
// (defaults to docker).
func NewCLIOrchestrator(bin string, log zerolog.Logger) *CLIOrchestrator {
	if bin == "" {
		bin = "docker"
	}
	return &CLIOrchestrator{bin: bin, log: log}
}

// StartRunner runs the container detached and returns the id printed by the
// runtime.
func (o *CLIOrchestrator) StartRunner(ctx context.Context, params RunParams) (string, error) {
	if params.Image == "" {
		return "", fmt.Errorf("container image cannot be empty")
	}
	args := buildRunArgs(params)
	cmd := exec.CommandContext(ctx, o.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	o.log.Debug().Str("image", params.Image).Strs("args", args).Msg("starting runner container")
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if looksBusy(msg) {
			return "", ErrResourceBusy(fmt.Sprintf("container runtime busy: %s", msg))
		}
		return "", fmt.Errorf("start container: %w: %s", err, msg)
	}
	id := strings.TrimSpace(stdout.String())
	if id == "" {
		return "", fmt.Errorf("container runtime returned no id")
	}
	o.log.Info().Str("container", shortID(id)).Str("image", params.Image).Msg("runner container started")
	return id, nil
}

// StopRunner stops a container by id with a bounded grace period.
func (o *CLIOrchestrator) StopRunner(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, o.bin, "stop", "--time", "10", id)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("stop container %s: %w: %s", shortID(id), err, strings.TrimSpace(stderr.String()))
	}
	o.log.Info().Str("container", shortID(id)).Msg("runner container stopped")
	return nil
}

// DaemonUp probes the runtime with a short deadline.
func (o *CLIOrchestrator) DaemonUp(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, o.bin, "version", "--format", "{{.Server.Version}}").Run() == nil
}

func buildRunArgs(p RunParams) []string {
	args := []string{"run", "--detach"}
	if p.Remove {
		args = append(args, "--rm")
	}
	if p.Name != "" {
		args = append(args, "--name", p.Name)
	}
	if p.Network != "" {
		args = append(args, "--network", p.Network)
	}
	if p.NetworkMode != "" {
		args = append(args, "--network", p.NetworkMode)
	}
	if p.Hostname != "" {
		args = append(args, "--hostname", p.Hostname)
	}
	if p.User != "" {
		args = append(args, "--user", p.User)
	}
	if p.WorkingDir != "" {
		args = append(args, "--workdir", p.WorkingDir)
	}
	if p.Entrypoint != "" {
		args = append(args, "--entrypoint", p.Entrypoint)
	}
	for _, v := range p.Volumes {
		args = append(args, "-v", v)
	}
	for _, port := range p.Ports {
		args = append(args, "-p", port)
	}
	for _, e := range p.Env {
		args = append(args, "-e", e)
	}
	for _, d := range p.Devices {
		args = append(args, "--device", d)
	}
	for _, l := range p.Labels {
		args = append(args, "--label", l)
	}
	args = append(args, p.Image)
	args = append(args, p.Cmd...)
	return args
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
