// Package container is the boundary to the container runtime. The supervisor
// consults it to start and stop the isolated game runner; it does not own the
// runtime.
package container

import (
	"context"
	"strings"
)

// RunParams describes a container launch. Builder methods return the
// receiver so call sites can chain the optional fields.
type RunParams struct {
	Image       string
	Name        string
	Volumes     []string
	Ports       []string
	Env         []string
	Cmd         []string
	Network     string
	NetworkMode string
	Devices     []string
	Hostname    string
	User        string
	WorkingDir  string
	Entrypoint  string
	Labels      []string
	Remove      bool
}

// NewRunParams starts a parameter set for the given image.
func NewRunParams(image string) RunParams {
	return RunParams{Image: image}
}

// WithName sets the container name.
func (p RunParams) WithName(name string) RunParams { p.Name = name; return p }

// WithVolumes sets bind mounts in -v syntax (host:container[:opts]).
func (p RunParams) WithVolumes(volumes ...string) RunParams { p.Volumes = volumes; return p }

// WithPorts sets port publications in -p syntax.
func (p RunParams) WithPorts(ports ...string) RunParams { p.Ports = ports; return p }

// WithEnv sets environment entries in KEY=VALUE form.
func (p RunParams) WithEnv(env ...string) RunParams { p.Env = env; return p }

// WithDevices passes host devices (e.g. the GPU render node) through.
func (p RunParams) WithDevices(devices ...string) RunParams { p.Devices = devices; return p }

// WithCmd overrides the image command.
func (p RunParams) WithCmd(cmd ...string) RunParams { p.Cmd = cmd; return p }

// WithRemove removes the container when it exits.
func (p RunParams) WithRemove(remove bool) RunParams { p.Remove = remove; return p }

// Orchestrator starts and stops runner containers. "Resource busy" failures
// must satisfy IsResourceBusy so the supervisor can surface them as
// retryable.
type Orchestrator interface {
	// StartRunner launches a container and returns its id.
	StartRunner(ctx context.Context, params RunParams) (string, error)
	// StopRunner stops a container by id, best effort.
	StopRunner(ctx context.Context, id string) error
	// DaemonUp probes whether the container runtime answers at all.
	DaemonUp(ctx context.Context) bool
}

type resourceBusyError struct{ msg string }

func (e resourceBusyError) Error() string { return e.msg }

// ErrResourceBusy wraps a runtime failure that the caller may retry, such as
// the GPU render node being held by another session.
func ErrResourceBusy(msg string) error { return resourceBusyError{msg: msg} }

// IsResourceBusy reports whether err is a retryable busy-resource failure.
func IsResourceBusy(err error) bool {
	_, ok := err.(resourceBusyError)
	return ok
}

// looksBusy matches runtime error text that indicates contention rather than
// misconfiguration.
func looksBusy(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "resource busy") ||
		strings.Contains(s, "device or resource busy") ||
		strings.Contains(s, "is already in use") ||
		strings.Contains(s, "port is already allocated")
}
