package config

import (
	"os"
	"path/filepath"
)

// Default values applied to any field left unset by the config file or flags.
const (
	DefaultAddr = ":8080"

	DefaultCompositorBin    = "pipeld-compositor"
	DefaultCompositorSocket = "wayland-pipeld-0"
	DefaultEndpointBin      = "sunshine"

	DefaultRunnerBin   = "docker"
	DefaultRunnerImage = "pipeld-wine:latest"

	DefaultSocketWaitSeconds  = 30
	DefaultRestartBackoffSecs = 3
	DefaultStopGraceSeconds   = 5
	DefaultIdlePollSeconds    = 15
)

// DefaultHealthURLs are the streaming endpoint bases probed for liveness,
// readiness and connected-client counts.
var DefaultHealthURLs = []string{"http://127.0.0.1:47990"}

// RootDir resolves the daemon's state root. PIPELD_ROOT_DIR wins when set,
// otherwise state lives under the user's home directory.
func RootDir() string {
	if dir := os.Getenv("PIPELD_ROOT_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pipeld"
	}
	return filepath.Join(home, ".pipeld")
}

// Default returns a fully populated configuration.
func Default() Config {
	root := RootDir()
	return Config{
		Addr:       DefaultAddr,
		DataDir:    filepath.Join(root, "data"),
		RuntimeDir: filepath.Join(root, "run"),
		Sidecar: Sidecar{
			CompositorBin:      DefaultCompositorBin,
			CompositorSocket:   DefaultCompositorSocket,
			EndpointBin:        DefaultEndpointBin,
			HealthURLs:         append([]string(nil), DefaultHealthURLs...),
			SocketWaitSeconds:  DefaultSocketWaitSeconds,
			RestartBackoffSecs: DefaultRestartBackoffSecs,
			StopGraceSeconds:   DefaultStopGraceSeconds,
			IdlePollSeconds:    DefaultIdlePollSeconds,
		},
		Runner: Runner{
			Bin:   DefaultRunnerBin,
			Image: DefaultRunnerImage,
		},
	}
}

// Merge overlays non-zero fields of b onto a and returns the result.
func Merge(a, b Config) Config {
	if b.Addr != "" {
		a.Addr = b.Addr
	}
	if b.DataDir != "" {
		a.DataDir = b.DataDir
	}
	if b.RuntimeDir != "" {
		a.RuntimeDir = b.RuntimeDir
	}
	if b.Sidecar.CompositorBin != "" {
		a.Sidecar.CompositorBin = b.Sidecar.CompositorBin
	}
	if b.Sidecar.CompositorSocket != "" {
		a.Sidecar.CompositorSocket = b.Sidecar.CompositorSocket
	}
	if b.Sidecar.EndpointBin != "" {
		a.Sidecar.EndpointBin = b.Sidecar.EndpointBin
	}
	if len(b.Sidecar.HealthURLs) > 0 {
		a.Sidecar.HealthURLs = b.Sidecar.HealthURLs
	}
	if b.Sidecar.SocketWaitSeconds > 0 {
		a.Sidecar.SocketWaitSeconds = b.Sidecar.SocketWaitSeconds
	}
	if b.Sidecar.RestartBackoffSecs > 0 {
		a.Sidecar.RestartBackoffSecs = b.Sidecar.RestartBackoffSecs
	}
	if b.Sidecar.StopGraceSeconds > 0 {
		a.Sidecar.StopGraceSeconds = b.Sidecar.StopGraceSeconds
	}
	if b.Sidecar.IdlePollSeconds > 0 {
		a.Sidecar.IdlePollSeconds = b.Sidecar.IdlePollSeconds
	}
	if b.Runner.Bin != "" {
		a.Runner.Bin = b.Runner.Bin
	}
	if b.Runner.Image != "" {
		a.Runner.Image = b.Runner.Image
	}
	return a
}
