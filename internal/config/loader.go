package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and are replaced by Default() values in main.
type Config struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	DataDir    string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	RuntimeDir string `json:"runtime_dir" yaml:"runtime_dir" toml:"runtime_dir"`

	Sidecar Sidecar `json:"sidecar" yaml:"sidecar" toml:"sidecar"`
	Runner  Runner  `json:"runner" yaml:"runner" toml:"runner"`
}

// Sidecar configures the supervised compositor and streaming endpoint.
type Sidecar struct {
	CompositorBin      string   `json:"compositor_bin" yaml:"compositor_bin" toml:"compositor_bin"`
	CompositorSocket   string   `json:"compositor_socket" yaml:"compositor_socket" toml:"compositor_socket"`
	EndpointBin        string   `json:"endpoint_bin" yaml:"endpoint_bin" toml:"endpoint_bin"`
	HealthURLs         []string `json:"health_urls" yaml:"health_urls" toml:"health_urls"`
	SocketWaitSeconds  int      `json:"socket_wait_seconds" yaml:"socket_wait_seconds" toml:"socket_wait_seconds"`
	RestartBackoffSecs int      `json:"restart_backoff_seconds" yaml:"restart_backoff_seconds" toml:"restart_backoff_seconds"`
	StopGraceSeconds   int      `json:"stop_grace_seconds" yaml:"stop_grace_seconds" toml:"stop_grace_seconds"`
	IdlePollSeconds    int      `json:"idle_poll_seconds" yaml:"idle_poll_seconds" toml:"idle_poll_seconds"`
}

// Runner configures the isolated game runner container.
type Runner struct {
	Bin   string `json:"bin" yaml:"bin" toml:"bin"`
	Image string `json:"image" yaml:"image" toml:"image"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
