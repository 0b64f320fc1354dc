package compile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pipeld/pkg/types"
)

// Well-known file names under the runtime directory. The compositor and the
// streaming endpoint read these once at startup; this subsystem never reads
// them back.
const (
	CompositorFile = "compositor.json"
	EncoderFile    = "encoder.json"
	SinkFile       = "sink.json"
)

// WriteConfig renders the compiled configuration into the runtime directory.
// Each file is written atomically so a sidecar starting mid-write never sees
// a partial document.
func WriteConfig(dir string, cfg types.SidecarConfig) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}
	sections := map[string]any{
		CompositorFile: cfg.Compositor,
		EncoderFile: map[string]any{
			"video": cfg.Video,
			"audio": cfg.Audio,
		},
		SinkFile: cfg.Sink,
	}
	for name, section := range sections {
		b, err := json.MarshalIndent(section, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		tmp := filepath.Join(dir, name+".tmp")
		if err := os.WriteFile(tmp, b, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("replace %s: %w", name, err)
		}
	}
	return nil
}
