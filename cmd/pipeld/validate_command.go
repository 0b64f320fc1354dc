package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pipeld/internal/common/fsutil"
	"pipeld/internal/graph"
	"pipeld/internal/preset"
	"pipeld/pkg/types"
)

func newValidateCommand(configFlag *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [preset-id]",
		Short: "Validate a stored preset graph and print the report",
		Long:  "Validates the default preset, or the preset named by the argument, and prints the validation report as JSON. Exits nonzero when the graph has errors.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			dataDir, err := fsutil.ExpandHome(cfg.DataDir)
			if err != nil {
				return err
			}

			store, err := preset.Open(filepath.Join(dataDir, "presets.json"), zerolog.Nop())
			if err != nil {
				return err
			}
			defer store.Close()

			var p types.Preset
			if len(args) == 1 {
				p, err = store.Get(args[0])
			} else {
				p, err = store.DefaultPreset()
			}
			if err != nil {
				return err
			}

			report := graph.Validate(p.Graph)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if report.Status == types.StatusError {
				return fmt.Errorf("preset %s failed validation", p.ID)
			}
			return nil
		},
	}
	return cmd
}
