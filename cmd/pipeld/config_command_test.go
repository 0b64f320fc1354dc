package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	d := t.TempDir()
	target := filepath.Join(d, "pipeld.toml")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"config", "init", "--path", target})
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	b, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(b), "pipeld-wine:latest") {
		t.Fatalf("sample config missing runner image:\n%s", b)
	}

	// second run without --overwrite refuses
	cmd = newRootCommand()
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected refusal to overwrite existing config")
	}
}

func TestConfigShowUsesFileOverlay(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "cfg.toml")
	if err := os.WriteFile(p, []byte("addr = \":7777\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", p, "config", "show"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out.String(), ":7777") {
		t.Fatalf("expected overlaid addr in output:\n%s", out.String())
	}
}
