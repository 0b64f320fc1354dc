package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pipeld/pkg/types"
)

// SettingsStore persists the legacy flat streaming settings next to the
// preset document, with the same whole-document atomic write discipline.
type SettingsStore struct {
	path string

	mu       sync.Mutex
	settings types.StreamSettings
}

// DefaultSettings are applied on first run.
func DefaultSettings() types.StreamSettings {
	return types.StreamSettings{
		GPUType:            string(types.GPUAuto),
		Codec:              "h264",
		Quality:            "high",
		IdleTimeoutMinutes: 10,
		StreamingMode:      "graph",
		Profiles: []types.StreamProfile{
			{ID: "1080p60", Name: "1080p 60Hz", Width: 1920, Height: 1080, RefreshRate: 60, Codec: "h264", Quality: "high", GPUType: string(types.GPUAuto)},
		},
		DefaultProfileID: "1080p60",
	}
}

// OpenSettings loads or seeds the settings document.
func OpenSettings(path string) (*SettingsStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}
	s := &SettingsStore{path: path}
	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.settings = DefaultSettings()
		if err := s.persist(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err := json.Unmarshal(b, &s.settings); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}
	return s, nil
}

// Get returns the current settings.
func (s *SettingsStore) Get() types.StreamSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.settings
	out.Profiles = append([]types.StreamProfile(nil), s.settings.Profiles...)
	return out
}

// Put validates and replaces the settings document.
func (s *SettingsStore) Put(in types.StreamSettings) error {
	switch in.StreamingMode {
	case "profiles", "graph":
	default:
		return fmt.Errorf("streamingMode must be profiles or graph, got %q", in.StreamingMode)
	}
	if in.IdleTimeoutMinutes < 0 {
		return fmt.Errorf("idleTimeoutMinutes cannot be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.settings
	s.settings = in
	if err := s.persist(); err != nil {
		s.settings = prev
		return err
	}
	return nil
}

// Profile resolves a profile id, falling back to the default profile.
func (s *SettingsStore) Profile(id string) (types.StreamProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		id = s.settings.DefaultProfileID
	}
	for _, p := range s.settings.Profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return types.StreamProfile{}, fmt.Errorf("profile not found: %s", id)
}

func (s *SettingsStore) persist() error {
	b, err := json.MarshalIndent(s.settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
