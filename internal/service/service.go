// Package service wires the preset store, the settings store, the compiler
// and the session supervisor into the narrow interfaces the HTTP layer
// consumes. All launch-path decisions (graph vs profile mode, validation
// gating, runner parameters) live here so the supervisor only ever sees a
// compiled SidecarConfig.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pipeld/internal/compile"
	"pipeld/internal/config"
	"pipeld/internal/container"
	"pipeld/internal/graph"
	"pipeld/internal/preset"
	"pipeld/internal/session"
	"pipeld/pkg/types"
)

// badRequestError surfaces caller mistakes the HTTP layer should report as 400.
type badRequestError struct{ msg string }

func (e badRequestError) Error() string   { return e.msg }
func (e badRequestError) StatusCode() int { return 400 }

// Service implements httpapi.GraphService and httpapi.SessionService.
type Service struct {
	cfg      config.Config
	presets  *preset.Store
	settings *preset.SettingsStore
	sup      *session.Supervisor
	log      zerolog.Logger
}

// New assembles the daemon service from its collaborators.
func New(cfg config.Config, presets *preset.Store, settings *preset.SettingsStore, sup *session.Supervisor, log zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		presets:  presets,
		settings: settings,
		sup:      sup,
		log:      log,
	}
}

// Document returns the current preset store document.
func (s *Service) Document() types.StoreDocument {
	return s.presets.Document()
}

// ReplaceDocument swaps the whole store document, as used by the UI for
// default selection and factory reset.
func (s *Service) ReplaceDocument(doc types.StoreDocument) (types.StoreDocument, error) {
	if err := s.presets.Replace(doc); err != nil {
		return types.StoreDocument{}, err
	}
	return s.presets.Document(), nil
}

func (s *Service) CreatePreset(req types.CreatePresetRequest) (types.Preset, error) {
	return s.presets.Create(req.ID, req.Name, req.Description, req.Graph)
}

func (s *Service) UpdatePreset(id string, req types.CreatePresetRequest) (types.Preset, error) {
	return s.presets.Update(id, req.Name, req.Description, req.Graph)
}

func (s *Service) DeletePreset(id string) (types.StoreDocument, error) {
	if err := s.presets.Delete(id); err != nil {
		return types.StoreDocument{}, err
	}
	return s.presets.Document(), nil
}

func (s *Service) ClonePreset(id string) (types.Preset, error) {
	return s.presets.Clone(id)
}

// Revalidate re-runs the validator against the default preset and refreshes
// the cached report.
func (s *Service) Revalidate() (types.ValidationReport, error) {
	return s.presets.Revalidate()
}

// Settings returns the legacy flat streaming settings.
func (s *Service) Settings() types.StreamSettings {
	return s.settings.Get()
}

// UpdateSettings validates and persists the streaming settings.
func (s *Service) UpdateSettings(in types.StreamSettings) (types.StreamSettings, error) {
	if err := s.settings.Put(in); err != nil {
		return types.StreamSettings{}, err
	}
	return s.settings.Get(), nil
}

// SessionStatus reports the supervisor's view of the active session.
func (s *Service) SessionStatus(ctx context.Context) types.SessionStatus {
	return s.sup.Status(ctx)
}

// LaunchGame compiles runtime configuration for the active streaming mode and
// starts a game session. In graph mode the default preset must validate with
// no errors; a failing graph blocks the launch rather than producing a broken
// pipeline.
func (s *Service) LaunchGame(ctx context.Context, req types.LaunchGameRequest) (types.SessionStatus, error) {
	if strings.TrimSpace(req.ExePath) == "" {
		return types.SessionStatus{}, badRequestError{msg: "exePath is required"}
	}

	st := s.settings.Get()
	cfg, err := s.compileActive(st, req.ProfileID)
	if err != nil {
		return types.SessionStatus{}, err
	}

	launch := session.LaunchRequest{
		Mode:        types.ModeGame,
		Config:      cfg,
		Runner:      s.runnerParams(req),
		IdleTimeout: time.Duration(st.IdleTimeoutMinutes) * time.Minute,
	}
	if err := s.sup.Launch(ctx, launch); err != nil {
		return types.SessionStatus{}, err
	}
	return s.sup.Status(ctx), nil
}

// StartTest starts a diagnostic session. Test sessions never start a runner
// container and never enforce the idle timeout.
func (s *Service) StartTest(ctx context.Context, req types.TestRequest) (types.SessionStatus, error) {
	mode := types.ModeTestStream
	if req.Mode == "x11" {
		mode = types.ModeTestX11
	}

	st := s.settings.Get()
	profile, err := s.settings.Profile(req.ProfileID)
	if err != nil {
		return types.SessionStatus{}, err
	}
	cfg, err := compile.Profile(profile, gpuVendor(st.GPUType))
	if err != nil {
		return types.SessionStatus{}, err
	}

	launch := session.LaunchRequest{
		Mode:    mode,
		Config:  cfg,
		Pattern: req.Pattern,
	}
	if err := s.sup.Launch(ctx, launch); err != nil {
		return types.SessionStatus{}, err
	}
	return s.sup.Status(ctx), nil
}

// StopSession tears down the active session.
func (s *Service) StopSession(ctx context.Context) error {
	return s.sup.Stop()
}

// Pair proxies the pairing workflow to the supervisor.
func (s *Service) Pair(ctx context.Context, req types.PairRequest) (types.PairResponse, error) {
	return s.sup.Pair(ctx, req)
}

// Ready reports whether the daemon can serve requests.
func (s *Service) Ready() bool {
	return s.presets != nil && s.settings != nil && s.sup != nil
}

// compileActive builds the sidecar configuration for the active streaming
// mode. profileOverride only applies in profiles mode.
func (s *Service) compileActive(st types.StreamSettings, profileOverride string) (types.SidecarConfig, error) {
	gpu := gpuVendor(st.GPUType)

	if st.StreamingMode == "graph" {
		p, err := s.presets.DefaultPreset()
		if err != nil {
			return types.SidecarConfig{}, err
		}
		report := graph.Validate(p.Graph)
		if report.Status == types.StatusError {
			return types.SidecarConfig{}, preset.ErrInvalidGraph(p.ID, report)
		}
		return compile.Graph(p.Graph, gpu)
	}

	id := profileOverride
	if id == "" {
		id = st.DefaultProfileID
	}
	profile, err := s.settings.Profile(id)
	if err != nil {
		return types.SidecarConfig{}, err
	}
	return compile.Profile(profile, gpu)
}

// runnerParams maps a launch request onto the isolated game container. The
// compositor socket directory is shared in so the game renders against the
// session's virtual display.
func (s *Service) runnerParams(req types.LaunchGameRequest) container.RunParams {
	p := container.NewRunParams(s.cfg.Runner.Image).
		WithName("pipeld-runner").
		WithRemove(true).
		WithDevices("/dev/dri").
		WithEnv(
			"WAYLAND_DISPLAY="+filepath.Base(s.cfg.Sidecar.CompositorSocket),
			fmt.Sprintf("PIPELD_EXE=%s", req.ExePath),
		).
		WithVolumes(s.cfg.RuntimeDir + ":/run/pipeld").
		WithCmd(req.ExePath)
	if req.GameDir != "" {
		p = p.WithVolumes(append(p.Volumes, req.GameDir+":/games")...)
	}
	return p
}

func gpuVendor(s string) types.GPUVendor {
	switch s {
	case "nvidia":
		return types.GPUNvidia
	case "amd":
		return types.GPUAMD
	case "intel":
		return types.GPUIntel
	default:
		return types.GPUAuto
	}
}
