package types

import "time"

// StreamSettings is the legacy flat settings document behind
// GET|POST /settings/streaming.
type StreamSettings struct {
	// GPU vendor preference: nvidia, amd, intel or auto.
	// example: auto
	GPUType string `json:"gpuType" example:"auto"`
	// Preferred codec: h264, hevc or av1.
	// example: h264
	Codec string `json:"codec" example:"h264"`
	// Quality tier for the profile path: low, medium, high or ultra.
	// example: high
	Quality string `json:"quality" example:"high"`
	// Minutes without connected clients before graceful shutdown; 0 disables.
	// example: 10
	IdleTimeoutMinutes int `json:"idleTimeoutMinutes" example:"10"`
	// Profile used when streamingMode is profiles.
	DefaultProfileID string `json:"defaultProfileId,omitempty"`
	// Which launch path is active: profiles or graph.
	// example: graph
	StreamingMode string `json:"streamingMode" example:"graph"`
	// Profiles available to the legacy path.
	Profiles []StreamProfile `json:"profiles,omitempty"`
}

// SessionMode distinguishes real game sessions from diagnostics.
type SessionMode string

const (
	ModeGame       SessionMode = "game"
	ModeTestStream SessionMode = "test-stream"
	ModeTestX11    SessionMode = "test-x11"
)

// SessionState is the supervisor's externally visible lifecycle state.
type SessionState string

const (
	SessionStarting    SessionState = "starting"
	SessionRunning     SessionState = "running"
	SessionIdleWarning SessionState = "idle-warning"
	SessionStopping    SessionState = "stopping"
	SessionStopped     SessionState = "stopped"
	SessionCrashed     SessionState = "crashed"
)

// SessionStatus is the full runtime status of the supervised session.
type SessionStatus struct {
	Mode  SessionMode  `json:"mode"`
	State SessionState `json:"state"`
	// Container id of the runner, when one was started.
	ContainerID string `json:"containerId,omitempty"`
	// Generation token distinguishing this session's loops from older ones.
	Generation string `json:"generation,omitempty"`
	// PID of the streaming endpoint process.
	EndpointPID int `json:"endpointPid,omitempty"`
	// Seconds the session has had zero connected clients.
	IdleSeconds int `json:"idleSeconds"`
	// Clients that completed pairing.
	PairedClients []string `json:"pairedClients"`
	// True while a PIN is pending confirmation.
	PendingPin bool      `json:"pendingPin"`
	StartedAt  time.Time `json:"startedAt,omitempty"`
	// Whether the container runtime answered its last probe.
	RuntimeUp bool `json:"runtimeUp"`
}

// PairRequest drives the pairing workflow on POST /pair.
type PairRequest struct {
	// One of: pair, status, clear.
	// example: pair
	Action string `json:"action" example:"pair"`
	// 4 digit PIN shown by the Moonlight client. Separators are tolerated.
	// example: 1234
	Pin string `json:"pin,omitempty" example:"1234"`
}

// PairResponse reports pairing readiness and known clients.
type PairResponse struct {
	Ready   bool     `json:"ready"`
	Paired  []string `json:"paired"`
	Message string   `json:"message,omitempty"`
}

// TestRequest starts a diagnostic session on POST /test.
type TestRequest struct {
	// stream for a full pipeline test pattern, x11 for a bare display test.
	// example: stream
	Mode string `json:"mode" example:"stream"`
	// Pattern name fed to the test source.
	// example: smpte
	Pattern string `json:"pattern,omitempty" example:"smpte"`
	// Optional legacy profile to compile for the test.
	ProfileID string `json:"profileId,omitempty"`
}

// LaunchGameRequest starts a real game session on POST /session. The active
// streamingMode decides whether the default preset graph or a legacy profile
// drives the pipeline; ProfileID overrides the default profile in the latter
// case.
type LaunchGameRequest struct {
	// Command run inside the runner container.
	// example: /games/factorio/bin/factorio
	ExePath string `json:"exePath"`
	// Host directory mounted into the runner at /games.
	GameDir string `json:"gameDir,omitempty"`
	// Optional legacy profile override.
	ProfileID string `json:"profileId,omitempty"`
}

// CreatePresetRequest is the POST /graph/presets payload.
type CreatePresetRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Graph       Graph  `json:"graph"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
