package types

// GPUVendor selects the hardware encoder family during compilation.
type GPUVendor string

const (
	GPUNvidia GPUVendor = "nvidia"
	GPUAMD    GPUVendor = "amd"
	GPUIntel  GPUVendor = "intel"
	GPUAuto   GPUVendor = "auto"
)

// CompositorConfig configures the headless compositor process.
type CompositorConfig struct {
	// Output width in pixels.
	// example: 1920
	Width int `json:"width" example:"1920"`
	// Output height in pixels.
	// example: 1080
	Height int `json:"height" example:"1080"`
	// Refresh rate in Hz.
	// example: 60
	RefreshRate int `json:"refreshRate" example:"60"`
	// Rendering backend, e.g. headless.
	// example: headless
	Backend string `json:"backend" example:"headless"`
}

// EncoderElement is one entry in the priority-ordered encoder chain. The
// sidecar tries entries in ascending priority and falls back when an element
// is unavailable at runtime.
type EncoderElement struct {
	// Pipeline element name, e.g. nvh264enc.
	Name string `json:"name"`
	// Element family: nvenc, vaapi or software.
	Kind string `json:"kind"`
	// Fallback order; lower tries first.
	Priority int `json:"priority"`
}

// VideoEncoderConfig holds the compiled video encoding parameters.
type VideoEncoderConfig struct {
	Codec       string           `json:"codec"`
	BitrateKbps int              `json:"bitrateKbps"`
	GopSeconds  int              `json:"gopSeconds"`
	Preset      string           `json:"preset,omitempty"`
	Elements    []EncoderElement `json:"elements"`
}

// AudioEncoderConfig holds the compiled audio encoding parameters.
type AudioEncoderConfig struct {
	Codec       string `json:"codec"`
	BitrateKbps int    `json:"bitrateKbps"`
}

// SinkConfig holds the streaming endpoint connection parameters.
type SinkConfig struct {
	// Base TCP/UDP port the endpoint binds.
	// example: 47989
	Port int `json:"port" example:"47989"`
	// Wire protocol selector.
	// example: moonlight
	Protocol string `json:"protocol" example:"moonlight"`
}

// SidecarConfig is the complete compiled runtime configuration handed to the
// streaming sidecar. Both the graph compiler and the legacy profile path
// produce this shape, so the supervisor never needs to know which mode built
// it.
type SidecarConfig struct {
	Compositor CompositorConfig   `json:"compositor"`
	Video      VideoEncoderConfig `json:"video"`
	Audio      AudioEncoderConfig `json:"audio"`
	Sink       SinkConfig         `json:"sink"`
}

// StreamProfile is the legacy flat profile shape kept for the non-graph
// settings path.
type StreamProfile struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	RefreshRate int    `json:"refreshRate"`
	Codec       string `json:"codec"`
	Quality     string `json:"quality"`
	GPUType     string `json:"gpuType"`
}
