package compile

import (
	"fmt"
	"strings"

	"pipeld/pkg/types"
)

// Fixed bitrate tiers for the legacy quality levels, in Kbps.
var qualityBitrateKbps = map[string]int{
	"low":    5000,
	"medium": 10000,
	"high":   20000,
	"ultra":  40000,
}

// Profile compiles a legacy flat profile into the same SidecarConfig shape
// the graph path produces, so the supervisor never needs to know which mode
// it was launched from.
func Profile(p types.StreamProfile, gpu types.GPUVendor) (types.SidecarConfig, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return types.SidecarConfig{}, compilationError{msg: fmt.Sprintf("profile %s: width and height must be positive", p.ID)}
	}
	bitrate, ok := qualityBitrateKbps[strings.ToLower(p.Quality)]
	if !ok {
		return types.SidecarConfig{}, compilationError{field: "quality", msg: fmt.Sprintf("profile %s: unknown quality tier %q", p.ID, p.Quality)}
	}
	codec := p.Codec
	if codec == "" {
		codec = "h264"
	}
	// A profile may pin a vendor; it wins over an unset or auto preference.
	// Anything else in the field (including "auto") keeps the probe order.
	if gpu == "" || gpu == types.GPUAuto {
		switch v := types.GPUVendor(p.GPUType); v {
		case types.GPUNvidia, types.GPUAMD, types.GPUIntel:
			gpu = v
		}
	}
	elements, err := EncoderChain(gpu, codec)
	if err != nil {
		return types.SidecarConfig{}, compilationError{field: "codec", msg: err.Error()}
	}
	fps := p.RefreshRate
	if fps <= 0 {
		fps = 60
	}
	return types.SidecarConfig{
		Compositor: types.CompositorConfig{
			Width:       p.Width,
			Height:      p.Height,
			RefreshRate: fps,
			Backend:     "headless",
		},
		Video: types.VideoEncoderConfig{
			Codec:       codec,
			BitrateKbps: bitrate,
			GopSeconds:  2,
			Preset:      "medium",
			Elements:    elements,
		},
		Audio: defaultAudio(),
		Sink: types.SinkConfig{
			Port:     47989,
			Protocol: "moonlight",
		},
	}, nil
}
