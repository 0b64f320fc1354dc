package preset

import (
	"time"

	"pipeld/internal/graph"
	"pipeld/pkg/types"
)

// factorySpec is one built-in preset seed.
type factorySpec struct {
	id, name, description string
	width, height, fps    int
	codec                 string
	bitrateKbps           int
}

var factorySpecs = []factorySpec{
	{
		id: "balanced-1080p", name: "Balanced 1080p60",
		description: "H.264 at 1080p60, a safe default for most networks.",
		width:       1920, height: 1080, fps: 60,
		codec: "h264", bitrateKbps: 15000,
	},
	{
		id: "quality-4k", name: "Quality 4K",
		description: "HEVC at 2160p60 for local networks with headroom.",
		width:       3840, height: 2160, fps: 60,
		codec: "hevc", bitrateKbps: 40000,
	},
}

// FactoryPresets returns the built-in immutable presets. Timestamps are
// regenerated on every call, matching factory-reset semantics.
func FactoryPresets(now time.Time) []types.Preset {
	out := make([]types.Preset, 0, len(factorySpecs))
	for _, fs := range factorySpecs {
		out = append(out, types.Preset{
			ID:          fs.id,
			Name:        fs.name,
			Description: fs.description,
			Graph:       factoryGraph(fs),
			IsFactory:   true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return out
}

// DefaultFactoryPresetID is the default selection after a factory reset.
const DefaultFactoryPresetID = "balanced-1080p"

func factoryGraph(fs factorySpec) types.Graph {
	var g types.Graph

	root := graph.NewNode("session-root", types.NodeSessionRoot, "Session")
	runner := graph.NewNode("runner", types.NodeRunnerContainer, "Game runner")
	runner.Attributes = map[string]any{"image": "pipeld-wine:latest"}
	game := graph.NewNode("game", types.NodeGameLaunch, "Game launch")
	monitor := graph.NewNode("monitor", types.NodeVirtualMonitor, "Virtual monitor")
	monitor.Attributes = map[string]any{
		"width":       fs.width,
		"height":      fs.height,
		"refreshRate": fs.fps,
	}
	capture := graph.NewNode("capture", types.NodeVideoCapture, "Screen capture")
	encoder := graph.NewNode("encoder", types.NodeVideoEncoder, "Video encoder")
	encoder.Attributes = map[string]any{
		"codec":       fs.codec,
		"bitrateKbps": fs.bitrateKbps,
		"gopSeconds":  2,
		"preset":      "medium",
	}
	sink := graph.NewNode("sink", types.NodeSunshineSink, "Moonlight sink")

	for _, n := range []types.Node{root, runner, game, monitor, capture, encoder, sink} {
		// Seed construction cannot collide on ids.
		_ = graph.AddNode(&g, n)
	}
	mustConnect(&g, "session-root", "control", "runner", "control")
	mustConnect(&g, "runner", "control", "game", "control")
	mustConnect(&g, "session-root", "control", "monitor", "control")
	mustConnect(&g, "monitor", "video", "capture", "video")
	mustConnect(&g, "capture", "video", "encoder", "video")
	mustConnect(&g, "encoder", "video", "sink", "video")
	return g
}

func mustConnect(g *types.Graph, from, out, to, in string) {
	if _, err := graph.Connect(g, from, out, to, in); err != nil {
		panic("factory graph: " + err.Error())
	}
}
