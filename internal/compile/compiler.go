// Package compile turns a validated pipeline graph, or a legacy flat
// profile, into the concrete configuration the streaming sidecar consumes.
package compile

import (
	"fmt"

	"pipeld/internal/graph"
	"pipeld/pkg/types"
)

// compilationError names the node and field that blocked compilation.
type compilationError struct {
	nodeID string
	field  string
	msg    string
}

func (e compilationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("compile: node %s: %s (%s)", e.nodeID, e.msg, e.field)
	}
	if e.nodeID != "" {
		return fmt.Sprintf("compile: node %s: %s", e.nodeID, e.msg)
	}
	return "compile: " + e.msg
}

// ErrCompilation builds a compilation failure pinpointing nodeID and field.
func ErrCompilation(nodeID, field, format string, args ...any) error {
	return compilationError{nodeID: nodeID, field: field, msg: fmt.Sprintf(format, args...)}
}

// IsCompilationError reports whether err came from the compiler itself,
// as opposed to I/O while writing the result.
func IsCompilationError(err error) bool {
	_, ok := err.(compilationError)
	return ok
}

// Graph compiles a pipeline graph plus GPU preference into a SidecarConfig.
// Required attributes with no value and no schema default fail compilation;
// schema defaults fill attributes that are entirely absent.
func Graph(g types.Graph, gpu types.GPUVendor) (types.SidecarConfig, error) {
	var cfg types.SidecarConfig

	monitor, err := singleNode(g, types.NodeVirtualMonitor)
	if err != nil {
		return cfg, err
	}
	if cfg.Compositor, err = compositorFrom(g, monitor); err != nil {
		return cfg, err
	}

	encoder, err := singleNode(g, types.NodeVideoEncoder)
	if err != nil {
		return cfg, err
	}
	if cfg.Video, err = videoFrom(encoder, gpu); err != nil {
		return cfg, err
	}

	cfg.Audio = defaultAudio()
	for _, n := range g.Nodes {
		if n.Type == types.NodeAudioEncoder {
			if cfg.Audio, err = audioFrom(n); err != nil {
				return cfg, err
			}
			break
		}
	}

	sink, err := singleNode(g, types.NodeSunshineSink)
	if err != nil {
		return cfg, err
	}
	if cfg.Sink, err = sinkFrom(sink); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// singleNode finds exactly one node of the given type. The validator has
// usually run first, but the compiler still refuses ambiguous graphs.
func singleNode(g types.Graph, t types.NodeType) (types.Node, error) {
	var found *types.Node
	for i := range g.Nodes {
		if g.Nodes[i].Type == t {
			if found != nil {
				return types.Node{}, compilationError{msg: fmt.Sprintf("more than one %s node", t)}
			}
			found = &g.Nodes[i]
		}
	}
	if found == nil {
		return types.Node{}, compilationError{msg: fmt.Sprintf("no %s node in graph", t)}
	}
	return *found, nil
}

func compositorFrom(g types.Graph, monitor types.Node) (types.CompositorConfig, error) {
	width, err := graph.IntAttr(monitor, "width")
	if err != nil {
		return types.CompositorConfig{}, attrerr(monitor.ID, "width", err)
	}
	height, err := graph.IntAttr(monitor, "height")
	if err != nil {
		return types.CompositorConfig{}, attrerr(monitor.ID, "height", err)
	}
	fps, err := graph.IntAttr(monitor, "refreshRate")
	if err != nil {
		return types.CompositorConfig{}, attrerr(monitor.ID, "refreshRate", err)
	}
	backend := "headless"
	for _, n := range g.Nodes {
		if n.Type == types.NodeVirtualCompositor {
			if backend, err = graph.StringAttr(n, "backend"); err != nil {
				return types.CompositorConfig{}, attrerr(n.ID, "backend", err)
			}
			break
		}
	}
	return types.CompositorConfig{Width: width, Height: height, RefreshRate: fps, Backend: backend}, nil
}

func videoFrom(encoder types.Node, gpu types.GPUVendor) (types.VideoEncoderConfig, error) {
	codec, err := graph.StringAttr(encoder, "codec")
	if err != nil {
		return types.VideoEncoderConfig{}, attrerr(encoder.ID, "codec", err)
	}
	bitrate, err := graph.IntAttr(encoder, "bitrateKbps")
	if err != nil {
		return types.VideoEncoderConfig{}, attrerr(encoder.ID, "bitrateKbps", err)
	}
	gop, err := graph.IntAttr(encoder, "gopSeconds")
	if err != nil {
		return types.VideoEncoderConfig{}, attrerr(encoder.ID, "gopSeconds", err)
	}
	presetName, err := graph.StringAttr(encoder, "preset")
	if err != nil {
		return types.VideoEncoderConfig{}, attrerr(encoder.ID, "preset", err)
	}
	elements, err := EncoderChain(gpu, codec)
	if err != nil {
		return types.VideoEncoderConfig{}, compilationError{nodeID: encoder.ID, field: "codec", msg: err.Error()}
	}
	return types.VideoEncoderConfig{
		Codec:       codec,
		BitrateKbps: bitrate,
		GopSeconds:  gop,
		Preset:      presetName,
		Elements:    elements,
	}, nil
}

func audioFrom(n types.Node) (types.AudioEncoderConfig, error) {
	codec, err := graph.StringAttr(n, "codec")
	if err != nil {
		return types.AudioEncoderConfig{}, attrerr(n.ID, "codec", err)
	}
	bitrate, err := graph.IntAttr(n, "bitrateKbps")
	if err != nil {
		return types.AudioEncoderConfig{}, attrerr(n.ID, "bitrateKbps", err)
	}
	return types.AudioEncoderConfig{Codec: codec, BitrateKbps: bitrate}, nil
}

func defaultAudio() types.AudioEncoderConfig {
	return types.AudioEncoderConfig{Codec: "opus", BitrateKbps: 128}
}

func sinkFrom(sink types.Node) (types.SinkConfig, error) {
	port, err := graph.IntAttr(sink, "port")
	if err != nil {
		return types.SinkConfig{}, attrerr(sink.ID, "port", err)
	}
	protocol, err := graph.StringAttr(sink, "protocol")
	if err != nil {
		return types.SinkConfig{}, attrerr(sink.ID, "protocol", err)
	}
	return types.SinkConfig{Port: port, Protocol: protocol}, nil
}

func attrerr(nodeID, field string, err error) error {
	return compilationError{nodeID: nodeID, field: field, msg: err.Error()}
}
