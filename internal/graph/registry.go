package graph

import (
	"fmt"

	"pipeld/pkg/types"
)

// AttrSpec describes one attribute in a node type's schema.
type AttrSpec struct {
	Required bool
	Default  any
}

// nodeSpec is the static shape of a node type: its ports and attribute schema.
type nodeSpec struct {
	inputs  []types.Port
	outputs []types.Port
	attrs   map[string]AttrSpec
}

func controlIn(required bool) types.Port {
	return types.Port{ID: "control", Label: "Control", Contract: types.PortContract{MediaType: types.MediaControl}, Required: required}
}

func controlOut() types.Port {
	return types.Port{ID: "control", Label: "Control", Contract: types.PortContract{MediaType: types.MediaControl}}
}

func mediaPort(id, label string, mt types.MediaType, required bool) types.Port {
	return types.Port{ID: id, Label: label, Contract: types.PortContract{MediaType: mt}, Required: required}
}

var nodeSpecs = map[types.NodeType]nodeSpec{
	types.NodeSessionRoot: {
		outputs: []types.Port{controlOut()},
	},
	types.NodeRunnerContainer: {
		inputs:  []types.Port{controlIn(true)},
		outputs: []types.Port{controlOut()},
		attrs: map[string]AttrSpec{
			"image": {Required: true},
		},
	},
	types.NodeGameLaunch: {
		inputs:  []types.Port{controlIn(true)},
		outputs: []types.Port{controlOut()},
		attrs: map[string]AttrSpec{
			"command": {Default: ""},
		},
	},
	types.NodeVirtualCompositor: {
		inputs:  []types.Port{controlIn(true)},
		outputs: []types.Port{mediaPort("video", "Raw video", types.MediaVideoRaw, false)},
		attrs: map[string]AttrSpec{
			"backend": {Default: "headless"},
		},
	},
	types.NodeVirtualMonitor: {
		inputs:  []types.Port{controlIn(false)},
		outputs: []types.Port{mediaPort("video", "Raw video", types.MediaVideoRaw, false)},
		attrs: map[string]AttrSpec{
			"width":       {Required: true},
			"height":      {Required: true},
			"refreshRate": {Default: 60},
		},
	},
	types.NodeVideoCapture: {
		inputs:  []types.Port{mediaPort("video", "Raw video", types.MediaVideoRaw, true)},
		outputs: []types.Port{mediaPort("video", "Raw video", types.MediaVideoRaw, false)},
	},
	types.NodeVideoEncoder: {
		inputs:  []types.Port{mediaPort("video", "Raw video", types.MediaVideoRaw, true)},
		outputs: []types.Port{mediaPort("video", "Encoded video", types.MediaVideoEncoded, false)},
		attrs: map[string]AttrSpec{
			"codec":       {Required: true},
			"bitrateKbps": {Required: true},
			"gopSeconds":  {Default: 2},
			"preset":      {Default: "medium"},
		},
	},
	types.NodeAudioEncoder: {
		inputs:  []types.Port{mediaPort("audio", "Raw audio", types.MediaAudioRaw, true)},
		outputs: []types.Port{mediaPort("audio", "Encoded audio", types.MediaAudioEncoded, false)},
		attrs: map[string]AttrSpec{
			"codec":       {Default: "opus"},
			"bitrateKbps": {Default: 128},
		},
	},
	types.NodeVideoTee: {
		inputs: []types.Port{mediaPort("video", "Raw video", types.MediaVideoRaw, true)},
		outputs: []types.Port{
			mediaPort("out-1", "Branch 1", types.MediaVideoRaw, false),
			mediaPort("out-2", "Branch 2", types.MediaVideoRaw, false),
		},
	},
	types.NodeAudioTee: {
		inputs: []types.Port{mediaPort("audio", "Raw audio", types.MediaAudioRaw, true)},
		outputs: []types.Port{
			mediaPort("out-1", "Branch 1", types.MediaAudioRaw, false),
			mediaPort("out-2", "Branch 2", types.MediaAudioRaw, false),
		},
	},
	types.NodeSunshineSink: {
		inputs: []types.Port{
			mediaPort("video", "Encoded video", types.MediaVideoEncoded, true),
			mediaPort("audio", "Encoded audio", types.MediaAudioEncoded, false),
			controlIn(false),
		},
		outputs: []types.Port{mediaPort("input", "Client input", types.MediaInputEvents, false)},
		attrs: map[string]AttrSpec{
			"port":     {Default: 47989},
			"protocol": {Default: "moonlight"},
		},
	},
	types.NodeInputSource: {
		inputs:  []types.Port{controlIn(false)},
		outputs: []types.Port{mediaPort("input", "Input events", types.MediaInputEvents, false)},
	},
	types.NodeInputMapper: {
		inputs:  []types.Port{mediaPort("input", "Input events", types.MediaInputEvents, true)},
		outputs: []types.Port{mediaPort("input", "Input events", types.MediaInputEvents, false)},
		attrs: map[string]AttrSpec{
			"layout": {Default: "passthrough"},
		},
	},
	types.NodeInputInjector: {
		inputs: []types.Port{mediaPort("input", "Input events", types.MediaInputEvents, true)},
	},
}

// KnownType reports whether t has a registered spec. Unknown types are kept
// for forward compatibility; the validator and compiler skip their schemas.
func KnownType(t types.NodeType) bool {
	_, ok := nodeSpecs[t]
	return ok
}

// Schema returns the attribute schema for a node type. Unknown types have an
// empty schema.
func Schema(t types.NodeType) map[string]AttrSpec {
	return nodeSpecs[t].attrs
}

// NewNode builds a node of the given type with its canonical port set and
// schema defaults applied.
func NewNode(id string, t types.NodeType, displayName string) types.Node {
	spec := nodeSpecs[t]
	n := types.Node{
		ID:          id,
		Type:        t,
		DisplayName: displayName,
		Inputs:      append([]types.Port(nil), spec.inputs...),
		Outputs:     append([]types.Port(nil), spec.outputs...),
	}
	for name, as := range spec.attrs {
		if as.Default != nil {
			if n.Attributes == nil {
				n.Attributes = map[string]any{}
			}
			n.Attributes[name] = as.Default
		}
	}
	return n
}

// MissingAttrError names the attribute a compile or lookup could not satisfy.
type MissingAttrError struct {
	NodeID string
	Attr   string
}

func (e MissingAttrError) Error() string {
	return fmt.Sprintf("node %s: required attribute %q is missing", e.NodeID, e.Attr)
}

// StringAttr resolves an attribute as a string, falling back to the schema
// default when the attribute is entirely absent. A required attribute with no
// value yields MissingAttrError.
func StringAttr(n types.Node, name string) (string, error) {
	v, err := attrValue(n, name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("node %s: attribute %q is not a string", n.ID, name)
	}
	return s, nil
}

// IntAttr resolves an attribute as an int. JSON round-trips deliver numbers
// as float64, so both are accepted.
func IntAttr(n types.Node, name string) (int, error) {
	v, err := attrValue(n, name)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	default:
		return 0, fmt.Errorf("node %s: attribute %q is not a number", n.ID, name)
	}
}

func attrValue(n types.Node, name string) (any, error) {
	if v, ok := n.Attributes[name]; ok {
		return v, nil
	}
	if as, ok := Schema(n.Type)[name]; ok && as.Default != nil {
		return as.Default, nil
	}
	return nil, MissingAttrError{NodeID: n.ID, Attr: name}
}
