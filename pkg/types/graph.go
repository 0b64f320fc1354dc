package types

import "time"

// MediaType tags a port contract with the kind of data that flows through it.
// Edges are only valid between ports carrying the same media type.
type MediaType string

const (
	MediaControl      MediaType = "control"
	MediaClock        MediaType = "clock"
	MediaVideoRaw     MediaType = "video/raw"
	MediaVideoEncoded MediaType = "video/encoded"
	MediaAudioRaw     MediaType = "audio/raw"
	MediaAudioEncoded MediaType = "audio/encoded"
	MediaInputEvents  MediaType = "input/events"
)

// NodeType identifies the variant of a pipeline node. Each type carries a
// known attribute schema (see internal/graph).
type NodeType string

const (
	NodeSessionRoot       NodeType = "SessionRoot"
	NodeRunnerContainer   NodeType = "RunnerContainer"
	NodeGameLaunch        NodeType = "GameLaunch"
	NodeVirtualCompositor NodeType = "VirtualCompositor"
	NodeVirtualMonitor    NodeType = "VirtualMonitor"
	NodeVideoCapture      NodeType = "VideoCapture"
	NodeVideoEncoder      NodeType = "VideoEncoder"
	NodeAudioEncoder      NodeType = "AudioEncoder"
	NodeVideoTee          NodeType = "VideoTee"
	NodeAudioTee          NodeType = "AudioTee"
	NodeSunshineSink      NodeType = "SunshineSink"
	NodeInputSource       NodeType = "InputSource"
	NodeInputMapper       NodeType = "InputMapper"
	NodeInputInjector     NodeType = "InputInjector"
)

// PortContract describes what a port accepts or produces.
type PortContract struct {
	MediaType  MediaType      `json:"mediaType"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Port is a typed connection point on a node. Identity is (nodeId, portId).
type Port struct {
	ID       string       `json:"id"`
	Label    string       `json:"label"`
	Contract PortContract `json:"contract"`
	Required bool         `json:"required"`
}

// Node is a typed unit of the pipeline plan. It never executes in-process;
// the compiler turns it into external-process configuration.
type Node struct {
	ID          string         `json:"id"`
	Type        NodeType       `json:"type"`
	DisplayName string         `json:"displayName"`
	Inputs      []Port         `json:"inputs"`
	Outputs     []Port         `json:"outputs"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// Edge connects an output port to an input port.
type Edge struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Out  string `json:"out"`
	To   string `json:"to"`
	In   string `json:"in"`
}

// Graph is the full pipeline definition.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationStatus summarizes a report: error if any error issue exists,
// warning if any warning exists, else ok.
type ValidationStatus string

const (
	StatusOK      ValidationStatus = "ok"
	StatusWarning ValidationStatus = "warning"
	StatusError   ValidationStatus = "error"
)

// Issue is a single validator finding.
type Issue struct {
	Severity Severity `json:"severity"`
	NodeID   string   `json:"nodeId,omitempty"`
	EdgeID   string   `json:"edgeId,omitempty"`
	Message  string   `json:"message"`
}

// ValidationReport is the result of validating one graph.
type ValidationReport struct {
	Status ValidationStatus `json:"status"`
	Issues []Issue          `json:"issues"`
}

// ValidationCache is the stored report for the default preset. Derived data,
// recomputed on demand.
type ValidationCache struct {
	Status    ValidationStatus `json:"status"`
	Issues    []Issue          `json:"issues"`
	LastRunAt time.Time        `json:"lastRunAt"`
}

// Preset is a named, stored pipeline graph. Factory presets ship with the
// daemon and are immutable; editing one requires cloning it first.
type Preset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Graph       Graph     `json:"graph"`
	IsFactory   bool      `json:"isFactory"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StoreDocument is the whole persisted preset store. Mutations always rewrite
// the complete document.
type StoreDocument struct {
	Presets         []Preset         `json:"presets"`
	DefaultPresetID string           `json:"defaultPresetId"`
	Validation      *ValidationCache `json:"validation,omitempty"`
}
