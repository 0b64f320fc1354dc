package preset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeld/internal/graph"
	"pipeld/pkg/types"
)

func TestFactoryPresets_ValidateClean(t *testing.T) {
	for _, p := range FactoryPresets(time.Now()) {
		report := graph.Validate(p.Graph)
		assert.Equal(t, types.StatusOK, report.Status, "factory preset %s: %+v", p.ID, report.Issues)
	}
}

func TestFactoryPresets_Shape(t *testing.T) {
	now := time.Now()
	presets := FactoryPresets(now)
	require.Len(t, presets, 2)

	var def *types.Preset
	for i := range presets {
		if presets[i].ID == DefaultFactoryPresetID {
			def = &presets[i]
		}
	}
	require.NotNil(t, def, "default factory preset must exist")
	assert.True(t, def.IsFactory)
	assert.Equal(t, now, def.CreatedAt)

	enc, ok := graph.FindNode(def.Graph, "encoder")
	require.True(t, ok)
	codec, err := graph.StringAttr(enc, "codec")
	require.NoError(t, err)
	assert.Equal(t, "h264", codec)
	bitrate, err := graph.IntAttr(enc, "bitrateKbps")
	require.NoError(t, err)
	assert.Equal(t, 15000, bitrate)
}
