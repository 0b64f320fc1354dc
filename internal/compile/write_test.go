package compile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeld/pkg/types"
)

func TestWriteConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	cfg, err := Graph(compileGraph(t), types.GPUNvidia)
	require.NoError(t, err)

	require.NoError(t, WriteConfig(dir, cfg))

	for _, name := range []string{CompositorFile, EncoderFile, SinkFile} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, "read %s", name)
		var doc map[string]any
		require.NoError(t, json.Unmarshal(b, &doc), "parse %s", name)
	}

	// encoder.json carries both video and audio sections.
	b, err := os.ReadFile(filepath.Join(dir, EncoderFile))
	require.NoError(t, err)
	var enc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &enc))
	assert.Contains(t, enc, "video")
	assert.Contains(t, enc, "audio")
}

func TestWriteConfig_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Graph(compileGraph(t), types.GPUAuto)
	require.NoError(t, err)
	require.NoError(t, WriteConfig(dir, cfg))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
	assert.Len(t, entries, 3)
}

func TestWriteConfig_Rewrite(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Graph(compileGraph(t), types.GPUAuto)
	require.NoError(t, err)
	require.NoError(t, WriteConfig(dir, cfg))

	cfg.Sink.Port = 48010
	require.NoError(t, WriteConfig(dir, cfg))

	b, err := os.ReadFile(filepath.Join(dir, SinkFile))
	require.NoError(t, err)
	var sink types.SinkConfig
	require.NoError(t, json.Unmarshal(b, &sink))
	assert.Equal(t, 48010, sink.Port)
}
