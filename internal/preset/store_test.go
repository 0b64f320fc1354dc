package preset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeld/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "presets.json"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_SeedsFactoryPresets(t *testing.T) {
	s := openTestStore(t)
	doc := s.Document()
	require.Len(t, doc.Presets, 2)
	assert.Equal(t, DefaultFactoryPresetID, doc.DefaultPresetID)
	for _, p := range doc.Presets {
		assert.True(t, p.IsFactory)
		assert.NotEmpty(t, p.Graph.Nodes)
	}
}

func TestOpen_SecondOpenOnSamePathIsRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(path, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked by another process")
}

func TestOpen_ReloadsPersistedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	_, err = s.Clone("quality-4k")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s2.Close()
	_, err = s2.Get("quality-4k-copy")
	assert.NoError(t, err)
}

func TestCreateUpdateDelete_UserPreset(t *testing.T) {
	s := openTestStore(t)
	base, err := s.Get(DefaultFactoryPresetID)
	require.NoError(t, err)

	p, err := s.Create("mine", "Mine", "a user preset", base.Graph)
	require.NoError(t, err)
	assert.False(t, p.IsFactory)
	assert.False(t, p.CreatedAt.IsZero())

	_, err = s.Create("mine", "Again", "", base.Graph)
	assert.Error(t, err, "duplicate id must be refused")

	updated, err := s.Update("mine", "Renamed", "new desc", base.Graph)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))

	require.NoError(t, s.Delete("mine"))
	_, err = s.Get("mine")
	assert.True(t, IsPresetNotFound(err))
}

func TestFactoryPresets_AreImmutable(t *testing.T) {
	s := openTestStore(t)
	before := s.Document()

	_, err := s.Update(DefaultFactoryPresetID, "sneaky", "", types.Graph{})
	assert.True(t, IsFactoryPreset(err))

	err = s.Delete(DefaultFactoryPresetID)
	assert.True(t, IsFactoryPreset(err))

	// refused operations must not change the document
	assert.Equal(t, before, s.Document())
}

func TestClone_GeneratesCollisionFreeIDs(t *testing.T) {
	s := openTestStore(t)

	c1, err := s.Clone("quality-4k")
	require.NoError(t, err)
	assert.Equal(t, "quality-4k-copy", c1.ID)
	assert.Equal(t, "Quality 4K (copy)", c1.Name)
	assert.False(t, c1.IsFactory, "clone of a factory preset is a user preset")

	c2, err := s.Clone("quality-4k")
	require.NoError(t, err)
	assert.Equal(t, "quality-4k-copy-2", c2.ID)

	c3, err := s.Clone("quality-4k")
	require.NoError(t, err)
	assert.Equal(t, "quality-4k-copy-3", c3.ID)

	// clones are editable
	_, err = s.Update(c1.ID, "Edited clone", "", c1.Graph)
	assert.NoError(t, err)
}

func TestDelete_DefaultFallsBack(t *testing.T) {
	s := openTestStore(t)
	c, err := s.Clone(DefaultFactoryPresetID)
	require.NoError(t, err)
	require.NoError(t, s.SetDefault(c.ID))

	require.NoError(t, s.Delete(c.ID))
	doc := s.Document()
	assert.Equal(t, doc.Presets[0].ID, doc.DefaultPresetID)
}

func TestSetDefault_RefusesInvalidGraph(t *testing.T) {
	s := openTestStore(t)
	base, err := s.Get(DefaultFactoryPresetID)
	require.NoError(t, err)

	// drop the sink so validation fails
	g := base.Graph
	var kept []types.Node
	for _, n := range g.Nodes {
		if n.Type != types.NodeSunshineSink {
			kept = append(kept, n)
		}
	}
	g.Nodes = kept

	_, err = s.Create("broken", "Broken", "", g)
	require.NoError(t, err, "saving an invalid graph is allowed")

	err = s.SetDefault("broken")
	assert.True(t, IsInvalidGraph(err))
	assert.Equal(t, DefaultFactoryPresetID, s.Document().DefaultPresetID)
}

func TestReplace_ProtectsFactoryPresets(t *testing.T) {
	s := openTestStore(t)
	doc := s.Document()

	// dropping a factory preset is refused
	var withoutFactory types.StoreDocument
	withoutFactory.DefaultPresetID = doc.DefaultPresetID
	for _, p := range doc.Presets {
		if p.ID != "quality-4k" {
			withoutFactory.Presets = append(withoutFactory.Presets, p)
		}
	}
	err := s.Replace(withoutFactory)
	assert.True(t, IsFactoryPreset(err))

	// dangling default falls back to the first preset
	doc.DefaultPresetID = "ghost"
	require.NoError(t, s.Replace(doc))
	assert.Equal(t, doc.Presets[0].ID, s.Document().DefaultPresetID)
}

func TestReplace_KeepsFactoryContentVerbatim(t *testing.T) {
	s := openTestStore(t)
	original, err := s.Get(DefaultFactoryPresetID)
	require.NoError(t, err)

	// A tampered factory preset in the replacement document is accepted but
	// the stored content wins.
	doc := s.Document()
	for i := range doc.Presets {
		if doc.Presets[i].ID == DefaultFactoryPresetID {
			doc.Presets[i].Name = "tampered"
			doc.Presets[i].Graph.Nodes = nil
			doc.Presets[i].IsFactory = false
		}
	}
	require.NoError(t, s.Replace(doc))

	kept, err := s.Get(DefaultFactoryPresetID)
	require.NoError(t, err)
	assert.Equal(t, original.Name, kept.Name)
	assert.Len(t, kept.Graph.Nodes, len(original.Graph.Nodes))
	assert.True(t, kept.IsFactory)

	// Survives a reload from disk too.
	require.NoError(t, s.Close())
	reopened, err := Open(s.path, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()
	kept, err = reopened.Get(DefaultFactoryPresetID)
	require.NoError(t, err)
	assert.Equal(t, original.Name, kept.Name)
	assert.NotEmpty(t, kept.Graph.Nodes)
}

func TestReplace_CannotMintFactoryPresets(t *testing.T) {
	s := openTestStore(t)
	doc := s.Document()

	forged, err := s.Clone(DefaultFactoryPresetID)
	require.NoError(t, err)
	doc = s.Document()
	for i := range doc.Presets {
		if doc.Presets[i].ID == forged.ID {
			doc.Presets[i].IsFactory = true
		}
	}
	require.NoError(t, s.Replace(doc))

	got, err := s.Get(forged.ID)
	require.NoError(t, err)
	assert.False(t, got.IsFactory)
}

func TestReplace_RejectsDuplicateIDs(t *testing.T) {
	s := openTestStore(t)
	doc := s.Document()
	doc.Presets = append(doc.Presets, doc.Presets[0])
	assert.Error(t, s.Replace(doc))
}

func TestFactoryReset_DiscardsUserPresets(t *testing.T) {
	s := openTestStore(t)
	c, err := s.Clone(DefaultFactoryPresetID)
	require.NoError(t, err)
	require.NoError(t, s.SetDefault(c.ID))

	require.NoError(t, s.FactoryReset())
	doc := s.Document()
	assert.Len(t, doc.Presets, 2)
	assert.Equal(t, DefaultFactoryPresetID, doc.DefaultPresetID)
}

func TestRevalidate_UpdatesCache(t *testing.T) {
	s := openTestStore(t)
	report, err := s.Revalidate()
	require.NoError(t, err)
	assert.Equal(t, types.StatusOK, report.Status)

	doc := s.Document()
	require.NotNil(t, doc.Validation)
	assert.Equal(t, types.StatusOK, doc.Validation.Status)
	assert.WithinDuration(t, time.Now(), doc.Validation.LastRunAt, 5*time.Second)
}

func TestPersist_WritesValidJSONAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Clone(DefaultFactoryPresetID)
	require.NoError(t, err)

	// no temp file left behind, and the document on disk parses
	_, statErr := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc types.StoreDocument
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Len(t, doc.Presets, 3)
}

func TestDocument_ReturnsSnapshot(t *testing.T) {
	s := openTestStore(t)
	doc := s.Document()
	doc.Presets[0].Name = "mutated"
	doc.Presets[0].Graph.Nodes[0].Attributes = map[string]any{"x": 1}
	fresh := s.Document()
	assert.NotEqual(t, "mutated", fresh.Presets[0].Name)
}
