// Package preset persists named pipeline graphs as a single JSON document
// with whole-document read-modify-write mutations behind one writer lock.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"pipeld/internal/graph"
	"pipeld/pkg/types"
)

// Store owns the preset document. All mutations serialize through mu and are
// persisted atomically (write temp file, rename). The flock guards against a
// second daemon process opening the same document.
type Store struct {
	path string
	lock *flock.Flock
	log  zerolog.Logger

	mu  sync.Mutex
	doc types.StoreDocument
}

type presetNotFoundError struct{ id string }

func (e presetNotFoundError) Error() string { return "preset not found: " + e.id }

// ErrPresetNotFound builds a missing-preset error for the given id.
func ErrPresetNotFound(id string) error { return presetNotFoundError{id: id} }

// IsPresetNotFound reports whether err indicates a missing preset id.
func IsPresetNotFound(err error) bool {
	_, ok := err.(presetNotFoundError)
	return ok
}

type factoryPresetError struct {
	id string
	op string
}

func (e factoryPresetError) Error() string {
	return fmt.Sprintf("preset %s is a factory preset and cannot be %s; clone it first", e.id, e.op)
}

// ErrFactoryPreset builds a refused-factory-mutation error.
func ErrFactoryPreset(id, op string) error { return factoryPresetError{id: id, op: op} }

// IsFactoryPreset reports whether err indicates a refused factory mutation.
func IsFactoryPreset(err error) bool {
	_, ok := err.(factoryPresetError)
	return ok
}

type invalidGraphError struct {
	id     string
	report types.ValidationReport
}

func (e invalidGraphError) Error() string {
	return fmt.Sprintf("preset %s has validation errors and cannot be selected for launch (%d issues)", e.id, len(e.report.Issues))
}

// ErrInvalidGraph marks a preset whose graph failed validation with status
// error, blocking default selection and live launches.
func ErrInvalidGraph(id string, report types.ValidationReport) error {
	return invalidGraphError{id: id, report: report}
}

// IsInvalidGraph reports whether err indicates a graph that failed validation.
func IsInvalidGraph(err error) bool {
	_, ok := err.(invalidGraphError)
	return ok
}

// Open loads the store document at path, seeding the factory presets on first
// run. It acquires a file lock so only one process can own the document.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	lk := flock.New(path + ".lock")
	ok, err := lk.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock store: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("store %s is locked by another process", path)
	}

	s := &Store{path: path, lock: lk, log: log}
	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		log.Info().Str("path", path).Msg("no preset store found, seeding factory presets")
		s.doc = types.StoreDocument{
			Presets:         FactoryPresets(time.Now()),
			DefaultPresetID: DefaultFactoryPresetID,
		}
		if err := s.persist(); err != nil {
			_ = lk.Unlock()
			return nil, err
		}
	case err != nil:
		_ = lk.Unlock()
		return nil, fmt.Errorf("read store: %w", err)
	default:
		if err := json.Unmarshal(b, &s.doc); err != nil {
			_ = lk.Unlock()
			return nil, fmt.Errorf("parse store %s: %w", path, err)
		}
		s.repairDefault()
	}
	return s, nil
}

// Close releases the document lock.
func (s *Store) Close() error {
	return s.lock.Unlock()
}

// Document returns a snapshot of the whole store.
func (s *Store) Document() types.StoreDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyDoc(s.doc)
}

// DefaultPreset returns the currently selected preset.
func (s *Store) DefaultPreset() (types.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.doc.Presets {
		if p.ID == s.doc.DefaultPresetID {
			return copyPreset(p), nil
		}
	}
	return types.Preset{}, presetNotFoundError{id: s.doc.DefaultPresetID}
}

// Get returns one preset by id.
func (s *Store) Get(id string) (types.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		return copyPreset(s.doc.Presets[i]), nil
	}
	return types.Preset{}, presetNotFoundError{id: id}
}

// Create adds a user preset. The graph may carry validation issues; saving an
// imperfect graph is allowed so users can iterate.
func (s *Store) Create(id, name, description string, g types.Graph) (types.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		return types.Preset{}, fmt.Errorf("preset id cannot be empty")
	}
	if s.index(id) >= 0 {
		return types.Preset{}, fmt.Errorf("preset %s already exists", id)
	}
	now := time.Now()
	p := types.Preset{
		ID: id, Name: name, Description: description,
		Graph: graph.Clone(g), CreatedAt: now, UpdatedAt: now,
	}
	s.doc.Presets = append(s.doc.Presets, p)
	if err := s.persist(); err != nil {
		s.doc.Presets = s.doc.Presets[:len(s.doc.Presets)-1]
		return types.Preset{}, err
	}
	return copyPreset(p), nil
}

// Update replaces name, description and graph of a user preset. Factory
// presets are refused.
func (s *Store) Update(id, name, description string, g types.Graph) (types.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return types.Preset{}, presetNotFoundError{id: id}
	}
	if s.doc.Presets[i].IsFactory {
		return types.Preset{}, factoryPresetError{id: id, op: "updated"}
	}
	prev := s.doc.Presets[i]
	p := prev
	if name != "" {
		p.Name = name
	}
	p.Description = description
	p.Graph = graph.Clone(g)
	p.UpdatedAt = time.Now()
	s.doc.Presets[i] = p
	if err := s.persist(); err != nil {
		s.doc.Presets[i] = prev
		return types.Preset{}, err
	}
	return copyPreset(p), nil
}

// Delete removes a user preset. Factory presets and the last remaining
// preset are refused. If the default pointed at the deleted preset it falls
// back to the first remaining one.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return presetNotFoundError{id: id}
	}
	if s.doc.Presets[i].IsFactory {
		return factoryPresetError{id: id, op: "deleted"}
	}
	if len(s.doc.Presets) == 1 {
		return fmt.Errorf("preset %s is the last remaining preset and cannot be deleted", id)
	}
	prev := copyDoc(s.doc)
	s.doc.Presets = append(s.doc.Presets[:i], s.doc.Presets[i+1:]...)
	s.repairDefault()
	if err := s.persist(); err != nil {
		s.doc = prev
		return err
	}
	return nil
}

// Clone copies a preset under a generated collision-free id: "-copy", then
// "-copy-2" and so on. Cloning a factory preset is always allowed; the clone
// is a regular user preset.
func (s *Store) Clone(id string) (types.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return types.Preset{}, presetNotFoundError{id: id}
	}
	src := s.doc.Presets[i]
	now := time.Now()
	p := types.Preset{
		ID:          s.cloneID(src.ID),
		Name:        src.Name + " (copy)",
		Description: src.Description,
		Graph:       graph.Clone(src.Graph),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.doc.Presets = append(s.doc.Presets, p)
	if err := s.persist(); err != nil {
		s.doc.Presets = s.doc.Presets[:len(s.doc.Presets)-1]
		return types.Preset{}, err
	}
	return copyPreset(p), nil
}

// SetDefault selects the active preset. A preset whose graph has validation
// errors cannot become the default.
func (s *Store) SetDefault(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return presetNotFoundError{id: id}
	}
	if report := graph.Validate(s.doc.Presets[i].Graph); report.Status == types.StatusError {
		return invalidGraphError{id: id, report: report}
	}
	prev := s.doc.DefaultPresetID
	s.doc.DefaultPresetID = id
	if err := s.persist(); err != nil {
		s.doc.DefaultPresetID = prev
		return err
	}
	return nil
}

// Replace swaps the whole document, used by POST /graph for bulk edits from
// the UI. Factory presets may not be dropped or altered, and the incoming
// default must resolve.
func (s *Store) Replace(doc types.StoreDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(doc.Presets))
	for _, p := range doc.Presets {
		if p.ID == "" {
			return fmt.Errorf("preset with empty id in replacement document")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate preset id %s in replacement document", p.ID)
		}
		seen[p.ID] = true
	}
	factory := make(map[string]types.Preset)
	for _, cur := range s.doc.Presets {
		if !cur.IsFactory {
			continue
		}
		if !seen[cur.ID] {
			return factoryPresetError{id: cur.ID, op: "removed"}
		}
		factory[cur.ID] = cur
	}
	prev := copyDoc(s.doc)
	next := copyDoc(doc)
	// Incoming copies of factory presets are ignored in favor of the stored
	// ones; factory content only changes via FactoryReset. Anything else in
	// the document cannot claim factory status either.
	for i, p := range next.Presets {
		if cur, ok := factory[p.ID]; ok {
			next.Presets[i] = copyPreset(cur)
		} else {
			next.Presets[i].IsFactory = false
		}
	}
	s.doc = next
	s.repairDefault()
	if err := s.persist(); err != nil {
		s.doc = prev
		return err
	}
	return nil
}

// FactoryReset discards user presets and restores the built-in set with
// fresh timestamps.
func (s *Store) FactoryReset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := copyDoc(s.doc)
	s.doc = types.StoreDocument{
		Presets:         FactoryPresets(time.Now()),
		DefaultPresetID: DefaultFactoryPresetID,
	}
	if err := s.persist(); err != nil {
		s.doc = prev
		return err
	}
	s.log.Info().Msg("preset store reset to factory defaults")
	return nil
}

// Revalidate runs the validator against the default preset and stores the
// report in the validation cache.
func (s *Store) Revalidate() (types.ValidationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var target *types.Preset
	for i := range s.doc.Presets {
		if s.doc.Presets[i].ID == s.doc.DefaultPresetID {
			target = &s.doc.Presets[i]
			break
		}
	}
	if target == nil {
		return types.ValidationReport{}, presetNotFoundError{id: s.doc.DefaultPresetID}
	}
	report := graph.Validate(target.Graph)
	s.doc.Validation = &types.ValidationCache{
		Status:    report.Status,
		Issues:    report.Issues,
		LastRunAt: time.Now(),
	}
	if err := s.persist(); err != nil {
		return types.ValidationReport{}, err
	}
	return report, nil
}

func (s *Store) index(id string) int {
	for i, p := range s.doc.Presets {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) cloneID(base string) string {
	id := base + "-copy"
	if s.index(id) < 0 {
		return id
	}
	for n := 2; ; n++ {
		id = fmt.Sprintf("%s-copy-%d", base, n)
		if s.index(id) < 0 {
			return id
		}
	}
}

// repairDefault points the default at the first preset when the referenced
// one no longer exists.
func (s *Store) repairDefault() {
	if s.index(s.doc.DefaultPresetID) >= 0 {
		return
	}
	if len(s.doc.Presets) > 0 {
		s.doc.DefaultPresetID = s.doc.Presets[0].ID
	} else {
		s.doc.DefaultPresetID = ""
	}
}

// persist writes the whole document atomically: temp file in the same
// directory, then rename over the target. Callers hold s.mu.
func (s *Store) persist() error {
	b, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

func copyPreset(p types.Preset) types.Preset {
	cp := p
	cp.Graph = graph.Clone(p.Graph)
	return cp
}

func copyDoc(d types.StoreDocument) types.StoreDocument {
	out := d
	out.Presets = make([]types.Preset, len(d.Presets))
	for i, p := range d.Presets {
		out.Presets[i] = copyPreset(p)
	}
	if d.Validation != nil {
		v := *d.Validation
		v.Issues = append([]types.Issue(nil), d.Validation.Issues...)
		out.Validation = &v
	}
	return out
}
