package state

import (
	"fmt"
	"os"
)

// Store is the narrow persistence contract the orchestrator depends on.
// The backing medium is swappable as long as Save is atomic.
type Store interface {
	Load() (*Pipeline, error)
	Save(p *Pipeline) error
}

// FileStore persists the whole pipeline as a single JSON file,
// written atomically on every save.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Exists reports whether the state file is present on disk.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and validates the state file. A missing file surfaces as
// an os.IsNotExist error so callers can initialize a fresh pipeline;
// malformed content or an out-of-vocabulary stage is an error, never
// silently coerced.
func (s *FileStore) Load() (*Pipeline, error) {
	var p Pipeline
	if err := ReadJSON(s.path, &p); err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("state file %s: %w", s.path, err)
	}
	if p.Features == nil {
		p.Features = make(map[string]*Feature)
	}
	if err := validate(&p); err != nil {
		return nil, fmt.Errorf("state file %s: %w", s.path, err)
	}
	return &p, nil
}

// Save writes the pipeline to disk atomically.
func (s *FileStore) Save(p *Pipeline) error {
	if err := validate(p); err != nil {
		return err
	}
	if err := WriteJSON(s.path, p); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func validate(p *Pipeline) error {
	for id, f := range p.Features {
		if f == nil {
			return fmt.Errorf("feature %q has no record", id)
		}
		if !f.State.Valid() {
			return fmt.Errorf("feature %q has unrecognized state %q", id, f.State)
		}
		if f.ReviewCycleCount < 0 {
			return fmt.Errorf("feature %q has negative cycle count %d", id, f.ReviewCycleCount)
		}
	}
	if p.CurrentFeatureID != "" {
		if _, ok := p.Features[p.CurrentFeatureID]; !ok {
			return fmt.Errorf("currentFeatureId %q has no feature record", p.CurrentFeatureID)
		}
	}
	return nil
}
