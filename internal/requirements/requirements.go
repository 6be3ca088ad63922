// Package requirements reads the external requirements list the
// pipeline is initialized from, and flips completion flags on it as
// features reach their terminal state.
package requirements

import (
	"fmt"
	"os"
	"sort"

	"github.com/lucasnoah/featureforge/internal/state"
)

// Descriptor is one feature entry in the requirements list.
type Descriptor struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Acceptance           []string `json:"acceptance,omitempty"`
	Priority             int      `json:"priority"`
	RequiresBackendWork  bool     `json:"requiresBackendWork"`
	RequiresFrontendWork bool     `json:"requiresFrontendWork"`
	Completed            bool     `json:"completed"`
}

// List is the ordered requirements file. Mutations write the whole
// file back atomically, preserving entry order.
type List struct {
	path  string
	items []Descriptor
}

// Load reads and validates the requirements file at path.
func Load(path string) (*List, error) {
	var items []Descriptor
	if err := state.ReadJSON(path, &items); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("requirements file %s not found", path)
		}
		return nil, fmt.Errorf("requirements file %s: %w", path, err)
	}

	seen := make(map[string]bool)
	for i, d := range items {
		if d.ID == "" {
			return nil, fmt.Errorf("requirements file %s: entry %d has no id", path, i)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("requirements file %s: duplicate id %q", path, d.ID)
		}
		seen[d.ID] = true
	}
	return &List{path: path, items: items}, nil
}

// Path returns the backing file path.
func (l *List) Path() string {
	return l.path
}

// Items returns all descriptors in file order.
func (l *List) Items() []Descriptor {
	return l.items
}

// Get returns the descriptor for id.
func (l *List) Get(id string) (*Descriptor, bool) {
	for i := range l.items {
		if l.items[i].ID == id {
			return &l.items[i], true
		}
	}
	return nil, false
}

// Ordered returns all descriptors sorted by ascending priority, ties
// broken by position in the file. This is the feature scheduling order.
func (l *List) Ordered() []Descriptor {
	out := make([]Descriptor, len(l.items))
	copy(out, l.items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// MarkComplete sets the completion flag for id and persists the list.
func (l *List) MarkComplete(id string) error {
	d, ok := l.Get(id)
	if !ok {
		return fmt.Errorf("requirement %q not found in %s", id, l.path)
	}
	d.Completed = true
	if err := state.WriteJSON(l.path, l.items); err != nil {
		return fmt.Errorf("persist requirements: %w", err)
	}
	return nil
}
