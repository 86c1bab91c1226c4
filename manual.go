package vtree

import (
	"sort"
	"sync"
)

// ManualTree is a flat, sorted entry array with no disk access: the
// in-memory substrate Diff/Apply operate over, and the building block every
// other variant's Changes() method reduces to internally.
type ManualTree struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewManualTree builds a ManualTree from a copy of entries, sorted
// ascending by Path. Paths must be unique; duplicates are not removed.
func NewManualTree(entries []Entry) *ManualTree {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	return &ManualTree{entries: sorted}
}

func (t *ManualTree) Entries() ([]Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out, nil
}

func (t *ManualTree) Paths() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Path
	}
	return out
}

func (t *ManualTree) Stat(path string) (Entry, error) {
	p, err := Normalize(path)
	if err != nil {
		return Entry{}, err
	}
	if p == "" {
		return RootEntry, nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := findEntry(t.entries, p)
	if !ok {
		return Entry{}, newPathError("stat", path, ErrNoEntry)
	}
	return e, nil
}

func (t *ManualTree) Exists(path string) bool {
	_, err := t.Stat(path)
	return err == nil
}

func (t *ManualTree) ReadFile(path string) ([]byte, error) {
	return nil, newPathError("read", path, errNoContent)
}

func (t *ManualTree) ReadDir(path string) ([]Entry, error) {
	p, err := Normalize(path)
	if err != nil {
		return nil, err
	}
	if p != "" {
		if _, ok := t.Stat(p); ok != nil {
			return nil, newPathError("readdir", path, ErrNoEntry)
		}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return childrenOf(t.entries, p), nil
}

func (t *ManualTree) Chdir(path string) (Tree, error) {
	return chdirVia(t, path)
}

func (t *ManualTree) Filtered(opts ...ProjectionOption) (*Projection, error) {
	return NewProjection(t, opts...)
}

// Changes on a bare ManualTree has no prior snapshot to diff against, so it
// always returns the empty patch; use Diff directly to compare two
// ManualTrees.
func (t *ManualTree) Changes() (Patch, error) {
	return nil, nil
}

func (t *ManualTree) Reread(newRoot ...string) error {
	return nil
}

// Diff compares this tree's entries against other's, using equals (or
// DefaultEquals if nil).
func (t *ManualTree) Diff(other *ManualTree, equals EqualFunc) Patch {
	self, _ := t.Entries()
	theirs, _ := other.Entries()
	return Diff(self, theirs, equals)
}

// errNoContent is the sentinel for ManualTree.ReadFile: a ManualTree is
// structure only, with no backing bytes to read.
var errNoContent = errorString("manual tree has no backing content")

type errorString string

func (e errorString) Error() string { return string(e) }
