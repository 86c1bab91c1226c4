package vtree

import (
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// MergeOption configures a MergeTree at construction.
type MergeOption func(*MergeTree)

// WithOverwrite controls whether a file present in more than one input is
// allowed (later inputs win) or rejected with ErrOverwriteRefused.
// Default false.
func WithOverwrite(v bool) MergeOption {
	return func(t *MergeTree) { t.overwrite = v }
}

// MergeTree overlays an ordered list of input trees into one logical tree
// with deterministic precedence. It references, but does not
// own, the trees it is built from — NewMergeTreeFromPaths is the one path
// that does construct (and therefore owns, in the sense of being the only
// holder of) its inputs, by wrapping each string in a SourceTree.
type MergeTree struct {
	inputs    []Tree
	overwrite bool

	previous []Entry
	children *childSet
	undoRegs []childRegistration
}

// NewMergeTree overlays pre-built trees. Later entries in inputs take
// precedence when overwrite is enabled.
func NewMergeTree(inputs []Tree, opts ...MergeOption) (*MergeTree, error) {
	if len(inputs) == 0 {
		return nil, newPathError("merge", "", ErrInvalidPath)
	}
	t := &MergeTree{inputs: inputs, children: newChildSet()}
	for _, opt := range opts {
		opt(t)
	}
	for _, in := range inputs {
		if reg, ok := in.(childRegistrar); ok {
			t.undoRegs = append(t.undoRegs, reg.registerChild(func() { t.children.notify() }))
		}
	}
	return t, nil
}

// NewMergeTreeFromPaths is the "strings become SourceTrees" constructor
// path: each root string is opened as its own SourceTree, in order.
func NewMergeTreeFromPaths(fsys afero.Fs, roots []string, opts ...MergeOption) (*MergeTree, error) {
	inputs := make([]Tree, len(roots))
	for i, r := range roots {
		st, err := NewSourceTree(fsys, r)
		if err != nil {
			return nil, err
		}
		inputs[i] = st
	}
	return NewMergeTree(inputs, opts...)
}

// owner pairs an input tree's index with the entry it contributes at one
// directory level.
type owner struct {
	idx   int
	entry Entry
}

// mergeDir implements _merge_relative_path for one directory level,
// recursing into every directory, whether present in one input or several.
func (t *MergeTree) mergeDir(baseDir string, indices []int) ([]Entry, error) {
	type listing struct {
		idx     int
		entries []Entry
	}
	var listings []listing
	for _, idx := range indices {
		entries, err := t.inputs[idx].ReadDir(baseDir)
		if err != nil {
			continue // missing directory in this input: treat as empty, not an error
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
		listings = append(listings, listing{idx: idx, entries: entries})
	}

	owners := make(map[string][]owner)
	var names []string
	lowerToOriginal := make(map[string]string)
	for _, l := range listings {
		for _, e := range l.entries {
			name := Base(e.Path)
			lower := strings.ToLower(name)
			if orig, seen := lowerToOriginal[lower]; seen {
				if orig != name {
					return nil, newPathError("merge", Join(baseDir, name), ErrConflictingCapitalization)
				}
			} else {
				lowerToOriginal[lower] = name
				names = append(names, name)
			}
			owners[name] = append(owners[name], owner{idx: l.idx, entry: e})
		}
	}
	sort.Strings(names)

	var out []Entry
	for _, name := range names {
		os := owners[name]
		kind := os[0].entry.Kind
		for _, o := range os[1:] {
			if o.entry.Kind != kind {
				return nil, newPathError("merge", Join(baseDir, name), ErrConflictingFileType)
			}
		}

		if kind == KindFile {
			if len(os) > 1 && !t.overwrite {
				return nil, newPathError("merge", Join(baseDir, name), ErrOverwriteRefused)
			}
			winner := os[len(os)-1]
			out = append(out, winner.entry)
			continue
		}

		// Directory present in exactly one input: the symlink-through
		// optimization only changes how this directory is materialized on
		// disk (a real symlink instead of a recursive copy), never what
		// Entries()/ReadDir() report, so descendants are always expanded
		// into out regardless of SymlinkCapable().
		if len(os) == 1 {
			o := os[0]
			e := o.entry
			if SymlinkCapable() {
				e.LinkDir = true
				e.Link = InternalLink(t.inputs[o.idx], e.Path)
			} else {
				e.LinkDir = false
				e.Link = nil
			}
			out = append(out, e)

			sub, err := t.mergeDir(e.Path, []int{o.idx})
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}

		first := os[0].entry
		first.LinkDir = false
		first.Link = nil
		out = append(out, first)

		childIndices := make([]int, len(os))
		for i, o := range os {
			childIndices[i] = o.idx
		}
		sub, err := t.mergeDir(first.Path, childIndices)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

func (t *MergeTree) mergedEntries() ([]Entry, error) {
	indices := make([]int, len(t.inputs))
	for i := range t.inputs {
		indices[i] = i
	}
	out, err := t.mergeDir("", indices)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (t *MergeTree) Entries() ([]Entry, error) {
	return t.mergedEntries()
}

func (t *MergeTree) Paths() []string {
	entries, err := t.Entries()
	if err != nil {
		return nil
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func (t *MergeTree) Stat(p string) (Entry, error) {
	rel, err := Normalize(p)
	if err != nil {
		return Entry{}, err
	}
	if rel == "" {
		return RootEntry, nil
	}
	entries, err := t.mergedEntries()
	if err != nil {
		return Entry{}, err
	}
	e, ok := findEntry(entries, rel)
	if !ok {
		return Entry{}, newPathError("stat", p, ErrNoEntry)
	}
	return e, nil
}

func (t *MergeTree) Exists(p string) bool {
	_, err := t.Stat(p)
	return err == nil
}

func (t *MergeTree) ReadFile(p string) ([]byte, error) {
	e, err := t.Stat(p)
	if err != nil {
		return nil, err
	}
	if e.Link != nil && e.Link.Kind == LinkInternal {
		return e.Link.Tree.ReadFile(e.Link.Target)
	}
	// File owned outright by the winning input: re-resolve which input
	// contributed it and read through that tree directly.
	rel, _ := Normalize(p)
	for i := len(t.inputs) - 1; i >= 0; i-- {
		if data, err := t.inputs[i].ReadFile(rel); err == nil {
			return data, nil
		}
	}
	return nil, newPathError("read", p, ErrNoEntry)
}

func (t *MergeTree) ReadDir(p string) ([]Entry, error) {
	rel, err := Normalize(p)
	if err != nil {
		return nil, err
	}
	entries, err := t.mergedEntries()
	if err != nil {
		return nil, err
	}
	return childrenOf(entries, rel), nil
}

func (t *MergeTree) Chdir(p string) (Tree, error) {
	return chdirVia(t, p)
}

func (t *MergeTree) Filtered(opts ...ProjectionOption) (*Projection, error) {
	return NewProjection(t, opts...)
}

// mergeEquals additionally compares LinkDir, so a directory transitioning
// between symlink-through and recursive-merge mode is surfaced as a
// change, not silently ignored as two equal directories would be under
// DefaultEquals.
func mergeEquals(a, b Entry) bool {
	if a.IsDir() && b.IsDir() {
		return a.LinkDir == b.LinkDir
	}
	return DefaultEquals(a, b)
}

func (t *MergeTree) Changes() (Patch, error) {
	current, err := t.mergedEntries()
	if err != nil {
		return nil, err
	}
	return Diff(t.previous, current, mergeEquals), nil
}

func (t *MergeTree) Reread(newRoot ...string) error {
	if len(newRoot) > 0 && newRoot[0] != "" {
		return newPathError("reread", newRoot[0], ErrInvalidPath)
	}
	current, err := t.mergedEntries()
	if err != nil {
		return err
	}
	t.previous = current
	t.children.notify()
	return nil
}

func (t *MergeTree) registerChild(onReread func()) childRegistration {
	id := t.children.register(onReread)
	return func() { t.children.deregister(id) }
}
