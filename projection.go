package vtree

import (
	"sort"
)

// ProjectionOption configures a Projection at construction or via the
// matching Set* method.
type ProjectionOption func(*Projection) error

// WithCwd scopes the projection to a subdirectory of its parent. cwd
// always composes with files/include/exclude.
func WithCwd(cwd string) ProjectionOption {
	return func(p *Projection) error {
		rel, err := Normalize(cwd)
		if err != nil {
			return err
		}
		p.cwd = rel
		return nil
	}
}

// WithFiles restricts the projection to an explicit allow-list of paths,
// relative to cwd. Mutually exclusive with WithInclude/WithExclude.
func WithFiles(files []string) ProjectionOption {
	return func(p *Projection) error {
		if p.include != nil || p.exclude != nil {
			return newPathError("filtered", "", ErrIncompatibleFilters)
		}
		norm := make([]string, len(files))
		for i, f := range files {
			n, err := Normalize(f)
			if err != nil {
				return err
			}
			norm[i] = n
		}
		p.files = norm
		p.hasFiles = true
		return nil
	}
}

// WithInclude adds matchers a path must satisfy at least one of (when the
// include list is non-empty). Mutually exclusive with WithFiles.
func WithInclude(ms ...Matcher) ProjectionOption {
	return func(p *Projection) error {
		if p.hasFiles {
			return newPathError("filtered", "", ErrIncompatibleFilters)
		}
		p.include = append(p.include, ms...)
		return nil
	}
}

// WithExclude adds matchers that reject a path (or any of its
// descendants). Mutually exclusive with WithFiles.
func WithExclude(ms ...Matcher) ProjectionOption {
	return func(p *Projection) error {
		if p.hasFiles {
			return newPathError("filtered", "", ErrIncompatibleFilters)
		}
		p.exclude = append(p.exclude, ms...)
		return nil
	}
}

// Projection is a non-owning, filtered view over a parent tree. It holds
// a previous-entries snapshot so Changes() can report cross-build diffs
// the way SourceTree does.
type Projection struct {
	parent Tree

	cwd      string
	hasFiles bool
	files    []string
	include  []Matcher
	exclude  []Matcher

	previous []Entry
	children *childSet
	undoReg  childRegistration
}

// NewProjection builds a Projection over parent with the given options
// applied in order. Constructing with no options at all yields an
// identity view: entries() equal to parent's.
func NewProjection(parent Tree, opts ...ProjectionOption) (*Projection, error) {
	p := &Projection{parent: parent, children: newChildSet()}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if reg, ok := parent.(childRegistrar); ok {
		p.undoReg = reg.registerChild(func() { p.children.notify() })
	}
	return p, nil
}

// SetFiles replaces the files filter, same mutual-exclusion rule as the
// constructor option.
func (p *Projection) SetFiles(files []string) error {
	p.hasFiles = false
	return WithFiles(files)(p)
}

// SetInclude replaces the include matcher list.
func (p *Projection) SetInclude(ms ...Matcher) error {
	if p.hasFiles {
		return newPathError("filtered", "", ErrIncompatibleFilters)
	}
	p.include = ms
	return nil
}

// SetExclude replaces the exclude matcher list.
func (p *Projection) SetExclude(ms ...Matcher) error {
	if p.hasFiles {
		return newPathError("filtered", "", ErrIncompatibleFilters)
	}
	p.exclude = ms
	return nil
}

// matches applies files/exclude/include precedence to rel, a path already
// expressed relative to cwd.
func (p *Projection) matches(rel string) bool {
	if rel == "" {
		return false // the cwd is the projection's root, never one of its own entries
	}
	if p.hasFiles {
		for _, f := range p.files {
			if f == rel {
				return true
			}
		}
		return false
	}
	for anc := Dir(rel); ; anc = Dir(anc) {
		if anyMatch(p.exclude, anc) {
			return false
		}
		if anc == "" {
			break
		}
	}
	if anyMatch(p.exclude, rel) {
		return false
	}
	if len(p.include) > 0 && !anyMatch(p.include, rel) {
		return false
	}
	return true
}

// shouldDescend decides, for a directory that did not itself match,
// whether it is worth recursing into looking for matching descendants:
// always unless excluded, and when every include matcher is a glob, only
// if the glob's partial match says the directory could still contain a
// hit.
func (p *Projection) shouldDescend(rel string) bool {
	for anc := rel; ; anc = Dir(anc) {
		if anyMatch(p.exclude, anc) {
			return false
		}
		if anc == "" {
			break
		}
	}
	if p.hasFiles {
		for _, f := range p.files {
			if f == rel || IsAncestorOrSelf(rel, f) {
				return true
			}
		}
		return false
	}
	if len(p.include) == 0 {
		return true
	}
	if allGlobs(p.include) {
		for _, m := range p.include {
			if m.matchPrefix(rel) {
				return true
			}
		}
		return false
	}
	return true
}

// collect recursively descends parentDir (a path in the parent tree's own
// namespace), rewriting paths relative to cwd and emitting a directory
// entry only once a matching descendant has actually been found below it
// — empty, non-matching ancestor directories never surface.
func (p *Projection) collect(parentDir string) []Entry {
	children, err := p.parent.ReadDir(parentDir)
	if err != nil {
		return nil
	}
	var out []Entry
	for _, e := range children {
		rel := RelativeTo(p.cwd, e.Path)
		if e.IsDir() {
			matched := p.matches(rel)
			var sub []Entry
			if matched || p.shouldDescend(rel) {
				sub = p.collect(e.Path)
			}
			if matched || len(sub) > 0 {
				out = append(out, e.WithPath(rel))
				out = append(out, sub...)
			}
		} else if p.matches(rel) {
			out = append(out, e.WithPath(rel))
		}
	}
	return out
}

func (p *Projection) Entries() ([]Entry, error) {
	out := p.collect(p.cwd)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (p *Projection) Paths() []string {
	entries, _ := p.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func (p *Projection) Stat(rp string) (Entry, error) {
	rel, err := Normalize(rp)
	if err != nil {
		return Entry{}, err
	}
	if rel == "" {
		return RootEntry, nil
	}
	if !p.matches(rel) {
		return Entry{}, newPathError("stat", rp, ErrNoEntry)
	}
	e, err := p.parent.Stat(Join(p.cwd, rel))
	if err != nil {
		return Entry{}, err
	}
	return e.WithPath(rel), nil
}

func (p *Projection) Exists(rp string) bool {
	_, err := p.Stat(rp)
	return err == nil
}

func (p *Projection) ReadFile(rp string) ([]byte, error) {
	rel, err := Normalize(rp)
	if err != nil {
		return nil, err
	}
	if !p.matches(rel) {
		return nil, newPathError("read", rp, ErrNoEntry)
	}
	return p.parent.ReadFile(Join(p.cwd, rel))
}

func (p *Projection) ReadDir(rp string) ([]Entry, error) {
	rel, err := Normalize(rp)
	if err != nil {
		return nil, err
	}
	entries, err := p.Entries()
	if err != nil {
		return nil, err
	}
	return childrenOf(entries, rel), nil
}

func (p *Projection) Chdir(rp string) (Tree, error) {
	rel, err := Normalize(rp)
	if err != nil {
		return nil, err
	}
	return NewProjection(p, WithCwd(rel))
}

func (p *Projection) Filtered(opts ...ProjectionOption) (*Projection, error) {
	return NewProjection(p, opts...)
}

// Changes diffs the entries snapshotted at the last Reread against the
// current filtered view.
func (p *Projection) Changes() (Patch, error) {
	current, err := p.Entries()
	if err != nil {
		return nil, err
	}
	return Diff(p.previous, current, DefaultEquals), nil
}

// Reread snapshots the current filtered entries for the next Changes()
// call and cascades the notification to any of this Projection's own
// children. Projections have no root of their own, so a newRoot argument
// is rejected.
func (p *Projection) Reread(newRoot ...string) error {
	if len(newRoot) > 0 && newRoot[0] != "" {
		return newPathError("reread", newRoot[0], ErrInvalidPath)
	}
	current, err := p.Entries()
	if err != nil {
		return err
	}
	p.previous = current
	p.children.notify()
	return nil
}

func (p *Projection) registerChild(onReread func()) childRegistration {
	id := p.children.register(onReread)
	return func() { p.children.deregister(id) }
}
