package vtree

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// resolved is what _find settles on for a path: either a plain entry of
// this tree, or a hop into another tree (an Internal link) together with
// the remaining sub-path to resolve there.
type resolved struct {
	entry Entry
	ok    bool

	via     Tree
	viaPath string
}

// find walks entries looking for the nearest ancestor-or-self of path that
// carries an Internal directory link, and if one is found, delegates the
// remainder of the path into that link's target tree. A
// direct hit with no link in the way resolves locally.
func find(entries []Entry, path string) resolved {
	if e, ok := findEntry(entries, path); ok {
		if e.Link != nil && e.Link.Kind == LinkInternal && e.LinkDir {
			return resolved{via: e.Link.Tree, viaPath: e.Link.Target}
		}
		return resolved{entry: e, ok: true}
	}

	// No direct hit: walk up looking for a directory-symlink ancestor that
	// should absorb the remaining suffix.
	for p := Dir(path); ; p = Dir(p) {
		e, ok := findEntry(entries, p)
		if ok && e.Link != nil && e.Link.Kind == LinkInternal && e.LinkDir {
			suffix := strings.TrimPrefix(path, p)
			suffix = strings.TrimPrefix(suffix, "/")
			return resolved{via: e.Link.Tree, viaPath: Join(e.Link.Target, suffix)}
		}
		if p == "" {
			break
		}
	}
	return resolved{ok: false}
}

// statThrough resolves path against entries, hopping through Internal
// directory links as needed. For an External-link file entry it returns
// the link entry itself; the external target is not statted (External
// links are followed only by readFileThrough).
func statThrough(entries []Entry, path string) (Entry, error) {
	r := find(entries, path)
	if r.via != nil {
		return r.via.Stat(r.viaPath)
	}
	if !r.ok {
		return Entry{}, newPathError("stat", path, ErrNoEntry)
	}
	return r.entry, nil
}

// readFileThrough resolves path the same way statThrough does, and for a
// File entry carrying an External link, reads from the link's absolute OS
// path instead of the tree's own root.
func readFileThrough(entries []Entry, fsys afero.Fs, root, path string) ([]byte, error) {
	r := find(entries, path)
	if r.via != nil {
		return r.via.ReadFile(r.viaPath)
	}
	if !r.ok {
		return nil, newPathError("read", path, ErrNoEntry)
	}
	if r.entry.Link != nil && r.entry.Link.Kind == LinkExternal {
		data, err := afero.ReadFile(fsys, r.entry.Link.Target)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		return data, nil
	}
	data, err := afero.ReadFile(fsys, JoinAbs(root, path))
	if err != nil {
		if isNotExist(err) {
			return nil, newPathError("read", path, ErrNoEntry)
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return data, nil
}

// entriesThroughSymlinks returns own plus, for every directory-symlink
// entry present, the linked subtree's entries cloned and path-prefixed
// back onto the symlink's own path, re-sorted.
func entriesThroughSymlinks(own []Entry) ([]Entry, error) {
	out := make([]Entry, len(own))
	copy(out, own)
	for _, e := range own {
		if e.Link == nil || e.Link.Kind != LinkInternal || !e.LinkDir {
			continue
		}
		sub, err := e.Link.Tree.Entries()
		if err != nil {
			return nil, err
		}
		for _, se := range sub {
			out = insertEntry(out, se.WithPath(Join(e.Path, se.Path)))
		}
	}
	return out, nil
}

func (t *WritableTree) Entries() ([]Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.mode == modeDelegating {
		return t.delegate.Entries()
	}
	return entriesThroughSymlinks(t.entries)
}

func (t *WritableTree) Paths() []string {
	entries, _ := t.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func (t *WritableTree) Stat(p string) (Entry, error) {
	rel, err := Normalize(p)
	if err != nil {
		return Entry{}, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.mode == modeDelegating {
		return t.delegate.Stat(rel)
	}
	if rel == "" {
		return RootEntry, nil
	}
	return statThrough(t.entries, rel)
}

func (t *WritableTree) Exists(p string) bool {
	_, err := t.Stat(p)
	return err == nil
}

func (t *WritableTree) ReadFile(p string) ([]byte, error) {
	rel, err := Normalize(p)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.mode == modeDelegating {
		return t.delegate.ReadFile(rel)
	}
	return readFileThrough(t.entries, t.fsys, t.root, rel)
}

func (t *WritableTree) ReadDir(p string) ([]Entry, error) {
	rel, err := Normalize(p)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.mode == modeDelegating {
		return t.delegate.ReadDir(rel)
	}
	if rel != "" {
		if _, err := statThrough(t.entries, rel); err != nil {
			return nil, err
		}
	}
	entries, err := entriesThroughSymlinks(t.entries)
	if err != nil {
		return nil, err
	}
	return childrenOf(entries, rel), nil
}

func (t *WritableTree) Chdir(p string) (Tree, error) {
	return chdirVia(t, p)
}

func (t *WritableTree) Filtered(opts ...ProjectionOption) (*Projection, error) {
	return NewProjection(t, opts...)
}

// Changes returns the tracker's accumulated patch in canonical order.
// Delegator mode has nothing of its own to report; the delegate's own
// Changes are folded in by UndoRootSymlink instead.
func (t *WritableTree) Changes() (Patch, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.mode == modeDelegating {
		return nil, nil
	}
	return t.tracker.snapshot(), nil
}

// Reread is rejected on a WritableTree with a new root: unlike SourceTree,
// a WritableTree's root is fixed once created; the only way to change
// what it points at is SymlinkToFacade.
//
// In Delegator mode the public call is a no-op over this tree's own local
// state (the delegate owns the real entries), but still cascades the
// notification to registered children.
func (t *WritableTree) Reread(newRoot ...string) error {
	if len(newRoot) > 0 && newRoot[0] != "" {
		return newPathError("reread", newRoot[0], ErrInvalidPath)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mode != modeDelegating {
		t.entries = nil
	}
	t.children.notify()
	return nil
}
