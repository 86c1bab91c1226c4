package vtree

import (
	"io/fs"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// SourceTree is a read-only view of a disk directory with lazy
// per-directory scanning and an in-memory cache, invalidated by Reread
//.
type SourceTree struct {
	mu sync.RWMutex

	fsys afero.Fs
	root string

	scanned  map[string]struct{}
	entries  []Entry
	previous []Entry

	children *childSet
}

// NewSourceTree opens a read-only view of root on fsys. root must already
// exist; it is not created.
func NewSourceTree(fsys afero.Fs, root string) (*SourceTree, error) {
	root, err := CleanRoot(root)
	if err != nil {
		return nil, err
	}
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, newPathError("open", root, errors.Wrap(ErrNoEntry, err.Error()))
	}
	if !info.IsDir() {
		return nil, newPathError("open", root, ErrNotDir)
	}
	return &SourceTree{
		fsys:     fsys,
		root:     root,
		scanned:  make(map[string]struct{}),
		children: newChildSet(),
	}, nil
}

// scan lists the directory at root+p, stats each child, discards broken
// symlinks, and merges the results into entries preserving sort order. A
// missing directory on disk is not an error; it scans to an empty list
//.
func (t *SourceTree) scan(p string) ([]Entry, error) {
	abs := JoinAbs(t.root, p)
	infos, err := afero.ReadDir(t.fsys, abs)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "scan %s", abs)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	var fresh []Entry
	for _, info := range infos {
		if info == nil {
			continue // broken symlink: stat failed, discard
		}
		childPath := Join(p, info.Name())
		fresh = append(fresh, fromFileInfo(childPath, info))
	}

	t.mu.Lock()
	for _, e := range fresh {
		t.entries = insertEntry(t.entries, e)
	}
	t.scanned[p] = struct{}{}
	t.mu.Unlock()

	return fresh, nil
}

// ensureDir scans p if it has not already been scanned. It returns the
// newly scanned entries, or nil if p was already scanned.
func (t *SourceTree) ensureDir(p string) ([]Entry, error) {
	t.mu.RLock()
	_, done := t.scanned[p]
	t.mu.RUnlock()
	if done {
		return nil, nil
	}
	return t.scan(p)
}

// ensureSubtree scans p, then recursively every subdirectory beneath it.
func (t *SourceTree) ensureSubtree(p string) error {
	fresh, err := t.ensureDir(p)
	if err != nil {
		return err
	}
	if fresh == nil {
		t.mu.RLock()
		fresh = childrenOf(t.entries, p)
		t.mu.RUnlock()
	}
	for _, e := range fresh {
		if e.IsDir() && e.Link == nil {
			if err := t.ensureSubtree(e.Path); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *SourceTree) Entries() ([]Entry, error) {
	if err := t.ensureSubtree(""); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out, nil
}

func (t *SourceTree) Paths() []string {
	entries, _ := t.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func (t *SourceTree) Stat(p string) (Entry, error) {
	rel, err := Normalize(p)
	if err != nil {
		return Entry{}, err
	}
	if rel == "" {
		return RootEntry, nil
	}
	if _, err := t.ensureDir(Dir(rel)); err != nil {
		return Entry{}, err
	}
	t.mu.RLock()
	e, ok := findEntry(t.entries, rel)
	t.mu.RUnlock()
	if !ok {
		return Entry{}, newPathError("stat", p, ErrNoEntry)
	}
	return e, nil
}

// Exists avoids forcing a scan purely to answer existence: if the parent
// directory has not been scanned, it falls back to a direct stat on the
// filesystem.
func (t *SourceTree) Exists(p string) bool {
	rel, err := Normalize(p)
	if err != nil {
		return false
	}
	if rel == "" {
		return true
	}
	t.mu.RLock()
	_, parentScanned := t.scanned[Dir(rel)]
	t.mu.RUnlock()
	if parentScanned {
		t.mu.RLock()
		_, ok := findEntry(t.entries, rel)
		t.mu.RUnlock()
		return ok
	}
	_, err = t.fsys.Stat(JoinAbs(t.root, rel))
	return err == nil
}

func (t *SourceTree) ReadFile(p string) ([]byte, error) {
	rel, err := Normalize(p)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(t.fsys, JoinAbs(t.root, rel))
	if err != nil {
		if isNotExist(err) {
			return nil, newPathError("read", p, ErrNoEntry)
		}
		return nil, errors.Wrapf(err, "read %s", p)
	}
	return data, nil
}

func (t *SourceTree) ReadDir(p string) ([]Entry, error) {
	rel, err := Normalize(p)
	if err != nil {
		return nil, err
	}
	if _, err := t.ensureDir(rel); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return childrenOf(t.entries, rel), nil
}

func (t *SourceTree) Chdir(p string) (Tree, error) {
	return chdirVia(t, p)
}

func (t *SourceTree) Filtered(opts ...ProjectionOption) (*Projection, error) {
	return NewProjection(t, opts...)
}

// Changes diffs the snapshot taken at the last Reread against the current
// entries.
func (t *SourceTree) Changes() (Patch, error) {
	current, err := t.Entries()
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	previous := t.previous
	t.mu.RUnlock()
	return Diff(previous, current, DefaultEquals), nil
}

// Reread clears the scan cache, snapshots the current entries for the next
// Changes() call, and optionally rebases the tree onto a new root. Root
// changes are allowed on a SourceTree but rejected on a WritableTree,
// whose root is fixed once created.
func (t *SourceTree) Reread(newRoot ...string) error {
	t.mu.Lock()
	t.previous = t.entries
	t.entries = nil
	t.scanned = make(map[string]struct{})
	if len(newRoot) > 0 && newRoot[0] != "" {
		root, err := CleanRoot(newRoot[0])
		if err != nil {
			t.mu.Unlock()
			return err
		}
		t.root = root
	}
	t.mu.Unlock()
	t.children.notify()
	return nil
}

// isNotExist wraps fs.ErrNotExist checking so that either the stdlib
// sentinel or an afero-wrapped PathError matches.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func (t *SourceTree) registerChild(onReread func()) childRegistration {
	id := t.children.register(onReread)
	return func() { t.children.deregister(id) }
}
