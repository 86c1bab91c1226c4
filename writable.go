package vtree

import (
	"io/fs"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// TreeState is the WritableTree lifecycle: writes require Started, reads
// work in either state.
type TreeState int

const (
	StateStopped TreeState = iota
	StateStarted
)

type treeMode int

const (
	modeWritable treeMode = iota
	modeDelegating
)

// WritableTree owns an on-disk directory; mutating operations update both
// disk and an internal sorted entry array while accumulating a change
// tracker with live collapsing rules. Its root may be symlinked to
// another tree, which tags it into Delegator mode rather than promoting
// it to a different Go type — dynamic class switching expressed as a
// tagged mode field with dispatch-by-match.
type WritableTree struct {
	mu sync.RWMutex

	id   uuid.UUID
	fsys afero.Fs
	root string

	entries []Entry
	state   TreeState

	mode     treeMode
	delegate Tree

	tracker  *changeTracker
	children *childSet
}

// NewWritableTree creates (or adopts) a WritableTree rooted at root on
// fsys. The root is created if it does not already exist.
func NewWritableTree(fsys afero.Fs, root string) (*WritableTree, error) {
	root, err := CleanRoot(root)
	if err != nil {
		return nil, err
	}
	if info, err := fsys.Stat(root); err != nil {
		if err := fsys.MkdirAll(root, 0755); err != nil {
			return nil, errors.Wrapf(err, "create root %s", root)
		}
	} else if !info.IsDir() {
		return nil, newPathError("open", root, ErrNotDir)
	}
	return &WritableTree{
		id:       uuid.New(),
		fsys:     fsys,
		root:     root,
		tracker:  newChangeTracker(),
		children: newChildSet(),
		state:    StateStopped,
	}, nil
}

// RootPath exposes the on-disk root, used by SymlinkToFacade when it can
// materialize a real OS symlink between two disk-backed trees.
func (t *WritableTree) RootPath() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Start clears the change tracker and transitions to Started.
func (t *WritableTree) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracker.reset()
	t.state = StateStarted
	return nil
}

// Stop transitions to Stopped; reads still work.
func (t *WritableTree) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateStopped
	return nil
}

// checkWrite runs the common pre-write checks shared by every mutating
// operation: started, root-allowed, parent exists and is not a
// symlink, target-is-symlink-allowed.
func (t *WritableTree) checkWrite(p string, allowRoot, allowSymlinks bool) (string, error) {
	if t.state != StateStarted {
		return "", newPathError("write", p, ErrStopped)
	}
	rel, err := Normalize(p)
	if err != nil {
		return "", err
	}
	if rel == "" && !allowRoot {
		return "", newPathError("write", p, ErrInvalidPath)
	}
	if rel != "" {
		parent := Dir(rel)
		if parent != "" {
			pe, ok := findEntry(t.entries, parent)
			if !ok {
				return "", newPathError("write", p, ErrNoEntry)
			}
			if pe.Link != nil {
				return "", newPathError("write", p, ErrNoEntry)
			}
			if !pe.IsDir() {
				return "", newPathError("write", p, ErrNotDir)
			}
		}
	}
	if existing, ok := findEntry(t.entries, rel); ok && existing.Link != nil && !allowSymlinks {
		return "", newPathError("write", p, ErrSymlinkCross)
	}
	return rel, nil
}

// mutateTracked applies a structural change to the entries array and
// records it in the change tracker, atomically from the caller's point of
// view (both happen under the same lock acquisition in the caller).
func (t *WritableTree) mutateTracked(op Op, path string, entry Entry) {
	switch op {
	case OpMkdir, OpCreate, OpChange:
		t.entries = insertEntry(t.entries, entry)
	case OpRmdir, OpUnlink:
		t.entries = removeEntry(t.entries, path)
	}
	t.tracker.track(op, path, entry)
}

// Mkdir creates a directory. Fails with ErrExists if one is already
// present at p.
func (t *WritableTree) Mkdir(p string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rel, err := t.checkWrite(p, false, false)
	if err != nil {
		return err
	}
	if _, ok := findEntry(t.entries, rel); ok {
		return newPathError("mkdir", p, ErrExists)
	}
	if err := t.fsys.Mkdir(JoinAbs(t.root, rel), 0755); err != nil {
		return errors.Wrapf(err, "mkdir %s", p)
	}
	entry := dirEntry(rel, 0755, time.Now())
	t.mutateTracked(OpMkdir, rel, entry)
	return nil
}

// Mkdirp walks the segments of p, creating missing intermediate
// directories. It is idempotent on an existing directory and fails if a
// non-directory already occupies any segment.
func (t *WritableTree) Mkdirp(p string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateStarted {
		return newPathError("mkdirp", p, ErrStopped)
	}
	rel, err := Normalize(p)
	if err != nil {
		return err
	}
	if rel == "" {
		return nil
	}

	cur := ""
	for _, seg := range splitPath(rel) {
		cur = Join(cur, seg)
		if existing, ok := findEntry(t.entries, cur); ok {
			if !existing.IsDir() {
				return newPathError("mkdirp", p, ErrNotDir)
			}
			continue
		}
		if err := t.fsys.Mkdir(JoinAbs(t.root, cur), 0755); err != nil {
			if !isExistErr(err) {
				return errors.Wrapf(err, "mkdirp %s", p)
			}
		}
		t.mutateTracked(OpMkdir, cur, dirEntry(cur, 0755, time.Now()))
	}
	return nil
}

func splitPath(p string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			segs = append(segs, p[start:i])
			start = i + 1
		}
	}
	segs = append(segs, p[start:])
	return segs
}

func isExistErr(err error) bool {
	return errors.Is(err, fs.ErrExist)
}

// Rmdir removes an empty directory. Fails if the path is missing, is not a
// directory, still has children, or is a symlink (symlinks, including
// directory symlinks, must go through Unlink/Remove).
func (t *WritableTree) Rmdir(p string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rel, err := t.checkWrite(p, false, true)
	if err != nil {
		return err
	}
	existing, ok := findEntry(t.entries, rel)
	if !ok {
		return newPathError("rmdir", p, ErrNoEntry)
	}
	if !existing.IsDir() || existing.Link != nil {
		return newPathError("rmdir", p, ErrNotDir)
	}
	if len(childrenOf(t.entries, rel)) > 0 {
		return newPathError("rmdir", p, ErrNotEmpty)
	}
	if err := t.fsys.Remove(JoinAbs(t.root, rel)); err != nil {
		return errors.Wrapf(err, "rmdir %s", p)
	}
	t.mutateTracked(OpRmdir, rel, existing)
	return nil
}

// Unlink removes a file or symlink. A non-symlink directory cannot be
// unlinked (ErrPermission, matching POSIX convention); directory symlinks
// are permitted.
func (t *WritableTree) Unlink(p string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rel, err := t.checkWrite(p, false, true)
	if err != nil {
		return err
	}
	existing, ok := findEntry(t.entries, rel)
	if !ok {
		return newPathError("unlink", p, ErrNoEntry)
	}
	if existing.IsDir() && existing.Link == nil {
		return newPathError("unlink", p, ErrPermission)
	}
	if existing.Link == nil || existing.Link.Kind == LinkExternal {
		if err := t.fsys.Remove(JoinAbs(t.root, rel)); err != nil {
			return errors.Wrapf(err, "unlink %s", p)
		}
	}
	// Internal links are purely structural: nothing was ever materialized
	// on disk at rel for them, so there is nothing to remove there.
	t.mutateTracked(OpUnlink, rel, existing)
	return nil
}

// Remove dispatches to Unlink (files, symlinks) or Rmdir (real
// directories).
func (t *WritableTree) Remove(p string) error {
	rel, err := Normalize(p)
	if err != nil {
		return err
	}
	t.mu.RLock()
	e, ok := findEntry(t.entries, rel)
	t.mu.RUnlock()
	if !ok {
		return newPathError("remove", p, ErrNoEntry)
	}
	if e.IsDir() && e.Link == nil {
		return t.Rmdir(p)
	}
	return t.Unlink(p)
}

// Empty recursively removes the contents of a directory but not the
// directory itself. It is allowed on root and produces one change per
// removed entry.
func (t *WritableTree) Empty(p string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateStarted {
		return newPathError("empty", p, ErrStopped)
	}
	rel, err := Normalize(p)
	if err != nil {
		return err
	}
	if rel != "" {
		existing, ok := findEntry(t.entries, rel)
		if !ok {
			return newPathError("empty", p, ErrNoEntry)
		}
		if !existing.IsDir() {
			return newPathError("empty", p, ErrNotDir)
		}
	}

	victims := descendantsOf(t.entries, rel)
	// Remove deepest-first so every directory is empty by the time its
	// own removal is attempted.
	for i := len(victims) - 1; i >= 0; i-- {
		v := victims[i]
		if v.Link == nil || v.Link.Kind == LinkExternal {
			if err := t.fsys.RemoveAll(JoinAbs(t.root, v.Path)); err != nil {
				return errors.Wrapf(err, "empty %s", p)
			}
		}
		op := OpUnlink
		if v.IsDir() && v.Link == nil {
			op = OpRmdir
		}
		t.mutateTracked(op, v.Path, v)
	}
	return nil
}

// WriteFile writes data at p. If an existing entry's checksum already
// matches, the call is a no-op: no disk write, no tracked change, and the
// prior mtime/size are left untouched. Otherwise the prior mode is
// preserved if one existed.
//
// Writing through an existing External-link entry writes to the link's
// absolute target and updates the tracked entry's own metadata to match,
// keeping the in-memory view consistent with what was just written rather
// than leaving it stale.
func (t *WritableTree) WriteFile(p string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rel, err := t.checkWrite(p, false, true)
	if err != nil {
		return err
	}

	existing, existed := findEntry(t.entries, rel)
	sum := checksumBytes(data)
	if existed && existing.HasChecksum() && existing.Checksum == sum && (existing.Link == nil || existing.Link.Kind != LinkExternal) {
		return nil
	}

	abs := JoinAbs(t.root, rel)
	if existed && existing.Link != nil && existing.Link.Kind == LinkExternal {
		abs = existing.Link.Target
	}

	mode := fs.FileMode(0644)
	if existed {
		mode = existing.Mode
	}
	if err := afero.WriteFile(t.fsys, abs, data, mode); err != nil {
		return errors.Wrapf(err, "write %s", p)
	}

	newEntry := fileEntry(rel, mode, int64(len(data)), time.Now()).WithChecksum(sum)
	if existed {
		newEntry.Link = existing.Link
	}
	op := OpCreate
	if existed {
		op = OpChange
	}
	t.mutateTracked(op, rel, newEntry)
	return nil
}

// Symlink inserts a file-kind entry linking to an external absolute path.
// A real OS-level symlink is created best-effort when the backing afero.Fs
// supports it; virtual filesystems (e.g. afero.MemMapFs) silently skip the
// disk-level step since the logical Entry is what diff/apply/read actually
// operate on.
func (t *WritableTree) Symlink(externalTarget, p string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rel, err := t.checkWrite(p, false, false)
	if err != nil {
		return err
	}
	if _, ok := findEntry(t.entries, rel); ok {
		return newPathError("symlink", p, ErrExists)
	}

	if linker, ok := t.fsys.(afero.Linker); ok {
		_ = linker.SymlinkIfPossible(externalTarget, JoinAbs(t.root, rel))
	}

	entry := Entry{Path: rel, Kind: KindFile, Mode: fs.ModeSymlink | 0777, MTime: time.Now(), Link: ExternalLink(externalTarget)}
	t.mutateTracked(OpCreate, rel, entry)
	return nil
}

// SymlinkToFacade grafts another tree into this one.
//
// local == "" is the root-symlink case: this tree must currently be empty,
// after which it is tagged into Delegator mode — reads forward to
// target.Chdir(targetSub) until UndoRootSymlink reverses it. A real OS
// symlink replacing the root directory is only attempted when target
// exposes a disk root (implements rootPather); purely in-memory trees
// (ManualTree, a filtered Projection of one, …) skip the disk-level step
// and the delegation stays logical.
//
// local != "" grafts target at targetSub into this tree as an ordinary
// entry carrying an Internal Link. This is purely a structural graft: no
// disk artifact is created for it here. Materializing it as a real
// symlink-or-copy is deferred to Apply's delegate, which is the only place
// that actually knows the capability flag and has a destination directory
// to write into.
func (t *WritableTree) SymlinkToFacade(target Tree, targetSub, local string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateStarted {
		return newPathError("symlink_to_facade", local, ErrStopped)
	}

	if local == "" {
		if len(t.entries) > 0 {
			return newPathError("symlink_to_facade", local, ErrNotEmpty)
		}
		delegate, err := target.Chdir(targetSub)
		if err != nil {
			return err
		}
		if rp, ok := target.(rootPather); ok {
			if err := t.fsys.RemoveAll(t.root); err == nil {
				if linker, ok := t.fsys.(afero.Linker); ok {
					_ = linker.SymlinkIfPossible(JoinAbs(rp.RootPath(), targetSub), t.root)
				}
			}
		}
		t.mode = modeDelegating
		t.delegate = delegate
		return nil
	}

	rel, err := t.checkWrite(local, false, false)
	if err != nil {
		return err
	}
	if _, ok := findEntry(t.entries, rel); ok {
		return newPathError("symlink_to_facade", local, ErrExists)
	}
	targetEntry, err := target.Stat(targetSub)
	if err != nil {
		return newPathError("symlink_to_facade", local, ErrNoEntry)
	}

	if targetEntry.IsDir() {
		childTree, err := target.Chdir(targetSub)
		if err != nil {
			return err
		}
		entry := Entry{Path: rel, Kind: KindDirectory, Mode: fs.ModeDir | 0755, MTime: time.Now(),
			Link: InternalLink(childTree, ""), LinkDir: true}
		t.mutateTracked(OpMkdir, rel, entry)
		return nil
	}

	entry := Entry{Path: rel, Kind: KindFile, Mode: targetEntry.Mode, MTime: time.Now(),
		Link: InternalLink(target, targetSub)}
	t.mutateTracked(OpCreate, rel, entry)
	return nil
}

// UndoRootSymlink reverses a root SymlinkToFacade: the delegate's
// accumulated changes, plus the removal of everything the delegate still
// holds, are folded back through this tree's own collapsing tracker, then
// the tree returns to ordinary Writable mode with a freshly emptied root
//.
func (t *WritableTree) UndoRootSymlink() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mode != modeDelegating {
		return newPathError("undo_root_symlink", "", ErrInvalidPath)
	}

	delegateChanges, err := t.delegate.Changes()
	if err != nil {
		return err
	}
	delegateEntries, err := t.delegate.Entries()
	if err != nil {
		return err
	}
	removals := Diff(delegateEntries, nil, DefaultEquals)

	combined := make(Patch, 0, len(delegateChanges)+len(removals))
	combined = append(combined, delegateChanges...)
	combined = append(combined, removals...)
	combined.SortCanonical()

	if err := t.fsys.RemoveAll(t.root); err != nil {
		return errors.Wrapf(err, "undo_root_symlink")
	}
	if err := t.fsys.MkdirAll(t.root, 0755); err != nil {
		return errors.Wrapf(err, "undo_root_symlink")
	}

	t.entries = nil
	t.mode = modeWritable
	t.delegate = nil
	t.tracker.reset()
	for _, c := range combined {
		t.mutateTracked(c.Op, c.Path, c.Entry)
	}
	return nil
}

// rootPather is implemented by disk-backed trees that can name their own
// root path, used by SymlinkToFacade to decide whether a real OS symlink
// can stand in for the logical delegation.
type rootPather interface {
	RootPath() string
}

func (t *WritableTree) registerChild(onReread func()) childRegistration {
	id := t.children.register(onReread)
	return func() { t.children.deregister(id) }
}
