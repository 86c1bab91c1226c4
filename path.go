package vtree

import (
	"sort"
	"strings"
	"sync"
)

// normCache memoizes Normalize results. It is process-wide and append-only,
// so it is safe to share across trees without locking on the read path.
var normCache sync.Map // map[string]normResult

type normResult struct {
	path string
	err  error
}

// Normalize splits p on "/", folds away "." and empty segments, and
// collapses ".." segments. A ".." that would escape the root is reported as
// ErrInvalidPath. The result never has a leading or trailing separator.
func Normalize(p string) (string, error) {
	if cached, ok := normCache.Load(p); ok {
		r := cached.(normResult)
		return r.path, r.err
	}

	segments := strings.Split(p, "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) == 0 {
				err := newPathError("normalize", p, ErrInvalidPath)
				normCache.Store(p, normResult{err: err})
				return "", err
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}

	result := strings.Join(out, "/")
	normCache.Store(p, normResult{path: result})
	return result, nil
}

// MustNormalize is Normalize but panics on error; it exists for call sites
// that have already validated the path (e.g. re-normalizing an Entry.Path
// pulled from a sorted array).
func MustNormalize(p string) string {
	n, err := Normalize(p)
	if err != nil {
		panic(err)
	}
	return n
}

// CleanRoot validates and trims a tree root: it must be a non-empty string
// with any trailing separator stripped. Existence on disk is checked by the
// caller, which holds the afero.Fs.
func CleanRoot(root string) (string, error) {
	if root == "" {
		return "", newPathError("root", root, ErrInvalidPath)
	}
	for len(root) > 1 && strings.HasSuffix(root, "/") {
		root = root[:len(root)-1]
	}
	return root, nil
}

// Join joins a root-relative path with a child segment, producing a
// normalized root-relative path.
func Join(base, child string) string {
	if base == "" {
		return MustNormalize(child)
	}
	if child == "" {
		return base
	}
	return MustNormalize(base + "/" + child)
}

// JoinAbs joins an absolute (or otherwise externally-rooted) directory
// path with a normalized tree-relative path, without re-normalizing dir
// itself. Used to translate tree-relative paths into filesystem paths for
// I/O and for Apply's delegate callbacks.
func JoinAbs(dir, relative string) string {
	if relative == "" {
		return dir
	}
	if dir == "" || dir == "/" {
		return "/" + relative
	}
	return strings.TrimSuffix(dir, "/") + "/" + relative
}

// Dir returns the parent of a normalized relative path, or "" for a
// top-level path (whose parent is the tree root).
func Dir(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return ""
	}
	return p[:idx]
}

// Base returns the final segment of a normalized relative path.
func Base(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// IsAncestor reports whether ancestor is a strict prefix-ancestor of p,
// i.e. p == ancestor + "/" + something.
func IsAncestor(ancestor, p string) bool {
	if ancestor == "" {
		return p != ""
	}
	return strings.HasPrefix(p, ancestor+"/")
}

// IsAncestorOrSelf reports whether ancestor equals p or is a strict
// prefix-ancestor of it.
func IsAncestorOrSelf(ancestor, p string) bool {
	return ancestor == p || IsAncestor(ancestor, p)
}

// CommonPrefix returns the longest shared ancestor directory of a and b, as
// normalized relative paths. "" means only the root is shared.
func CommonPrefix(a, b string) string {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	i := 0
	for i < n && as[i] == bs[i] {
		i++
	}
	return strings.Join(as[:i], "/")
}

// RelativeTo rewrites p (a path within the tree rooted at cwd) to be
// relative to cwd. p must equal cwd or be a descendant of it.
func RelativeTo(cwd, p string) string {
	if cwd == "" {
		return p
	}
	if p == cwd {
		return ""
	}
	return strings.TrimPrefix(p, cwd+"/")
}

// searchPaths returns the index at which path either is found (ok=true) or
// should be inserted to keep entries sorted ascending and unique.
func searchPaths(entries []Entry, path string) (idx int, ok bool) {
	idx = sort.Search(len(entries), func(i int) bool {
		return entries[i].Path >= path
	})
	ok = idx < len(entries) && entries[idx].Path == path
	return idx, ok
}

// findEntry binary-searches entries for an exact path match.
func findEntry(entries []Entry, path string) (Entry, bool) {
	idx, ok := searchPaths(entries, path)
	if !ok {
		return Entry{}, false
	}
	return entries[idx], true
}

// insertEntry inserts e into entries, preserving the sorted-unique
// invariant. If an entry at the same path already exists it is replaced.
func insertEntry(entries []Entry, e Entry) []Entry {
	idx, ok := searchPaths(entries, e.Path)
	if ok {
		entries[idx] = e
		return entries
	}
	entries = append(entries, Entry{})
	copy(entries[idx+1:], entries[idx:])
	entries[idx] = e
	return entries
}

// removeEntry deletes the entry at path, if present, preserving order.
func removeEntry(entries []Entry, path string) []Entry {
	idx, ok := searchPaths(entries, path)
	if !ok {
		return entries
	}
	return append(entries[:idx], entries[idx+1:]...)
}

// childrenOf returns the immediate children of dir from a sorted entries
// array: entries whose Dir(Path) == dir.
func childrenOf(entries []Entry, dir string) []Entry {
	var out []Entry
	for _, e := range entries {
		if Dir(e.Path) == dir {
			out = append(out, e)
		}
	}
	return out
}

// descendantsOf returns every entry strictly under dir (dir == "" means the
// whole tree), in sorted order.
func descendantsOf(entries []Entry, dir string) []Entry {
	var out []Entry
	for _, e := range entries {
		if IsAncestor(dir, e.Path) {
			out = append(out, e)
		}
	}
	return out
}

// chdirVia is the shared chdir() implementation for tree variants that
// don't need anything fancier than "a Projection scoped to p": ManualTree,
// SourceTree and WritableTree all resolve their own Chdir this way.
func chdirVia(t Tree, p string) (Tree, error) {
	rel, err := Normalize(p)
	if err != nil {
		return nil, err
	}
	return NewProjection(t, WithCwd(rel))
}

// childRegistrar is implemented by trees that maintain a childSet for
// reread-propagation: the weak child-set back from a parent tree.
type childRegistrar interface {
	registerChild(onReread func()) childRegistration
}

// childRegistration lets a child undo its registration; unused
// registrations are harmless (the parent just holds an extra no-longer-
// referenced callback), which is the same leak profile a real weak
// reference would have if nothing ever collected it.
type childRegistration func()
