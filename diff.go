package vtree

// EqualFunc decides whether two entries at the same path should be treated
// as unchanged by Diff. The default is DefaultEquals; callers may supply
// their own.
type EqualFunc func(a, b Entry) bool

// DefaultEquals treats two directories as always equal (directories are
// not diffed by metadata) and otherwise requires Size, MTime (compared at
// second resolution) and Mode to all match.
func DefaultEquals(a, b Entry) bool {
	if a.IsDir() && b.IsDir() {
		return true
	}
	if a.IsDir() != b.IsDir() {
		return false
	}
	return a.Size == b.Size && a.MTime.Unix() == b.MTime.Unix() && a.Mode == b.Mode
}

// Diff computes an ordered, minimal patch between two sorted, unique entry
// arrays. The result is in canonical order: all removals first
// in reverse (descending) encounter order, then all additions in
// (ascending) encounter order. That ordering guarantees a directory is
// never removed before its contents, never created after its children, and
// a file can be replaced by a directory at the same path through a valid
// unlink-then-mkdir pair.
func Diff(self, other []Entry, equals EqualFunc) Patch {
	if equals == nil {
		equals = DefaultEquals
	}

	var removals, additions []Change
	i, j := 0, 0
	for i < len(self) && j < len(other) {
		a, b := self[i], other[j]
		switch {
		case a.Path < b.Path:
			removals = append(removals, removeChange(a))
			i++
		case a.Path > b.Path:
			additions = append(additions, addChange(b))
			j++
		default: // equal paths
			if !equals(a, b) {
				if a.IsDir() == b.IsDir() {
					additions = append(additions, Change{Op: OpChange, Path: b.Path, Entry: b})
				} else {
					removals = append(removals, removeChange(a))
					additions = append(additions, addChange(b))
				}
			}
			i++
			j++
		}
	}
	for ; i < len(self); i++ {
		removals = append(removals, removeChange(self[i]))
	}
	for ; j < len(other); j++ {
		additions = append(additions, addChange(other[j]))
	}

	reverse(removals)

	patch := make(Patch, 0, len(removals)+len(additions))
	patch = append(patch, removals...)
	patch = append(patch, additions...)
	return patch
}

func addChange(e Entry) Change {
	if e.IsDir() {
		return Change{Op: OpMkdir, Path: e.Path, Entry: e}
	}
	return Change{Op: OpCreate, Path: e.Path, Entry: e}
}

func removeChange(e Entry) Change {
	if e.IsDir() {
		return Change{Op: OpRmdir, Path: e.Path, Entry: e}
	}
	return Change{Op: OpUnlink, Path: e.Path, Entry: e}
}

func reverse(cs []Change) {
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
	}
}

// Delegate is a record of five optional callables keyed by op name, used by
// Apply to replicate a patch's side effects. Each callable receives the
// path joined under inDir, the path joined under outDir, and the relative
// path itself.
type Delegate struct {
	Mkdir  func(inPath, outPath, relPath string) error
	Create func(inPath, outPath, relPath string) error
	Change func(inPath, outPath, relPath string) error
	Rmdir  func(inPath, outPath, relPath string) error
	Unlink func(inPath, outPath, relPath string) error
}

// fieldFor names the Delegate struct field backing op, for error messages.
func fieldFor(op Op) string {
	switch op {
	case OpMkdir:
		return "Mkdir"
	case OpCreate:
		return "Create"
	case OpChange:
		return "Change"
	case OpRmdir:
		return "Rmdir"
	case OpUnlink:
		return "Unlink"
	default:
		return "?"
	}
}

// Apply invokes delegate.op(inDir/path, outDir/path, path) for every change
// in patch, in the order supplied. A patch in canonical order applied this
// way is the thing that guarantees parent/child soundness; Apply
// itself does not reorder.
func Apply(patch Patch, inDir, outDir string, delegate Delegate) error {
	for _, c := range patch {
		var fn func(string, string, string) error
		switch c.Op {
		case OpMkdir:
			fn = delegate.Mkdir
		case OpCreate:
			fn = delegate.Create
		case OpChange:
			fn = delegate.Change
		case OpRmdir:
			fn = delegate.Rmdir
		case OpUnlink:
			fn = delegate.Unlink
		}
		if fn == nil {
			return &UnknownOperationError{Op: c.Op, Field: fieldFor(c.Op)}
		}
		in := JoinAbs(inDir, c.Path)
		out := JoinAbs(outDir, c.Path)
		if err := fn(in, out, c.Path); err != nil {
			return newPathError(string(c.Op), c.Path, err)
		}
	}
	return nil
}
