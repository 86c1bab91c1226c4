package vtree

// Op names a single-change operation. The set is closed and matches the
// externally observable change format.
type Op string

const (
	OpMkdir  Op = "mkdir"
	OpCreate Op = "create"
	OpChange Op = "change"
	OpRmdir  Op = "rmdir"
	OpUnlink Op = "unlink"
)

// isRemoval reports whether op removes a path (as opposed to adding or
// updating one). Diff and the change tracker both use this split to
// produce canonical ordering.
func (op Op) isRemoval() bool {
	return op == OpRmdir || op == OpUnlink
}

// Change is one entry of a patch: an operation, the path it targets, and
// the entry describing the post-state (for removals, the pre-removal
// state, since there is no post-state to describe).
type Change struct {
	Op    Op
	Path  string
	Entry Entry
}

// Patch is an ordered sequence of changes. Canonical order: all
// removals first in descending path order, then all additions/updates in
// ascending path order.
type Patch []Change

// SortCanonical reorders p in place into the canonical order.
func (p Patch) SortCanonical() {
	removals := p[:0:0]
	additions := p[:0:0]
	for _, c := range p {
		if c.Op.isRemoval() {
			removals = append(removals, c)
		} else {
			additions = append(additions, c)
		}
	}
	sortChangesDesc(removals)
	sortChangesAsc(additions)
	copy(p, removals)
	copy(p[len(removals):], additions)
}

func sortChangesAsc(cs []Change) {
	insertionSortChanges(cs, func(a, b string) bool { return a < b })
}

func sortChangesDesc(cs []Change) {
	insertionSortChanges(cs, func(a, b string) bool { return a > b })
}

// insertionSortChanges is a small stable sort; change lists in this package
// are never large enough to warrant sort.Slice's extra allocation for the
// less-function closure capture, and stability matters when two changes
// share a path (kind-switch remove+add pairs).
func insertionSortChanges(cs []Change, less func(a, b string) bool) {
	for i := 1; i < len(cs); i++ {
		j := i
		for j > 0 && less(cs[j].Path, cs[j-1].Path) {
			cs[j], cs[j-1] = cs[j-1], cs[j]
			j--
		}
	}
}
