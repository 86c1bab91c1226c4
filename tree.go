package vtree

// Tree is the read capability set shared by every tree variant: ManualTree,
// SourceTree, WritableTree (including while in Delegator mode), and
// Projection.
type Tree interface {
	// Entries returns the tree's full, sorted, duplicate-free entry set,
	// including entries synthesized by crossing directory symlinks.
	// MergeTree fails on merge conflicts (ConflictingCapitalization,
	// ConflictingFileType, OverwriteRefused), SourceTree when a directory
	// scan fails, and WritableTree when a grafted tree's Entries fails;
	// ManualTree and Projection always return a nil error.
	Entries() ([]Entry, error)
	// Paths is a convenience projection of Entries onto their paths.
	Paths() []string
	// Stat looks up a single path, materializing lazily where the
	// variant supports it (SourceTree).
	Stat(path string) (Entry, error)
	// Exists is a cheap existence check; it may avoid a full scan where
	// the variant supports it (SourceTree).
	Exists(path string) bool
	// ReadFile returns the full contents of the file at path, following
	// Internal and External links as needed.
	ReadFile(path string) ([]byte, error)
	// ReadDir returns the immediate children of path (root is "").
	ReadDir(path string) ([]Entry, error)
	// Chdir returns a Tree scoped to path, implemented as a Projection
	// with cwd set.
	Chdir(path string) (Tree, error)
	// Filtered returns a Projection over this tree with the given
	// filter options applied.
	Filtered(opts ...ProjectionOption) (*Projection, error)
	// Changes returns the patch since the last reread barrier, in
	// canonical order.
	Changes() (Patch, error)
	// Reread invalidates caches and snapshots, optionally rebasing onto
	// a new root (only SourceTree accepts a non-empty newRoot).
	Reread(newRoot ...string) error
}

// MutableTree extends Tree with the write capability set exposed only by
// WritableTree.
type MutableTree interface {
	Tree

	Mkdir(path string) error
	Mkdirp(path string) error
	Rmdir(path string) error
	Unlink(path string) error
	Remove(path string) error
	Empty(path string) error
	WriteFile(path string, data []byte) error
	Symlink(externalTarget, path string) error
	SymlinkToFacade(targetTree Tree, targetPath, localPath string) error

	Start() error
	Stop() error
	UndoRootSymlink() error
}

// Compile-time assertions that every variant satisfies the capability sets
// it claims.
var (
	_ Tree        = (*ManualTree)(nil)
	_ Tree        = (*SourceTree)(nil)
	_ Tree        = (*Projection)(nil)
	_ Tree        = (*MergeTree)(nil)
	_ MutableTree = (*WritableTree)(nil)
)
