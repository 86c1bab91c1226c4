package vtree

import (
	"sync/atomic"

	"github.com/spf13/afero"
)

// symlinkCapable backs the process-level can_symlink capability flag.
// Stored as an int32 so SetSymlinkCapability/SymlinkCapable never race
// with each other without needing a dedicated mutex for one bool.
var symlinkCapable int32 = 1

// SetSymlinkCapability sets the process-wide can_symlink flag. Callers
// typically set this once at startup from DetectSymlinkCapability's
// result; MergeTree's symlink-through optimization and WritableTree's
// directory-symlink grafts both consult it.
func SetSymlinkCapability(v bool) {
	if v {
		atomic.StoreInt32(&symlinkCapable, 1)
	} else {
		atomic.StoreInt32(&symlinkCapable, 0)
	}
}

// SymlinkCapable reports the current can_symlink flag.
func SymlinkCapable() bool {
	return atomic.LoadInt32(&symlinkCapable) != 0
}

// DetectSymlinkCapability probes fsys for real symlink support: it must
// implement afero.Linker and afero.LinkReader, and a round-trip
// symlink/readlink against the given probe directory must succeed. Purely
// in-memory filesystems (afero.MemMapFs) report false, since they have no
// OS-level symlink semantics to offer merge's symlink-through optimization
// or a real graft at SymlinkToFacade.
//
// afero is the sole I/O substrate here, so capability detection is a
// direct probe against it rather than a bridge through a separate
// filesystem interface: probe the backing filesystem once for a
// capability and cache the answer as a process-wide flag.
func DetectSymlinkCapability(fsys afero.Fs, probeDir string) bool {
	linker, ok := fsys.(afero.Linker)
	if !ok {
		return false
	}
	reader, ok := fsys.(afero.LinkReader)
	if !ok {
		return false
	}
	src := JoinAbs(probeDir, ".vtree-symlink-probe-src")
	dst := JoinAbs(probeDir, ".vtree-symlink-probe-dst")
	defer fsys.Remove(src)
	defer fsys.Remove(dst)

	if err := afero.WriteFile(fsys, src, []byte("x"), 0644); err != nil {
		return false
	}
	if err := linker.SymlinkIfPossible(src, dst); err != nil {
		return false
	}
	target, err := reader.ReadlinkIfPossible(dst)
	return err == nil && target == src
}
