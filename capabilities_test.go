package vtree

import (
	"testing"

	"github.com/spf13/afero"
)

func TestSymlinkCapabilityFlagRoundTrip(t *testing.T) {
	defer SetSymlinkCapability(true)

	SetSymlinkCapability(false)
	if SymlinkCapable() {
		t.Fatal("expected SymlinkCapable() false after SetSymlinkCapability(false)")
	}
	SetSymlinkCapability(true)
	if !SymlinkCapable() {
		t.Fatal("expected SymlinkCapable() true after SetSymlinkCapability(true)")
	}
}

func TestDetectSymlinkCapabilityOnMemMapFs(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := fsys.MkdirAll("/probe", 0755); err != nil {
		t.Fatal(err)
	}
	if DetectSymlinkCapability(fsys, "/probe") {
		t.Fatal("expected afero.MemMapFs to report no symlink capability")
	}
}

func TestDetectSymlinkCapabilityOnOsFs(t *testing.T) {
	fsys := afero.NewOsFs()
	dir := t.TempDir()
	got := DetectSymlinkCapability(fsys, dir)
	if !got {
		t.Skip("host filesystem does not support symlinks in this environment")
	}
	if _, err := fsys.Stat(JoinAbs(dir, ".vtree-symlink-probe-src")); err == nil {
		t.Fatal("expected the probe source file to be cleaned up")
	}
}
