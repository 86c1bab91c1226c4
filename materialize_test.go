package vtree

import (
	"testing"

	"github.com/spf13/afero"
)

func TestMaterializingDelegateCopiesFileContent(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/in/foo.txt", []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	delegate := NewMaterializingDelegate(fsys)

	if err := delegate.Create("/in/foo.txt", "/out/foo.txt", "foo.txt"); err != nil {
		t.Fatal(err)
	}
	data, err := afero.ReadFile(fsys, "/out/foo.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q, want hello", data)
	}

	if err := afero.WriteFile(fsys, "/in/foo.txt", []byte("updated"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := delegate.Change("/in/foo.txt", "/out/foo.txt", "foo.txt"); err != nil {
		t.Fatal(err)
	}
	data, err = afero.ReadFile(fsys, "/out/foo.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "updated" {
		t.Fatalf("got %q, want updated", data)
	}

	if err := delegate.Unlink("/in/foo.txt", "/out/foo.txt", "foo.txt"); err != nil {
		t.Fatal(err)
	}
	if _, err := fsys.Stat("/out/foo.txt"); err == nil {
		t.Fatal("expected /out/foo.txt to be removed")
	}
}

func TestMaterializingDelegateMkdirAndRmdir(t *testing.T) {
	fsys := afero.NewMemMapFs()
	delegate := NewMaterializingDelegate(fsys)

	if err := delegate.Mkdir("/in/dir", "/out/dir", "dir"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := afero.DirExists(fsys, "/out/dir"); !ok {
		t.Fatal("expected /out/dir to exist")
	}
	if err := delegate.Rmdir("/in/dir", "/out/dir", "dir"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := afero.DirExists(fsys, "/out/dir"); ok {
		t.Fatal("expected /out/dir to be removed")
	}
}

func TestMaterializeDirLinkCopiesLinkedSubtree(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := fsys.MkdirAll("/target/sub", 0755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, "/target/top.txt", []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, "/target/sub/leaf.txt", []byte("b"), 0644); err != nil {
		t.Fatal(err)
	}
	target, err := NewSourceTree(fsys, "/target")
	if err != nil {
		t.Fatal(err)
	}

	e := Entry{
		Path: "linked",
		Kind: KindDirectory,
		Mode: 0755,
		Link: InternalLink(target, ""),
	}

	if err := MaterializeDirLink(fsys, e, "/out/linked"); err != nil {
		t.Fatal(err)
	}
	top, err := afero.ReadFile(fsys, "/out/linked/top.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(top) != "a" {
		t.Fatalf("got %q, want a", top)
	}
	leaf, err := afero.ReadFile(fsys, "/out/linked/sub/leaf.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(leaf) != "b" {
		t.Fatalf("got %q, want b", leaf)
	}
}

func TestMaterializeDirLinkRejectsNonInternalLink(t *testing.T) {
	fsys := afero.NewMemMapFs()
	e := Entry{
		Path: "ext",
		Kind: KindFile,
		Link: ExternalLink("/somewhere"),
	}
	if err := MaterializeDirLink(fsys, e, "/out/ext"); err == nil {
		t.Fatal("expected an error for a non-Internal link")
	}
}
