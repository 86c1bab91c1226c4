package vtree

import (
	"reflect"
	"testing"
	"time"
)

func ops(p Patch) []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = string(c.Op) + " " + c.Path
	}
	return out
}

// TestDiffEmptyToPopulated checks a diff from nothing to a small tree
// emits mkdir/create in ancestor-before-descendant order.
func TestDiffEmptyToPopulated(t *testing.T) {
	other := []Entry{
		dirEntry("bar", 0755, zeroTime),
		fileEntry("bar/baz.js", 0644, 0, zeroTime),
		fileEntry("foo.js", 0644, 0, zeroTime),
	}
	patch := Diff(nil, other, DefaultEquals)
	patch.SortCanonical()
	want := []string{"mkdir bar", "create bar/baz.js", "create foo.js"}
	if got := ops(patch); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// TestDiffPopulatedToEmpty checks a diff from a small tree to nothing
// emits unlinks/rmdirs in descendant-before-ancestor order.
func TestDiffPopulatedToEmpty(t *testing.T) {
	self := []Entry{
		dirEntry("bar", 0755, zeroTime),
		fileEntry("bar/baz.js", 0644, 0, zeroTime),
		fileEntry("foo.js", 0644, 0, zeroTime),
	}
	patch := Diff(self, nil, DefaultEquals)
	patch.SortCanonical()
	want := []string{"unlink foo.js", "unlink bar/baz.js", "rmdir bar"}
	if got := ops(patch); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// TestDiffFileBecomesDirectory checks a file becoming a directory at the
// same path emits an unlink followed by mkdir/create, not an in-place change.
func TestDiffFileBecomesDirectory(t *testing.T) {
	self := []Entry{fileEntry("subdir1", 0644, 0, zeroTime)}
	other := []Entry{
		dirEntry("subdir1", 0755, zeroTime),
		fileEntry("subdir1/foo", 0644, 0, zeroTime),
	}
	patch := Diff(self, other, DefaultEquals)
	patch.SortCanonical()
	want := []string{"unlink subdir1", "mkdir subdir1", "create subdir1/foo"}
	if got := ops(patch); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDiffSelfIsEmptyPatch(t *testing.T) {
	entries := []Entry{
		dirEntry("a", 0755, zeroTime),
		fileEntry("a/b", 0644, 5, time.Unix(100, 0)),
	}
	patch := Diff(entries, entries, DefaultEquals)
	if len(patch) != 0 {
		t.Fatalf("Diff(T, T) = %v, want empty", patch)
	}
}

func TestDiffOrderingInvariant(t *testing.T) {
	self := []Entry{
		dirEntry("a", 0755, zeroTime),
		fileEntry("a/x", 0644, 0, zeroTime),
	}
	other := []Entry{
		dirEntry("b", 0755, zeroTime),
		fileEntry("b/y", 0644, 0, zeroTime),
	}
	patch := Diff(self, other, DefaultEquals)
	patch.SortCanonical()
	// All removes precede all adds.
	seenAdd := false
	for _, c := range patch {
		if !c.Op.isRemoval() {
			seenAdd = true
			continue
		}
		if seenAdd {
			t.Fatalf("removal %v found after an addition in canonical patch %v", c, patch)
		}
	}
}

func TestApplyMaterializesPatch(t *testing.T) {
	patch := Patch{
		{Op: OpMkdir, Path: "d"},
		{Op: OpCreate, Path: "d/f"},
	}
	var created []string
	delegate := Delegate{
		Mkdir: func(in, out, rel string) error { created = append(created, "mkdir:"+rel); return nil },
		Create: func(in, out, rel string) error { created = append(created, "create:"+rel); return nil },
	}
	if err := Apply(patch, "/in", "/out", delegate); err != nil {
		t.Fatal(err)
	}
	want := []string{"mkdir:d", "create:d/f"}
	if !reflect.DeepEqual(created, want) {
		t.Fatalf("got %v, want %v", created, want)
	}
}

func TestApplyUnknownOperation(t *testing.T) {
	patch := Patch{{Op: OpRmdir, Path: "d"}}
	err := Apply(patch, "/in", "/out", Delegate{})
	if err == nil {
		t.Fatal("expected an UnknownOperationError")
	}
	var unk *UnknownOperationError
	if !asUnknownOp(err, &unk) {
		t.Fatalf("expected *UnknownOperationError, got %T: %v", err, err)
	}
	if unk.Field != "Rmdir" {
		t.Errorf("Field = %q, want Rmdir", unk.Field)
	}
}

func asUnknownOp(err error, target **UnknownOperationError) bool {
	if u, ok := err.(*UnknownOperationError); ok {
		*target = u
		return true
	}
	return false
}
