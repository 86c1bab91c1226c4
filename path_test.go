package vtree

import (
	"testing"
	"time"
)

var zeroTime time.Time

func TestNormalize(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"a/b/c", "a/b/c", false},
		{"./a/./b", "a/b", false},
		{"a//b", "a/b", false},
		{"a/b/../c", "a/c", false},
		{"..", "", true},
		{"a/../..", "", true},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("Normalize(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, p := range []string{"a/b/c", "./x/../y", "foo", ""} {
		n1, err := Normalize(p)
		if err != nil {
			t.Fatal(err)
		}
		n2, err := Normalize(n1)
		if err != nil {
			t.Fatal(err)
		}
		if n1 != n2 {
			t.Errorf("normalize not idempotent for %q: %q != %q", p, n1, n2)
		}
	}
}

func TestJoinAndDirBase(t *testing.T) {
	if got := Join("a/b", "c"); got != "a/b/c" {
		t.Errorf("Join = %q", got)
	}
	if got := Dir("a/b/c"); got != "a/b" {
		t.Errorf("Dir = %q", got)
	}
	if got := Dir("a"); got != "" {
		t.Errorf("Dir(top-level) = %q, want empty", got)
	}
	if got := Base("a/b/c"); got != "c" {
		t.Errorf("Base = %q", got)
	}
}

func TestIsAncestor(t *testing.T) {
	if !IsAncestor("a", "a/b") {
		t.Error("expected a to be ancestor of a/b")
	}
	if IsAncestor("a", "ab") {
		t.Error("a should not be ancestor of ab")
	}
	if !IsAncestor("", "a") {
		t.Error("root should be ancestor of any top-level path")
	}
	if IsAncestor("", "") {
		t.Error("root should not be its own strict ancestor")
	}
}

func TestInsertFindRemoveEntry(t *testing.T) {
	var entries []Entry
	entries = insertEntry(entries, fileEntry("b", 0644, 0, zeroTime))
	entries = insertEntry(entries, fileEntry("a", 0644, 0, zeroTime))
	entries = insertEntry(entries, fileEntry("c", 0644, 0, zeroTime))

	want := []string{"a", "b", "c"}
	for i, e := range entries {
		if e.Path != want[i] {
			t.Fatalf("entries[%d] = %q, want %q", i, e.Path, want[i])
		}
	}

	if _, ok := findEntry(entries, "b"); !ok {
		t.Error("expected to find b")
	}
	entries = removeEntry(entries, "b")
	if _, ok := findEntry(entries, "b"); ok {
		t.Error("expected b to be removed")
	}
	if len(entries) != 2 {
		t.Errorf("len = %d, want 2", len(entries))
	}
}

func TestChildrenAndDescendantsOf(t *testing.T) {
	entries := []Entry{
		dirEntry("a", 0755, zeroTime),
		fileEntry("a/b", 0644, 0, zeroTime),
		dirEntry("a/c", 0755, zeroTime),
		fileEntry("a/c/d", 0644, 0, zeroTime),
		fileEntry("z", 0644, 0, zeroTime),
	}
	children := childrenOf(entries, "a")
	if len(children) != 2 {
		t.Fatalf("childrenOf(a) = %d entries, want 2", len(children))
	}
	desc := descendantsOf(entries, "a")
	if len(desc) != 3 {
		t.Fatalf("descendantsOf(a) = %d entries, want 3", len(desc))
	}
}
