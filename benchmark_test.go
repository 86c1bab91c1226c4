package vtree

import (
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func syntheticTree(n int) []Entry {
	var entries []Entry
	for i := 0; i < n/10; i++ {
		entries = insertEntry(entries, dirEntry(fmt.Sprintf("dir%04d", i), 0755, zeroTime))
	}
	for i := 0; i < n; i++ {
		entries = insertEntry(entries, fileEntry(fmt.Sprintf("dir%04d/file%04d.js", i%(n/10+1), i), 0644, int64(i), zeroTime))
	}
	return entries
}

func BenchmarkDiffNoChanges(b *testing.B) {
	entries := syntheticTree(2000)
	other := make([]Entry, len(entries))
	copy(other, entries)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Diff(entries, other, DefaultEquals)
	}
}

func BenchmarkDiffFullReplacement(b *testing.B) {
	from := syntheticTree(2000)
	to := syntheticTree(2000)
	for i := range to {
		to[i].MTime = to[i].MTime.Add(time.Second)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Diff(from, to, DefaultEquals)
	}
}

func BenchmarkWritableTreeWriteFile(b *testing.B) {
	fsys := afero.NewMemMapFs()
	tree, err := NewWritableTree(fsys, "/bench")
	if err != nil {
		b.Fatal(err)
	}
	if err := tree.Start(); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := fmt.Sprintf("file%d.txt", i)
		if err := tree.WriteFile(p, []byte("x")); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkProjectionEntries(b *testing.B) {
	fsys := afero.NewMemMapFs()
	for i := 0; i < 200; i++ {
		dir := fmt.Sprintf("/src/dir%04d", i)
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			b.Fatal(err)
		}
		for j := 0; j < 10; j++ {
			p := fmt.Sprintf("%s/file%04d.js", dir, j)
			if err := afero.WriteFile(fsys, p, []byte("x"), 0644); err != nil {
				b.Fatal(err)
			}
		}
	}
	source, err := NewSourceTree(fsys, "/src")
	if err != nil {
		b.Fatal(err)
	}
	proj, err := NewProjection(source, WithInclude(Glob("*.js")))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := proj.Entries(); err != nil {
			b.Fatal(err)
		}
	}
}
