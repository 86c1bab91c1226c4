package vtree

import "testing"

func TestChangeTrackerCollapseUnlinkCreate(t *testing.T) {
	ct := newChangeTracker()
	ct.track(OpUnlink, "a", fileEntry("a", 0644, 0, zeroTime))
	ct.track(OpCreate, "a", fileEntry("a", 0644, 5, zeroTime))
	patch := ct.list()
	if len(patch) != 1 || patch[0].Op != OpChange {
		t.Fatalf("got %v, want single change", patch)
	}
}

func TestChangeTrackerCollapseMkdirRmdirSuppresses(t *testing.T) {
	ct := newChangeTracker()
	ct.track(OpMkdir, "foo", dirEntry("foo", 0755, zeroTime))
	ct.track(OpRmdir, "foo", dirEntry("foo", 0755, zeroTime))
	if len(ct.list()) != 0 {
		t.Fatalf("got %v, want zero tracked changes (S4)", ct.list())
	}
}

func TestChangeTrackerCollapseCreateChange(t *testing.T) {
	ct := newChangeTracker()
	ct.track(OpCreate, "a", fileEntry("a", 0644, 1, zeroTime))
	ct.track(OpChange, "a", fileEntry("a", 0644, 2, zeroTime))
	patch := ct.list()
	if len(patch) != 1 || patch[0].Op != OpCreate {
		t.Fatalf("got %v, want single create", patch)
	}
	if patch[0].Entry.Size != 2 {
		t.Errorf("expected the new entry to be carried, got size %d", patch[0].Entry.Size)
	}
}

func TestChangeTrackerCollapseCreateUnlinkSuppresses(t *testing.T) {
	ct := newChangeTracker()
	ct.track(OpCreate, "a", fileEntry("a", 0644, 0, zeroTime))
	ct.track(OpUnlink, "a", fileEntry("a", 0644, 0, zeroTime))
	if len(ct.list()) != 0 {
		t.Fatalf("got %v, want zero", ct.list())
	}
}

func TestChangeTrackerUnrelatedPathsAccumulate(t *testing.T) {
	ct := newChangeTracker()
	ct.track(OpCreate, "a", fileEntry("a", 0644, 0, zeroTime))
	ct.track(OpMkdir, "b", dirEntry("b", 0755, zeroTime))
	if len(ct.list()) != 2 {
		t.Fatalf("got %v, want 2", ct.list())
	}
}

func TestChangeTrackerSnapshotCanonicalOrder(t *testing.T) {
	ct := newChangeTracker()
	ct.track(OpCreate, "b", fileEntry("b", 0644, 0, zeroTime))
	ct.track(OpUnlink, "a", fileEntry("a", 0644, 0, zeroTime))
	patch := ct.snapshot()
	if patch[0].Op != OpUnlink || patch[1].Op != OpCreate {
		t.Fatalf("expected removals before additions, got %v", patch)
	}
}

func TestChangeTrackerReset(t *testing.T) {
	ct := newChangeTracker()
	ct.track(OpCreate, "a", fileEntry("a", 0644, 0, zeroTime))
	ct.reset()
	if len(ct.list()) != 0 {
		t.Fatalf("expected reset tracker to be empty, got %v", ct.list())
	}
}
