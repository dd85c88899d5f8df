package cel

import "testing"

func TestLinkedIDTrackerEmptyID(t *testing.T) {
	tr := newLinkedIDTracker()
	if err := tr.Acquire(""); err == nil {
		t.Fatal("Acquire(\"\") should fail")
	}
	if tr.Len() != 0 {
		t.Errorf("Len() = %d after failed acquire", tr.Len())
	}
}

func TestLinkedIDTrackerSingleChannel(t *testing.T) {
	tr := newLinkedIDTracker()
	if err := tr.Acquire("lid-1"); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if tr.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tr.Len())
	}

	retired, found := tr.Release("lid-1")
	if !found {
		t.Fatal("Release() found = false")
	}
	if !retired {
		t.Error("last channel release should retire the id")
	}
	if tr.Len() != 0 {
		t.Errorf("Len() = %d after retire", tr.Len())
	}
}

func TestLinkedIDTrackerSharedID(t *testing.T) {
	tr := newLinkedIDTracker()

	// Three channels in the same call tree.
	for i := 0; i < 3; i++ {
		if err := tr.Acquire("lid-1"); err != nil {
			t.Fatalf("Acquire() error: %v", err)
		}
	}
	if tr.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tr.Len())
	}

	for i := 0; i < 2; i++ {
		retired, found := tr.Release("lid-1")
		if !found || retired {
			t.Fatalf("release %d: retired=%v found=%v, want false/true", i, retired, found)
		}
	}

	retired, found := tr.Release("lid-1")
	if !found || !retired {
		t.Errorf("final release: retired=%v found=%v, want true/true", retired, found)
	}
}

func TestLinkedIDTrackerUnknownID(t *testing.T) {
	tr := newLinkedIDTracker()
	retired, found := tr.Release("never-seen")
	if found || retired {
		t.Errorf("Release(unknown) = %v/%v, want false/false", retired, found)
	}
}
