package cel

import (
	"fmt"
	"sync"
)

// linkedIDTracker reference-counts linkedids so the engine can emit exactly
// one LINKEDID_END per logical call tree, when the last channel carrying the
// id goes away.
//
// An entry's count is the number of live channels carrying the linkedid plus
// one reference held by the tracker itself. The decrement and the unlink
// decision happen under the same lock so a racing Acquire cannot resurrect an
// entry that is being retired.
type linkedIDTracker struct {
	mu   sync.Mutex
	refs map[string]int
}

func newLinkedIDTracker() *linkedIDTracker {
	return &linkedIDTracker{refs: make(map[string]int)}
}

// Acquire records one more live channel carrying the linkedid. A new entry
// starts at two: the channel's reference plus the tracker's own. Calling
// Acquire with an empty id is a programming error and mutates nothing.
func (t *linkedIDTracker) Acquire(linkedid string) error {
	if linkedid == "" {
		return fmt.Errorf("linkedid should never be empty")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.refs[linkedid]; ok {
		t.refs[linkedid]++
		return nil
	}
	t.refs[linkedid] = 2
	return nil
}

// Release drops one channel reference. It reports whether the entry was
// retired: when only the tracker's own reference would remain, the entry is
// unlinked and the caller must emit the terminal event (outside this lock).
// A missing entry is tolerated and reported via the second return.
func (t *linkedIDTracker) Release(linkedid string) (retired, found bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	count, ok := t.refs[linkedid]
	if !ok {
		return false, false
	}

	count--
	if count <= 1 {
		delete(t.refs, linkedid)
		return true, true
	}
	t.refs[linkedid] = count
	return false, true
}

// Len returns the number of tracked linkedids.
func (t *linkedIDTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.refs)
}
