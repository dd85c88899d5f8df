package cel

import "sync"

// dialStatusStore holds the last dial envelope carrying a dialstatus for each
// caller, keyed by the caller's uniqueid. The stored status is attached to
// the caller's eventual HANGUP event and consumed by that lookup.
//
// There is no eviction beyond consumption. A caller that never hangs up
// inside this process leaks its entry, which is acceptable: the telephony
// core guarantees eventual hangup in normal operation.
type dialStatusStore struct {
	mu       sync.Mutex
	byCaller map[string]*DialMsg
}

func newDialStatusStore() *dialStatusStore {
	return &dialStatusStore{byCaller: make(map[string]*DialMsg)}
}

// Save stores the envelope under its caller's uniqueid, replacing any earlier
// envelope for the same caller. Envelopes without a caller uniqueid are
// ignored.
func (s *dialStatusStore) Save(msg *DialMsg) {
	if msg == nil || msg.Caller == nil || msg.Caller.UniqueID == "" {
		return
	}
	s.mu.Lock()
	s.byCaller[msg.Caller.UniqueID] = msg
	s.mu.Unlock()
}

// Consume removes and returns the stored envelope for the given caller
// uniqueid, or nil if none is held.
func (s *dialStatusStore) Consume(uniqueid string) *DialMsg {
	s.mu.Lock()
	msg := s.byCaller[uniqueid]
	delete(s.byCaller, uniqueid)
	s.mu.Unlock()
	return msg
}

// Len returns the number of pending entries.
func (s *dialStatusStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byCaller)
}
