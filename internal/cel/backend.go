package cel

import (
	"fmt"
	"sort"
	"sync"
)

// BackendFunc consumes one built event record. Callbacks must be non-blocking
// bounded work; slow sinks buffer internally. A callback may register or
// unregister backends.
type BackendFunc func(*Record)

// backendRegistry holds the named event sinks. Fan-out iterates a snapshot of
// the current entries taken under the lock, so callbacks can mutate the
// registry without deadlocking.
type backendRegistry struct {
	mu       sync.RWMutex
	backends map[string]BackendFunc
}

func newBackendRegistry() *backendRegistry {
	return &backendRegistry{backends: make(map[string]BackendFunc)}
}

// Register adds a backend under a unique name. Empty names and duplicate
// names are rejected.
func (r *backendRegistry) Register(name string, fn BackendFunc) error {
	if name == "" {
		return fmt.Errorf("backend name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("backend %q has no callback", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.backends[name]; ok {
		return fmt.Errorf("backend %q already registered", name)
	}
	r.backends[name] = fn
	return nil
}

// Unregister removes a backend by name. Removing an absent name fails
// without side effects.
func (r *backendRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.backends[name]; !ok {
		return fmt.Errorf("backend %q not registered", name)
	}
	delete(r.backends, name)
	return nil
}

// Names returns the registered backend names in sorted order.
func (r *backendRegistry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Distribute delivers one record to every currently registered backend. The
// entry snapshot is taken before any callback runs.
func (r *backendRegistry) Distribute(rec *Record) {
	r.mu.RLock()
	fns := make([]BackendFunc, 0, len(r.backends))
	for _, fn := range r.backends {
		fns = append(fns, fn)
	}
	r.mu.RUnlock()

	for _, fn := range fns {
		fn(rec)
	}
}
