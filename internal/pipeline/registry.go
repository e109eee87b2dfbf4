package pipeline

import "sync"

// registry enforces the claim invariant: exactly one active run per
// sourceID. A second concurrent event for the same sourceID fails to claim
// and is dropped; the periodic rescan will pick the file up again if it is
// still in intake.
type registry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newRegistry() *registry {
	return &registry{active: make(map[string]struct{})}
}

// Claim marks sourceID active. Returns false if a run already holds it.
func (r *registry) Claim(sourceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.active[sourceID]; busy {
		return false
	}
	r.active[sourceID] = struct{}{}
	return true
}

// Release frees sourceID for future runs.
func (r *registry) Release(sourceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, sourceID)
}
