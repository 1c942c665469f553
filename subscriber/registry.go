// Package subscriber keeps the per-process table from authenticated address
// to the emitter feeding that address's streams.
//
// Writes come from connection authentication and close; the update
// router only reads. Each address has at most one entry. A second connection
// for the same address replaces the first one's entry and the first
// connection is not told.
package subscriber

import (
	"sync"

	"github.com/lam0glia/social-service/event"
	"github.com/lam0glia/social-service/metrics"
)

type entry struct {
	connectionID uint64
	emitter      *event.Emitter
}

type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	metrics *metrics.Metrics
}

func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		metrics: m,
	}
}

// Register installs a fresh emitter for address owned by connectionID,
// replacing any entry already present.
func (r *Registry) Register(address string, connectionID uint64) *event.Emitter {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := &entry{connectionID: connectionID, emitter: event.NewEmitter()}
	r.entries[address] = e
	r.metrics.Subscribers.Set(float64(len(r.entries)))

	return e.emitter
}

func (r *Registry) Lookup(address string) (*event.Emitter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[address]
	if !ok {
		return nil, false
	}

	return e.emitter, true
}

// Remove deletes the entry of address if connectionID still owns it.
func (r *Registry) Remove(address string, connectionID uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[address]
	if !ok || e.connectionID != connectionID {
		return false
	}

	delete(r.entries, address)
	r.metrics.Subscribers.Set(float64(len(r.entries)))

	return true
}

func (r *Registry) Addresses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addresses := make([]string, 0, len(r.entries))
	for address := range r.entries {
		addresses = append(addresses, address)
	}

	return addresses
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
