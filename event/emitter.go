package event

import (
	"sync"

	"github.com/lam0glia/social-service/domain"
)

type Listener func(domain.Update)

// Emitter is a typed observer map: update type -> registered listeners.
type Emitter struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[domain.UpdateType]map[uint64]Listener
}

func NewEmitter() *Emitter {
	return &Emitter{
		listeners: make(map[domain.UpdateType]map[uint64]Listener),
	}
}

// On registers fn for updates of type t. The returned function removes it
// and is safe to call more than once.
func (e *Emitter) On(t domain.UpdateType, fn Listener) (off func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID

	byID, ok := e.listeners[t]
	if !ok {
		byID = make(map[uint64]Listener)
		e.listeners[t] = byID
	}
	byID[id] = fn

	var once sync.Once

	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()

			delete(e.listeners[t], id)
			if len(e.listeners[t]) == 0 {
				delete(e.listeners, t)
			}
		})
	}
}

// Emit calls every listener of t. Listeners run outside the lock so they may
// unregister themselves.
func (e *Emitter) Emit(t domain.UpdateType, u domain.Update) int {
	e.mu.RLock()
	fns := make([]Listener, 0, len(e.listeners[t]))
	for _, fn := range e.listeners[t] {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(u)
	}

	return len(fns)
}

func (e *Emitter) ListenerCount(t domain.UpdateType) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.listeners[t])
}
