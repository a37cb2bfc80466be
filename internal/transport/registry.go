package transport

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("transport closed")

// Registry tracks requests awaiting a response. Each pending id owns a one-slot channel
// that receives exactly one Response or is closed on Cancel/Close.
type Registry struct {
	mu      sync.Mutex
	pending map[string]chan Response
	closed  bool
}

func NewRegistry() *Registry {
	return &Registry{pending: make(map[string]chan Response)}
}

func (r *Registry) Register() (string, <-chan Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", nil, ErrClosed
	}
	id := uuid.NewString()
	ch := make(chan Response, 1)
	r.pending[id] = ch
	return id, ch, nil
}

// Resolve delivers resp to its waiter. It reports false for unknown or already settled ids.
func (r *Registry) Resolve(resp Response) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.pending[resp.RequestID]
	if !ok {
		return false
	}
	delete(r.pending, resp.RequestID)
	ch <- resp
	return true
}

func (r *Registry) Cancel(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.pending[id]; ok {
		delete(r.pending, id)
		close(ch)
	}
}

func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Close releases every waiter. Later calls to Register fail with ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id, ch := range r.pending {
		delete(r.pending, id)
		close(ch)
	}
}
