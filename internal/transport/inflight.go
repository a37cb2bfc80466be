package transport

import (
	"context"
	"errors"
	"sync"
)

var ErrDuplicateRequest = errors.New("request id already in flight")

// Inflight tracks requests a server is still running so a cancel request can reach them.
// Each entry belongs to the Start call that created it; only that call's release removes it.
type Inflight struct {
	mu   sync.Mutex
	runs map[string]*run
}

type run struct {
	stop context.CancelFunc
}

func NewInflight() *Inflight {
	return &Inflight{runs: make(map[string]*run)}
}

// Start derives a cancellable context for id. The returned release must be called once the
// request has finished. An empty id is not tracked and cannot be cancelled.
func (f *Inflight) Start(ctx context.Context, id string) (context.Context, func(), error) {
	ctx, stop := context.WithCancel(ctx)
	if id == "" {
		return ctx, stop, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.runs[id]; ok {
		stop()
		return nil, nil, ErrDuplicateRequest
	}
	self := &run{stop: stop}
	f.runs[id] = self

	release := func() {
		stop()
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.runs[id] == self {
			delete(f.runs, id)
		}
	}
	return ctx, release, nil
}

// Cancel stops the request running under id. It reports false when nothing is running.
func (f *Inflight) Cancel(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[id]
	if !ok {
		return false
	}
	delete(f.runs, id)
	r.stop()
	return true
}

func (f *Inflight) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}
