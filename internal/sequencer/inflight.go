package sequencer

import (
	"context"
	"sync"
)

// Inflight counts task work functions that are still running. A task that timed out
// stays counted until its work function actually returns, so a caller can hold the
// next run back until nothing from an earlier one is still writing. The zero value
// is ready to use and a nil *Inflight tracks nothing.
type Inflight struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func (f *Inflight) acquire() {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n == 0 {
		f.idle = make(chan struct{})
	}
	f.n++
}

func (f *Inflight) release() {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n--
	if f.n == 0 {
		close(f.idle)
	}
}

// Len returns the number of work functions still running.
func (f *Inflight) Len() int {
	if f == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// Wait blocks until every tracked work function has returned or ctx is done.
func (f *Inflight) Wait(ctx context.Context) error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	if f.n == 0 {
		f.mu.Unlock()
		return nil
	}
	idle := f.idle
	f.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
