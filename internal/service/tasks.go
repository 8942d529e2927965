package service

import (
	"context"
	"sync"
)

// roundTasks supervises the per-round goroutines: every live round is
// registered under its session id with a cancel handle, so a cashout can
// stop its round and shutdown can stop them all and wait.
type roundTasks struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func newRoundTasks() *roundTasks {
	return &roundTasks{cancels: make(map[string]context.CancelFunc)}
}

// Start launches fn under a cancellable context registered for the id.
// The registration is removed when fn returns.
func (t *roundTasks) Start(parent context.Context, id string, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	t.cancels[id] = cancel
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.remove(id)
		fn(ctx)
	}()
}

// Cancel stops the round registered under the id, if still running.
func (t *roundTasks) Cancel(id string) {
	t.mu.Lock()
	cancel, ok := t.cancels[id]
	t.mu.Unlock()
	if ok {
		cancel()
	}
}

// Shutdown cancels every live round and waits for the goroutines.
func (t *roundTasks) Shutdown() {
	t.mu.Lock()
	for _, cancel := range t.cancels {
		cancel()
	}
	t.mu.Unlock()
	t.wg.Wait()
}

// Len reports how many rounds are registered.
func (t *roundTasks) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cancels)
}

func (t *roundTasks) remove(id string) {
	t.mu.Lock()
	if cancel, ok := t.cancels[id]; ok {
		cancel()
		delete(t.cancels, id)
	}
	t.mu.Unlock()
}
