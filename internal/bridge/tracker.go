package bridge

import (
	"sync"
	"time"
)

// tracker counts command goroutines so shutdown can wait for them.
type tracker struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// add registers a goroutine. It fails once the tracker is closed.
func (t *tracker) add() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.wg.Add(1)
	return true
}

func (t *tracker) done() {
	t.wg.Done()
}

func (t *tracker) wait() {
	t.wg.Wait()
}

// waitTimeout reports whether every goroutine finished within timeout.
func (t *tracker) waitTimeout(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// close prevents further registrations.
func (t *tracker) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}
