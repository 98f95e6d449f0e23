package medium

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is how often WaitUntilFree re-checks the busy flag
const DefaultPollInterval = 10 * time.Microsecond

// Medium is the shared wireless channel. At most one holder at a time.
type Medium struct {
	mu           sync.Mutex
	busy         bool
	pollInterval time.Duration
}

// New creates an idle medium
func New() *Medium {
	return &Medium{pollInterval: DefaultPollInterval}
}

// NewWithPollInterval creates an idle medium with a custom WaitUntilFree poll interval
func NewWithPollInterval(interval time.Duration) *Medium {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Medium{pollInterval: interval}
}

// TryAcquire marks the medium busy if it is idle. It never blocks.
func (m *Medium) TryAcquire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.busy {
		return false
	}
	m.busy = true
	return true
}

// Release marks the medium idle. Releasing an idle medium is a no-op.
func (m *Medium) Release() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

// IsBusy returns a snapshot of the busy flag
func (m *Medium) IsBusy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// WaitUntilFree polls until the medium is observed idle.
// Another caller may acquire it right after; callers must still TryAcquire.
func (m *Medium) WaitUntilFree(ctx context.Context) error {
	interval := m.pollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for m.IsBusy() {
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
