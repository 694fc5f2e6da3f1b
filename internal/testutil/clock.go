package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant returned by a DeterministicClock.
var Epoch = time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)

// DeterministicClock provides a thread-safe clock for tests.
//
// Each call to Now returns the previous instant plus a fixed step, starting
// at Epoch.
// Records created through a DeterministicClock get reproducible timestamps,
// which golden output depends on.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewDeterministicClock creates a clock whose first Now() is Epoch and which
// advances one second per call.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockWithStep(time.Second)
}

// NewDeterministicClockWithStep creates a clock whose first Now() is Epoch
// and which advances by step per call.
func NewDeterministicClockWithStep(step time.Duration) *DeterministicClock {
	return &DeterministicClock{next: Epoch, step: step}
}

// Now returns the current instant and advances the clock by its step.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// Peek returns the instant the next Now() call will return.
func (c *DeterministicClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = Epoch
}
