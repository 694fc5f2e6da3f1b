package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_StartsAtEpoch(t *testing.T) {
	clock := NewDeterministicClock()
	assert.True(t, clock.Peek().Equal(Epoch))
	assert.True(t, clock.Now().Equal(Epoch))
}

func TestDeterministicClock_AdvancesByStep(t *testing.T) {
	clock := NewDeterministicClock()

	first := clock.Now()
	second := clock.Now()
	assert.Equal(t, time.Second, second.Sub(first))

}

func TestDeterministicClock_CustomStep(t *testing.T) {
	clock := NewDeterministicClockWithStep(time.Minute)

	first := clock.Now()
	assert.True(t, first.Equal(Epoch))
	assert.Equal(t, time.Minute, clock.Now().Sub(first))
	assert.True(t, clock.Peek().Equal(Epoch.Add(2*time.Minute)))
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.True(t, clock.Now().Equal(Epoch))
}

func TestDeterministicClock_ConcurrentUnique(t *testing.T) {
	clock := NewDeterministicClock()
	const goroutines = 100

	values := make(chan time.Time, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			values <- clock.Now()
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int64]bool)
	for v := range values {
		require.False(t, seen[v.UnixNano()], "duplicate instant %v", v)
		seen[v.UnixNano()] = true
	}
	assert.Len(t, seen, goroutines)
}
