package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockAdvances(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := NewClock(start, time.Second)

	assert.Equal(t, start, c.Current())
	assert.Equal(t, start.Add(time.Second), c.Now())
	assert.Equal(t, start.Add(2*time.Second), c.Now())
	assert.Equal(t, start.Add(2*time.Second), c.Current())
}

func TestClockConcurrentNow(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := NewClock(start, time.Millisecond)

	const calls = 100
	times := make([]time.Time, calls)
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			times[i] = c.Now()
		}(i)
	}
	wg.Wait()

	// Every call got a distinct tick.
	seen := make(map[time.Time]bool, calls)
	for _, tm := range times {
		assert.False(t, seen[tm])
		seen[tm] = true
	}
	assert.Equal(t, start.Add(calls*time.Millisecond), c.Current())
}
