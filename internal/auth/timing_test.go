package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_WaitAtLeastBase(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 20, RandomDelayMs: 10})

	start := time.Now()
	td.Wait()
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestTimingDelay_WaitFromAccountsForElapsedWork(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 30, RandomDelayMs: 0})

	start := time.Now().Add(-10 * time.Millisecond) // simulate work already done
	td.WaitFrom(start)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestTimingDelay_WaitFromPastTarget(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 10, RandomDelayMs: 0})

	start := time.Now().Add(-50 * time.Millisecond)

	before := time.Now()
	td.WaitFrom(start)
	assert.Less(t, time.Since(before), 10*time.Millisecond)
}

func TestTimingDelay_ZeroConfigReturnsQuickly(t *testing.T) {
	td := NewTimingDelay(TimingConfig{})

	start := time.Now()
	td.Wait()
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}
