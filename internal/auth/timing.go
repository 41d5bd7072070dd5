package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig tunes the uniform-failure delay.
type TimingConfig struct {
	BaseDelayMs   int
	RandomDelayMs int
}

// TimingDelay pads authentication failures to a uniform duration so response
// time does not reveal whether an email exists, which check rejected the
// attempt, or how far the credential got.
type TimingDelay struct {
	config TimingConfig
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// cryptoRandIntn returns a random int in [0, max) using crypto/rand.
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return int(randomValue % uint64(max)), nil
}

func (td *TimingDelay) targetDelay() time.Duration {
	baseDelay := time.Duration(td.config.BaseDelayMs) * time.Millisecond

	var randomDelay time.Duration
	if td.config.RandomDelayMs > 0 {
		if randomValue, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			randomDelay = time.Duration(randomValue) * time.Millisecond
		}
	}

	return baseDelay + randomDelay
}

// Wait sleeps for the full padded delay. Only call on the failure path.
func (td *TimingDelay) Wait() {
	time.Sleep(td.targetDelay())
}

// WaitFrom sleeps until at least the padded delay has elapsed since
// startTime, accounting for time already spent on real work (a bcrypt
// compare, a repository lookup).
func (td *TimingDelay) WaitFrom(startTime time.Time) {
	target := td.targetDelay()

	if elapsed := time.Since(startTime); elapsed < target {
		time.Sleep(target - elapsed)
	}
}
