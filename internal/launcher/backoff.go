package launcher

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig defines health-check retry behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
	MaxAttempts  int
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     2 * time.Second,
		Jitter:       true,
		MaxAttempts:  30,
	}
}

// NextBackoffDelay returns the wait after failed health check N (1-based).
// Jitter draws from [delay/2, delay] and needs rng; a nil rng is deterministic.
// The result never exceeds MaxDelay.
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	mult := max(cfg.Multiplier, 1.0)
	delay := float64(cfg.InitialDelay) * math.Pow(mult, float64(max(attempt, 1)-1))
	if cfg.MaxDelay > 0 {
		delay = math.Min(delay, float64(cfg.MaxDelay))
	}
	if cfg.Jitter && rng != nil {
		delay = delay/2 + rng.Float64()*delay/2
	}
	return time.Duration(delay)
}
