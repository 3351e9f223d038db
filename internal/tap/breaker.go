package tap

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/litescript/ls-constellations/internal/logging"
)

// BreakerConfig holds circuit breaker thresholds for one service.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before a trial request.
	Timeout time.Duration
}

// DefaultBreakerConfig returns the thresholds used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 5,
		Timeout:     60 * time.Second,
	}
}

// NewBreaker creates a breaker that logs its state changes.
func NewBreaker(name string, cfg BreakerConfig, log *logging.Logger) *gobreaker.CircuitBreaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultBreakerConfig().MaxFailures
	}
	if log == nil {
		log = logging.Discard()
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit %s: %s -> %s", name, from, to)
		},
	})
}
