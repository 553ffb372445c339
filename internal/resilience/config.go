package resilience

import (
	"time"
)

// FromRetryConfig builds a RetryConfig from configuration values, keeping
// the default for every non-positive input.
func FromRetryConfig(maxAttempts, initialBackoffMs, maxBackoffMs int, multiplier, jitterFraction float64) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if initialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(initialBackoffMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(maxBackoffMs) * time.Millisecond
	}
	if multiplier > 0 {
		cfg.Multiplier = multiplier
	}
	if jitterFraction >= 0 {
		cfg.JitterFraction = jitterFraction
	}
	return cfg
}

// FromCircuitConfig builds a CircuitBreakerConfig from configuration values.
// Quota errors never trip the breaker; they rotate credentials instead.
func FromCircuitConfig(failureThreshold, resetTimeoutSecs int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	cfg.ShouldTrip = func(err error) bool { return err != nil && !IsQuota(err) }
	return cfg
}

// NewGuard assembles the Guard for one provider.
func NewGuard(service string, retry RetryConfig, breakers *ServiceBreakers, keys []string, cooldown time.Duration) Guard {
	g := Guard{Service: service, Retry: retry}
	if breakers != nil {
		g.Breaker = breakers.Get(service)
	}
	if len(keys) > 0 {
		g.Keys = NewKeyPool(keys, cooldown)
	}
	return g
}
