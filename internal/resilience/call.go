package resilience

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Guard bundles the resilience policy of one provider: retry, breaker and
// an optional credential pool. The zero Guard runs calls once.
type Guard struct {
	Service string
	Retry   RetryConfig
	Breaker *CircuitBreaker
	Keys    *KeyPool
}

// Call runs fn under g. Each attempt acquires a key from the pool; quota
// errors cool the key down and retry with the next one while other keys
// remain, transient errors retry with backoff.
func Call[T any](ctx context.Context, g Guard, operation string, fn func(ctx context.Context, key string) (T, error)) (T, error) {
	retry := g.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = RetryLogger(g.Service, operation)
	}
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = func(err error) bool {
			if IsQuota(err) {
				return g.Keys.Len() > 1
			}
			return IsTransient(err)
		}
	}

	attempt := func(ctx context.Context) (T, error) {
		key := ""
		if g.Keys != nil {
			k, err := g.Keys.Acquire()
			if err != nil {
				var zero T
				return zero, eris.Wrapf(err, "%s: %s", g.Service, operation)
			}
			key = k
		}

		var (
			val T
			err error
		)
		if g.Breaker != nil {
			val, err = ExecuteVal(ctx, g.Breaker, func(ctx context.Context) (T, error) { return fn(ctx, key) })
		} else {
			val, err = fn(ctx, key)
		}

		if g.Keys != nil && key != "" {
			switch {
			case err == nil:
				g.Keys.ReportSuccess(key)
			case IsQuota(err):
				zap.L().Warn("credential quota exhausted, rotating",
					zap.String("service", g.Service),
					zap.Int("pool_size", g.Keys.Len()),
				)
				g.Keys.ReportFailure(key)
			}
		}
		return val, err
	}

	return DoVal(ctx, retry, attempt)
}
