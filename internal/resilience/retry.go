package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/domain"
)

// RetryConfig holds the backoff policy for one executor.
type RetryConfig struct {
	MaxAttempts  int           // total attempts including the first (default 3)
	InitialDelay time.Duration // delay before the second attempt (default 1s)
	MaxDelay     time.Duration // cap on the exponential delay (default 30s)
}

// ApplyDefaults fills zero fields with default policy values.
func (c *RetryConfig) ApplyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
}

// Executor wraps outbound calls to one external endpoint with retry and
// circuit breaker discipline. It is the only component allowed to reach
// the provider directly.
type Executor struct {
	cfg       RetryConfig
	breaker   *Breaker
	retryable func(error) bool
	onRetry   func(endpoint string)
	logger    *zap.Logger
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithRetryable overrides the predicate deciding which errors retry.
// The default retries domain.ErrProviderTransient only.
func WithRetryable(fn func(error) bool) ExecutorOption {
	return func(e *Executor) { e.retryable = fn }
}

// WithRetryObserver sets a hook invoked once per scheduled retry.
func WithRetryObserver(fn func(endpoint string)) ExecutorOption {
	return func(e *Executor) { e.onRetry = fn }
}

// NewExecutor creates an executor guarded by the given breaker.
func NewExecutor(cfg RetryConfig, breaker *Breaker, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	cfg.ApplyDefaults()
	e := &Executor{
		cfg:       cfg,
		breaker:   breaker,
		retryable: domain.IsTransient,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs op under the retry and circuit breaker policy.
//
// Transient failures are retried up to MaxAttempts with exponential
// backoff (delay = min(MaxDelay, InitialDelay*2^n) jittered uniformly
// over [0.5, 1.5)). Permanent errors abort on the first attempt and do
// not count against the breaker. An open breaker rejects the call before
// any attempt is made, consuming no retry budget.
func (e *Executor) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.cfg.InitialDelay
	bo.MaxInterval = e.cfg.MaxDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.5
	bo.MaxElapsedTime = 0
	bo.Reset()

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if e.breaker != nil && !e.breaker.Allow() {
			return fmt.Errorf("endpoint %q: %w", e.breaker.Endpoint(), domain.ErrCircuitOpen)
		}

		err := op(ctx)
		if err == nil {
			if e.breaker != nil {
				e.breaker.RecordSuccess()
			}
			return nil
		}

		if !e.retryable(err) {
			return err
		}
		if e.breaker != nil {
			e.breaker.RecordFailure()
		}
		lastErr = err

		if attempt == e.cfg.MaxAttempts {
			break
		}

		delay := bo.NextBackOff()
		e.logger.Warn("Retrying after transient failure",
			zap.String("endpoint", e.endpoint()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.cfg.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if e.onRetry != nil {
			e.onRetry(e.endpoint())
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("failed after %d attempts in %s: %w",
		e.cfg.MaxAttempts, time.Since(start).Round(time.Millisecond), lastErr)
}

func (e *Executor) endpoint() string {
	if e.breaker != nil {
		return e.breaker.Endpoint()
	}
	return ""
}
