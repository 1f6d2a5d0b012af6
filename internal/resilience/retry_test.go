package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retriever/internal/domain"
)

func fastRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestExecute_SucceedsFirstAttempt(t *testing.T) {
	e := NewExecutor(fastRetryConfig(3), nil, zap.NewNop())

	calls := 0
	err := e.Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestExecute_RetriesTransientExactlyMaxAttempts(t *testing.T) {
	e := NewExecutor(fastRetryConfig(3), nil, zap.NewNop())

	calls := 0
	transient := fmt.Errorf("connection reset: %w", domain.ErrProviderTransient)
	err := e.Execute(context.Background(), func(context.Context) error {
		calls++
		return transient
	})

	if calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls)
	}
	if !errors.Is(err, domain.ErrProviderTransient) {
		t.Fatalf("expected wrapped transient error, got %v", err)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("error must carry attempt count, got %q", err.Error())
	}
}

func TestExecute_RecoversMidRetry(t *testing.T) {
	e := NewExecutor(fastRetryConfig(3), nil, zap.NewNop())

	calls := 0
	err := e.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("timeout: %w", domain.ErrProviderTransient)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestExecute_PermanentErrorAbortsImmediately(t *testing.T) {
	b := NewBreaker("perm", BreakerConfig{FailureThreshold: 1}, nil)
	e := NewExecutor(fastRetryConfig(3), b, zap.NewNop())

	calls := 0
	permanent := fmt.Errorf("invalid api key: %w", domain.ErrProviderPermanent)
	err := e.Execute(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})

	if calls != 1 {
		t.Fatalf("permanent errors must not retry, got %d calls", calls)
	}
	if !errors.Is(err, domain.ErrProviderPermanent) {
		t.Fatalf("expected permanent error surfaced as-is, got %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("permanent errors must not trip the breaker, got %s", got)
	}
}

func TestExecute_OpenBreakerFailsFast(t *testing.T) {
	b := NewBreaker("fast", BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Hour}, nil)
	b.RecordFailure()

	e := NewExecutor(fastRetryConfig(3), b, zap.NewNop())

	calls := 0
	err := e.Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	if calls != 0 {
		t.Fatalf("open circuit must not attempt the call, got %d calls", calls)
	}
	if !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestExecute_BreakerCountsPerAttempt(t *testing.T) {
	b := NewBreaker("count", BreakerConfig{FailureThreshold: 5, OpenTimeout: time.Hour}, nil)
	e := NewExecutor(fastRetryConfig(3), b, zap.NewNop())

	transient := fmt.Errorf("503: %w", domain.ErrProviderTransient)
	op := func(context.Context) error { return transient }

	// First exhausted call contributes 3 failures, second opens at 5 and
	// the remaining attempt is rejected without reaching the provider.
	_ = e.Execute(context.Background(), op)
	if got := b.State(); got != StateClosed {
		t.Fatalf("3 failures should not open a threshold-5 breaker, got %s", got)
	}

	err := e.Execute(context.Background(), op)
	if got := b.State(); got != StateOpen {
		t.Fatalf("5 failures must open the breaker, got %s", got)
	}
	if !errors.Is(err, domain.ErrCircuitOpen) && !errors.Is(err, domain.ErrProviderTransient) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecute_ContextCancelDuringBackoff(t *testing.T) {
	e := NewExecutor(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Minute,
		MaxDelay:     time.Minute,
	}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		// Cancel while the executor sleeps before attempt 2.
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := e.Execute(ctx, func(context.Context) error {
		calls++
		return fmt.Errorf("timeout: %w", domain.ErrProviderTransient)
	})

	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExecute_RetryObserver(t *testing.T) {
	var retries int
	e := NewExecutor(fastRetryConfig(3), nil, zap.NewNop(),
		WithRetryObserver(func(string) { retries++ }))

	_ = e.Execute(context.Background(), func(context.Context) error {
		return fmt.Errorf("rate limited: %w", domain.ErrProviderTransient)
	})

	if retries != 2 {
		t.Fatalf("3 attempts imply 2 retries, got %d", retries)
	}
}
