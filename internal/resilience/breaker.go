package resilience

import (
	"sync"
	"time"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed lets calls pass through and counts failures.
	StateClosed State = iota
	// StateOpen rejects calls without attempting them.
	StateOpen
	// StateHalfOpen lets a limited number of trial calls through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds circuit breaker thresholds.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures to open (default 5)
	SuccessesToClose int           // half-open successes to close (default 3)
	OpenTimeout      time.Duration // time in open before half-open (default 30s)
	MaxHalfOpenCalls int           // trial calls admitted while half-open (default = SuccessesToClose)
}

// ApplyDefaults fills zero fields with default thresholds.
func (c *BreakerConfig) ApplyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessesToClose <= 0 {
		c.SuccessesToClose = 3
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.MaxHalfOpenCalls <= 0 {
		c.MaxHalfOpenCalls = c.SuccessesToClose
	}
}

// TransitionFunc observes breaker state changes (for metrics/logging).
type TransitionFunc func(endpoint string, from, to State)

// Breaker is a circuit breaker for one external endpoint. All state is
// guarded by an internal mutex; callers never need their own locking.
type Breaker struct {
	endpoint     string
	cfg          BreakerConfig
	onTransition TransitionFunc
	now          func() time.Time

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	halfOpenCalls int
	openedAt      time.Time
}

// NewBreaker creates a closed breaker for the given endpoint identity.
func NewBreaker(endpoint string, cfg BreakerConfig, onTransition TransitionFunc) *Breaker {
	cfg.ApplyDefaults()
	return &Breaker{
		endpoint:     endpoint,
		cfg:          cfg,
		onTransition: onTransition,
		now:          time.Now,
	}
}

// Endpoint returns the endpoint identity this breaker guards.
func (b *Breaker) Endpoint() string { return b.endpoint }

// State returns the current state, promoting open to half-open once the
// open timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

// Allow reports whether a call may proceed. While half-open only
// MaxHalfOpenCalls trial calls are admitted.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		return false
	default: // half-open
		if b.halfOpenCalls < b.cfg.MaxHalfOpenCalls {
			b.halfOpenCalls++
			return true
		}
		return false
	}
}

// RecordSuccess registers a successful call. Enough consecutive
// half-open successes close the circuit and reset all counters.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessesToClose {
			b.transition(StateClosed)
			b.failures = 0
			b.successes = 0
		}
	case StateClosed:
		b.failures = 0
	}
}

// RecordFailure registers a failed call. A half-open failure reopens the
// circuit immediately and restarts the open timer.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.openedAt = b.now()

	switch b.state {
	case StateHalfOpen:
		b.transition(StateOpen)
		b.successes = 0
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
		}
	}
}

// refresh applies the lazy open -> half-open transition. Caller holds mu.
func (b *Breaker) refresh() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.transition(StateHalfOpen)
		b.halfOpenCalls = 0
		b.successes = 0
	}
}

// transition changes state and notifies the observer. Caller holds mu.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onTransition != nil {
		b.onTransition(b.endpoint, from, to)
	}
}
