package resilience

import "sync"

// Registry hands out one circuit breaker per external endpoint identity.
// It is injected into executors instead of living as ambient global state
// so tests can isolate endpoints.
type Registry struct {
	cfg          BreakerConfig
	onTransition TransitionFunc

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates a registry that builds breakers with the given
// config. onTransition may be nil.
func NewRegistry(cfg BreakerConfig, onTransition TransitionFunc) *Registry {
	cfg.ApplyDefaults()
	return &Registry{
		cfg:          cfg,
		onTransition: onTransition,
		breakers:     make(map[string]*Breaker),
	}
}

// Get returns the breaker for the endpoint, creating it on first use.
func (r *Registry) Get(endpoint string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[endpoint]
	if !ok {
		b = NewBreaker(endpoint, r.cfg, r.onTransition)
		r.breakers[endpoint] = b
	}
	return b
}

// States returns a snapshot of every known breaker's state.
func (r *Registry) States() map[string]State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]State, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.State()
	}
	return out
}
