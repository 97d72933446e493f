package obs

import (
	"fmt"
	"sync"
	"time"
)

// CircuitState is the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig configures a breaker guarding one namespace's
// commit pass against repeated failures.
type CircuitBreakerConfig struct {
	Name        string
	MaxFailures int
	Timeout     time.Duration
	MaxRequests int
}

// DefaultCircuitBreakerConfig trips after 5 consecutive failed commit
// passes and probes again after 30s.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		MaxRequests: 3,
	}
}

// CircuitBreaker trips after MaxFailures consecutive failures of a guarded
// operation (commit, in this codebase) and holds requests open until a
// half-open probe succeeds MaxRequests times in a row.
type CircuitBreaker struct {
	mu     sync.Mutex
	config CircuitBreakerConfig
	state  CircuitState

	failures  int
	successes int
	requests  int

	expiry time.Time
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{config: config, state: CircuitClosed}
}

// Execute runs fn if the breaker allows it, recording the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}
	err := fn()
	cb.afterRequest(err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	if cb.state == CircuitOpen {
		if now.Before(cb.expiry) {
			return fmt.Errorf("obs: circuit breaker %q is open", cb.config.Name)
		}
		cb.state = CircuitHalfOpen
		cb.requests = 0
	}
	if cb.state == CircuitHalfOpen && cb.requests >= cb.config.MaxRequests {
		return fmt.Errorf("obs: circuit breaker %q is half-open and saturated", cb.config.Name)
	}
	cb.requests++
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.successes = 0
		if cb.state == CircuitHalfOpen || cb.failures >= cb.config.MaxFailures {
			cb.state = CircuitOpen
			cb.expiry = time.Now().Add(cb.config.Timeout)
		}
		return
	}
	cb.successes++
	if cb.state == CircuitClosed {
		cb.failures = 0
		return
	}
	if cb.state == CircuitHalfOpen && cb.successes >= cb.config.MaxRequests {
		cb.state = CircuitClosed
		cb.failures = 0
		cb.successes = 0
	}
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// CircuitBreakerManager hands out one breaker per namespace by name.
type CircuitBreakerManager struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

func NewCircuitBreakerManager() *CircuitBreakerManager {
	return &CircuitBreakerManager{breakers: make(map[string]*CircuitBreaker)}
}

// GetOrCreate returns the named breaker, creating it with config on first use.
func (m *CircuitBreakerManager) GetOrCreate(name string, config CircuitBreakerConfig) *CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[name]; ok {
		return b
	}
	config.Name = name
	b := NewCircuitBreaker(config)
	m.breakers[name] = b
	return b
}
