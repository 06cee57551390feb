package llm

import (
	"fmt"
	"sync"
	"time"
)

// State is one of the three circuit breaker states.
type State int

const (
	StateClosed State = iota
	StateOpen
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

// CircuitBreakerConfig mirrors original_source/llm/circuit_breaker.py's
// CircuitBreakerConfig field-for-field, including its default values.
type CircuitBreakerConfig struct {
	FailureThreshold  int
	CooldownSeconds   float64
	HalfOpenMaxCalls  int
	SuccessThreshold  int
}

// DefaultCircuitBreakerConfig matches original_source's dataclass defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 10,
		CooldownSeconds:  60.0,
		HalfOpenMaxCalls: 3,
		SuccessThreshold: 2,
	}
}

// CircuitBreakerOpenError is raised by Check when the circuit will not admit
// a call right now.
type CircuitBreakerOpenError struct {
	CooldownRemaining time.Duration
}

func (e *CircuitBreakerOpenError) Error() string {
	return fmt.Sprintf("llm: circuit breaker open, cooldown remaining %s", e.CooldownRemaining)
}

// CircuitBreaker protects a provider from being hammered during an outage:
// after FailureThreshold consecutive failures it opens and rejects calls for
// CooldownSeconds, then allows a limited number of half-open probe calls
// before closing again on SuccessThreshold consecutive successes.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu               sync.Mutex
	state            State
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	halfOpenCalls    int
}

// NewCircuitBreaker constructs a closed circuit breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// State returns the breaker's current state after refreshing it against the
// cooldown clock.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refreshState(time.Now())
	return cb.state
}

// refreshState transitions OPEN -> HALF_OPEN once the cooldown has elapsed.
// Caller must hold cb.mu.
func (cb *CircuitBreaker) refreshState(now time.Time) {
	if cb.state != StateOpen {
		return
	}
	if now.Sub(cb.lastFailureTime).Seconds() >= cb.cfg.CooldownSeconds {
		cb.state = StateHalfOpen
		cb.halfOpenCalls = 0
		cb.successCount = 0
	}
}

// Check must be called before attempting a provider call; it returns
// CircuitBreakerOpenError if the call should not be attempted.
func (cb *CircuitBreaker) Check() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := time.Now()
	cb.refreshState(now)

	switch cb.state {
	case StateOpen:
		remaining := time.Duration(cb.cfg.CooldownSeconds*float64(time.Second)) - now.Sub(cb.lastFailureTime)
		if remaining < 0 {
			remaining = 0
		}
		return &CircuitBreakerOpenError{CooldownRemaining: remaining}
	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.cfg.HalfOpenMaxCalls {
			return &CircuitBreakerOpenError{CooldownRemaining: 0}
		}
		cb.halfOpenCalls++
		return nil
	default:
		return nil
	}
}

// RecordSuccess reports a successful call, potentially closing a half-open
// breaker once SuccessThreshold consecutive successes are seen.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.cfg.SuccessThreshold {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.successCount = 0
		}
	case StateClosed:
		cb.failureCount = 0
	}
}

// RecordFailure reports a failed call, opening the breaker once
// FailureThreshold consecutive failures accumulate (or immediately on any
// half-open failure).
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.lastFailureTime = time.Now()
	switch cb.state {
	case StateHalfOpen:
		cb.state = StateOpen
		cb.failureCount = cb.cfg.FailureThreshold
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.cfg.FailureThreshold {
			cb.state = StateOpen
		}
	}
}

// Reset returns the breaker to its initial closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.halfOpenCalls = 0
}
