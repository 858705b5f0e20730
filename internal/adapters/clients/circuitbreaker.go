package clients

import (
	"sync"
	"time"
)

// State is the circuit breaker position.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cool-down elapses.
	StateOpen
	// StateHalfOpen admits a few probe calls to test recovery.
	StateHalfOpen
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

// String returns the name used in logs, metrics and readiness output.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// CircuitBreakerConfig tunes the breaker in front of the remote quote endpoint.
type CircuitBreakerConfig struct {
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int
	// Timeout is the open-state cool-down before probing again.
	Timeout time.Duration
	// HalfOpenLimit caps concurrent probes and is also the number of
	// consecutive probe successes that close the circuit.
	HalfOpenLimit int
}

// CircuitBreaker stops the reconciler and submissions from hammering a remote
// that keeps failing. Any probe failure reopens the circuit.
type CircuitBreaker struct {
	mu  sync.RWMutex
	cfg CircuitBreakerConfig

	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time

	onStateChange func(from, to State)
	now           func() time.Time
}

// NewCircuitBreaker returns a closed breaker. Limits below one are raised to one.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cfg.MaxFailures = max(cfg.MaxFailures, 1)
	cfg.HalfOpenLimit = max(cfg.HalfOpenLimit, 1)

	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// OnStateChange registers fn to run after each transition. It is called
// outside the breaker's lock, on the goroutine that caused the change.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	cb.onStateChange = fn
	cb.mu.Unlock()
}

// Allow reports whether a call may proceed. An open circuit whose cool-down
// has elapsed moves to half-open and admits the caller as the first probe.
func (cb *CircuitBreaker) Allow() bool {
	var allowed bool

	cb.update(func() State {
		switch cb.state {
		case StateClosed:
			allowed = true
		case StateOpen:
			if cb.now().Sub(cb.openedAt) < cb.cfg.Timeout {
				return cb.state
			}

			allowed = true
			cb.probes = 1

			return StateHalfOpen
		case StateHalfOpen:
			if cb.probes < cb.cfg.HalfOpenLimit {
				cb.probes++
				allowed = true
			}
		}

		return cb.state
	})

	return allowed
}

// RecordSuccess clears the failure streak, or counts a successful probe.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.update(func() State {
		switch cb.state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.probes--
			cb.successes++

			if cb.successes >= cb.cfg.HalfOpenLimit {
				return StateClosed
			}
		}

		return cb.state
	})
}

// RecordFailure extends the failure streak, or reopens on a failed probe.
func (cb *CircuitBreaker) RecordFailure() {
	cb.update(func() State {
		switch cb.state {
		case StateClosed:
			cb.failures++

			if cb.failures >= cb.cfg.MaxFailures {
				cb.openedAt = cb.now()
				return StateOpen
			}
		case StateHalfOpen:
			cb.probes--
			cb.openedAt = cb.now()

			return StateOpen
		}

		return cb.state
	})
}

// State returns the current position.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return cb.state
}

// Failures returns the current closed-state failure streak.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return cb.failures
}

// update runs step under the lock and applies the state it returns. Counters
// reset on every transition; the callback fires after unlocking.
func (cb *CircuitBreaker) update(step func() State) {
	cb.mu.Lock()

	from := cb.state
	to := step()

	if to == from {
		cb.mu.Unlock()
		return
	}

	cb.state = to
	cb.failures = 0
	cb.successes = 0
	notify := cb.onStateChange
	cb.mu.Unlock()

	if notify != nil {
		notify(from, to)
	}
}
