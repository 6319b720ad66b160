package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrOpen = errors.New("circuit breaker is open")

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
		return "half-open"
	}
	return "unknown"
}

// CircuitBreaker opens once more than maxFailures calls failed within the
// sliding window. After timeout one trial call is let through (half-open):
// success closes the breaker, failure opens it again.
type CircuitBreaker struct {
	maxFailures int
	window      time.Duration
	timeout     time.Duration
	failures    []time.Time
	openedAt    time.Time
	state       State
	trialActive bool
	now         func() time.Time
	mu          sync.Mutex
}

func New(maxFailures int, timeout time.Duration) *CircuitBreaker {
	return NewWithWindow(maxFailures, timeout, 60*time.Second)
}

func NewWithWindow(maxFailures int, timeout, window time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: maxFailures,
		window:      window,
		timeout:     timeout,
		state:       StateClosed,
		failures:    make([]time.Time, 0),
		now:         time.Now,
	}
}

// Execute runs fn unless the breaker is open, in which case ErrOpen is
// returned without calling fn. The lock is not held while fn runs.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.timeout {
			return ErrOpen
		}
		cb.state = StateHalfOpen
		cb.trialActive = true
		return nil
	case StateHalfOpen:
		if cb.trialActive {
			return ErrOpen
		}
		cb.trialActive = true
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cb.dropExpired(now)

	if cb.state == StateHalfOpen {
		cb.trialActive = false
		if err != nil {
			cb.trip(now)
			return
		}
		cb.state = StateClosed
		cb.failures = cb.failures[:0]
		return
	}

	if err == nil {
		return
	}
	cb.failures = append(cb.failures, now)
	if len(cb.failures) > cb.maxFailures {
		cb.trip(now)
	}
}

func (cb *CircuitBreaker) trip(now time.Time) {
	cb.state = StateOpen
	cb.openedAt = now
	cb.failures = cb.failures[:0]
}

func (cb *CircuitBreaker) dropExpired(now time.Time) {
	cutoff := now.Add(-cb.window)
	keep := 0
	for keep < len(cb.failures) && !cb.failures[keep].After(cutoff) {
		keep++
	}
	cb.failures = cb.failures[keep:]
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.timeout {
		return StateHalfOpen
	}
	return cb.state
}
