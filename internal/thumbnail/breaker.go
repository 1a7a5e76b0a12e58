package thumbnail

import (
	"sync"
	"time"
)

// BreakerState represents the state of a circuit breaker
type BreakerState int

const (
	// StateClosed indicates the breaker is closed (normal operation)
	StateClosed BreakerState = iota
	// StateOpen indicates the breaker is open (failing fast)
	StateOpen
	// StateHalfOpen indicates the breaker lets a single attempt through
	StateHalfOpen
)

// String returns the string representation of BreakerState
func (s BreakerState) String() string {
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

// Breaker counts consecutive transport failures against the image host and
// fails fetches immediately while open. It never retries anything itself.
type Breaker struct {
	failureThreshold int
	resetTimeout     time.Duration
	state            BreakerState
	failures         int
	probing          bool
	lastFailureTime  time.Time
	now              func() time.Time
	mu               sync.Mutex
}

// NewBreaker creates a breaker that opens after failureThreshold consecutive
// failures and half-opens after resetTimeout
func NewBreaker(failureThreshold int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

// Call executes fn if the breaker allows it. Only errors for which
// countable returns true move the breaker toward open.
func (b *Breaker) Call(fn func() error, countable func(error) bool) error {
	if !b.Allow() {
		return ErrHostUnavailable
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil && countable(err) {
		b.recordFailureLocked()
		return err
	}

	b.recordSuccessLocked()
	return err
}

// Allow reports whether an attempt may proceed, moving Open to HalfOpen once
// the reset timeout elapsed. While half-open only the first caller is admitted
// until its outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return false
	}
}

// recordSuccessLocked records a successful operation (must hold lock)
func (b *Breaker) recordSuccessLocked() {
	b.probing = false
	b.failures = 0
	if b.state == StateHalfOpen {
		b.state = StateClosed
	}
}

// recordFailureLocked records a failed operation (must hold lock)
func (b *Breaker) recordFailureLocked() {
	b.probing = false
	b.failures++
	b.lastFailureTime = b.now()

	if b.state == StateHalfOpen || b.failures >= b.failureThreshold {
		b.state = StateOpen
	}
}

// State returns the current state of the breaker
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// stateLocked applies the open to half-open transition (must hold lock)
func (b *Breaker) stateLocked() BreakerState {
	if b.state == StateOpen && b.now().Sub(b.lastFailureTime) >= b.resetTimeout {
		b.state = StateHalfOpen
		b.failures = 0
		b.probing = false
	}
	return b.state
}

// Failures returns the current consecutive failure count
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset resets the breaker to its initial state
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.probing = false
	b.lastFailureTime = time.Time{}
}
