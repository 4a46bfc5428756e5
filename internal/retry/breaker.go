package retry

import (
	"sync"
	"time"
)

// State is the breaker's operational state.
type State int

const (
	// StateClosed lets every session start.
	StateClosed State = iota
	// StateOpen refuses new sessions until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets a single trial session through.
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
	default:
		return "unknown"
	}
}

// Breaker counts consecutive failed sessions and, once Threshold is
// crossed, holds further sessions back for Cooldown.  After the
// cooldown one trial is allowed; its outcome closes or re-opens the
// breaker.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	threshold int
	cooldown  time.Duration
	openedAt  time.Time
	now       func() time.Time

	// OnStateChange is called under the lock on every transition.
	OnStateChange func(from, to State)
}

// NewBreaker returns a closed breaker.  Non-positive arguments fall
// back to 5 failures and a 30s cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Allow reports whether a new session may start.  When it may not, the
// returned duration is how long the caller should wait before asking
// again.
func (b *Breaker) Allow() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		elapsed := b.now().Sub(b.openedAt)
		if elapsed < b.cooldown {
			return b.cooldown - elapsed, false
		}
		b.transition(StateHalfOpen)
		return 0, true
	default:
		return 0, true
	}
}

// Record feeds the outcome of a session into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.transition(StateClosed)
		return
	}

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.threshold {
		b.openedAt = b.now()
		b.transition(StateOpen)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.transition(StateClosed)
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.OnStateChange != nil {
		b.OnStateChange(from, to)
	}
}
