package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// StateChangeFunc is called after a transition, outside the breaker lock.
type StateChangeFunc func(name string, from, to CircuitState)

// CircuitBreaker trips after FailureThreshold consecutive failures. Once
// OpenTimeout has passed it admits up to HalfOpenMaxReq probes, and closes
// again only when all of them succeed.
type CircuitBreaker struct {
	name     string
	cfg      CircuitBreakerConfig
	onChange StateChangeFunc
	now      func() time.Time

	mu       sync.Mutex
	state    CircuitState
	failures int       // consecutive, while closed
	since    time.Time // when the breaker last opened
	probes   int       // half-open probes admitted and not yet reported
	passed   int       // half-open probes that succeeded
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, onChange StateChangeFunc) *CircuitBreaker {
	return &CircuitBreaker{
		name:     name,
		cfg:      NormalizeCircuitBreakerConfig(cfg),
		onChange: onChange,
		now:      time.Now,
		state:    CircuitStateClosed,
	}
}

func (b *CircuitBreaker) Name() string {
	return b.name
}

// Allow reports whether a call may proceed. A nil error while half-open
// reserves a probe slot that RecordSuccess or RecordFailure releases.
func (b *CircuitBreaker) Allow() error {
	var err error
	b.transition(func() {
		if b.state == CircuitStateOpen {
			if b.now().Sub(b.since) < b.cfg.OpenTimeout {
				err = ErrCircuitOpen
				return
			}
			b.set(CircuitStateHalfOpen)
		}
		if b.state == CircuitStateHalfOpen {
			if b.probes >= b.cfg.HalfOpenMaxReq {
				err = ErrCircuitOpen
				return
			}
			b.probes++
		}
	})
	return err
}

func (b *CircuitBreaker) RecordSuccess() {
	b.transition(func() {
		switch b.state {
		case CircuitStateClosed:
			b.failures = 0
		case CircuitStateHalfOpen:
			b.probes = max(b.probes-1, 0)
			b.passed++
			if b.passed >= b.cfg.HalfOpenMaxReq && b.probes == 0 {
				b.set(CircuitStateClosed)
			}
		}
	})
}

func (b *CircuitBreaker) RecordFailure() {
	b.transition(func() {
		switch b.state {
		case CircuitStateClosed:
			b.failures++
			if b.failures >= b.cfg.FailureThreshold {
				b.set(CircuitStateOpen)
			}
		case CircuitStateHalfOpen:
			b.set(CircuitStateOpen)
		case CircuitStateOpen:
			b.since = b.now()
		}
	})
}

// State reports the effective state. An open breaker whose timeout has
// elapsed reads as half-open even before the next Allow moves it there.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.since) >= b.cfg.OpenTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

// transition runs fn under the lock and reports any state change afterwards.
func (b *CircuitBreaker) transition(fn func()) {
	b.mu.Lock()
	from := b.state
	fn()
	to := b.state
	b.mu.Unlock()

	if from != to && b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}

// set enters state and resets the counters that belong to it.
func (b *CircuitBreaker) set(state CircuitState) {
	b.state = state
	b.probes, b.passed = 0, 0
	switch state {
	case CircuitStateClosed:
		b.failures = 0
		b.since = time.Time{}
	case CircuitStateOpen:
		b.since = b.now()
	}
}
