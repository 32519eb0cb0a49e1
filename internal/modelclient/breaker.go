package modelclient

import (
	"log"
	"sync"
	"time"
)

// Circuit breaker states, adapted from the teacher's
// internal/storage/dolt/circuit.go (which guards a Dolt TCP port) to guard
// a ModelClient instead — the same closed/open/half-open state machine, now
// tripped by provider failures rather than connection refusals.
const (
	circuitClosed   = "closed"
	circuitOpen     = "open"
	circuitHalfOpen = "half-open"
)

const (
	circuitFailureThreshold = 5
	circuitFailureWindow    = 60 * time.Second
	circuitCooldown         = 30 * time.Second
)

type circuitState struct {
	state        string
	failures     int
	firstFailure time.Time
	lastFailure  time.Time
	trippedAt    time.Time
}

// breaker is an in-process circuit breaker protecting one ModelClient.
// Unlike the teacher's file-backed version (needed there because multiple
// `bd` processes share one Dolt server) Forky's ModelClient is owned by a
// single process, so in-memory state suffices.
type breaker struct {
	name string
	mu   sync.Mutex
	st   circuitState
}

func newBreaker(name string) *breaker {
	return &breaker{name: name, st: circuitState{state: circuitClosed}}
}

// errCircuitOpenMsg is the message of the ModelUnavailable error returned
// when the breaker is open and fails fast.
var errCircuitOpenMsg = "model client circuit breaker is open: provider appears down"

// Allow reports whether a call should proceed.
func (b *breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.st.state {
	case circuitOpen:
		if time.Since(b.st.trippedAt) >= circuitCooldown {
			b.st.state = circuitHalfOpen
			log.Printf("[modelclient %s] circuit open -> half-open (cooldown elapsed)", b.name)
			return true
		}
		return false
	case circuitHalfOpen:
		return false
	default:
		return true
	}
}

// RecordSuccess resets the breaker to closed.
func (b *breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st.state == circuitHalfOpen {
		log.Printf("[modelclient %s] circuit half-open -> closed (probe succeeded)", b.name)
	}
	b.st = circuitState{state: circuitClosed}
}

// RecordFailure records a failure, possibly tripping the breaker.
func (b *breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()

	switch b.st.state {
	case circuitHalfOpen:
		b.st.state = circuitOpen
		b.st.trippedAt = now
		b.st.lastFailure = now
		log.Printf("[modelclient %s] circuit half-open -> open (probe failed)", b.name)
	case circuitOpen:
		b.st.lastFailure = now
	default:
		if b.st.failures > 0 && now.Sub(b.st.firstFailure) > circuitFailureWindow {
			b.st.failures = 0
			b.st.firstFailure = time.Time{}
		}
		b.st.failures++
		b.st.lastFailure = now
		if b.st.failures == 1 {
			b.st.firstFailure = now
		}
		if b.st.failures >= circuitFailureThreshold {
			b.st.state = circuitOpen
			b.st.trippedAt = now
			log.Printf("[modelclient %s] circuit closed -> open (tripped after %d failures)", b.name, b.st.failures)
		}
	}
}

func (b *breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st.state
}
