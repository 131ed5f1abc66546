package resilience

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State captures circuit breaker states.
type State int

const (
	// StateClosed indicates normal operation.
	StateClosed State = iota
	// StateOpen indicates the breaker is rejecting calls.
	StateOpen
	// StateHalfOpen indicates trial calls are permitted.
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

// ErrOpenCircuit is returned when a call is rejected because the
// circuit is open. It identifies the circuit and when it last opened so
// callers can distinguish "rejected by breaker" from "the operation
// itself failed".
type ErrOpenCircuit struct {
	Name     string
	OpenedAt time.Time
}

func (e ErrOpenCircuit) Error() string {
	return fmt.Sprintf("resilience: circuit %q open since %s", e.Name, e.OpenedAt.Format(time.RFC3339))
}

// BreakerConfig controls the state machine thresholds.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures within the window that open the circuit
	OpenTimeout      time.Duration // how long the circuit stays open before trial calls
	SuccessThreshold int           // consecutive half-open successes that close the circuit
	MonitoringWindow time.Duration // window in which consecutive failures are counted

	OnStateChange func(name string, from, to State)
	Logger        *zap.Logger

	// Now overrides the clock; tests use a fake.
	Now func() time.Time
}

// CircuitBreaker is the per-method admission state machine. One
// instance exists per wrapped method, created lazily on first call and
// never explicitly destroyed.
type CircuitBreaker struct {
	name string
	cfg  BreakerConfig

	mu                sync.Mutex
	state             State
	consecutiveFails  int
	windowStart       time.Time
	openedAt          time.Time
	halfOpenSuccesses int
	halfOpenInFlight  int
}

// NewCircuitBreaker creates a breaker in the Closed state.
func NewCircuitBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 1
	}
	return &CircuitBreaker{name: name, cfg: cfg, state: StateClosed}
}

// Name returns the stable method identity the breaker guards.
func (b *CircuitBreaker) Name() string { return b.name }

// State returns the current state, applying the Open→HalfOpen timeout
// transition if it is due.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpen()
	return b.state
}

// Allow reports whether a call may proceed. In the Open state it
// returns ErrOpenCircuit without invoking anything; once OpenTimeout
// elapses the breaker moves to HalfOpen and admits up to
// SuccessThreshold trial calls at a time. Further callers are rejected
// until an admitted trial records its outcome.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpen()
	switch b.state {
	case StateOpen:
		return ErrOpenCircuit{Name: b.name, OpenedAt: b.openedAt}
	case StateHalfOpen:
		if b.halfOpenInFlight >= b.cfg.SuccessThreshold {
			return ErrOpenCircuit{Name: b.name, OpenedAt: b.openedAt}
		}
		b.halfOpenInFlight++
	}
	return nil
}

// RecordSuccess notes a successful call.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.cfg.SuccessThreshold {
			b.transition(StateClosed)
		}
	case StateClosed:
		b.consecutiveFails = 0
	}
}

// RecordFailure notes a failed call. In Closed state, reaching
// FailureThreshold consecutive failures within MonitoringWindow opens
// the circuit; in HalfOpen state any failure reopens it.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch b.state {
	case StateClosed:
		if b.cfg.MonitoringWindow > 0 && !b.windowStart.IsZero() &&
			now.Sub(b.windowStart) > b.cfg.MonitoringWindow {
			b.consecutiveFails = 0
		}
		if b.consecutiveFails == 0 {
			b.windowStart = now
		}
		b.consecutiveFails++
		if b.consecutiveFails >= b.cfg.FailureThreshold {
			b.openedAt = now
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.openedAt = now
		b.transition(StateOpen)
	}
}

// maybeHalfOpen applies the Open→HalfOpen timeout transition.
// Caller holds b.mu.
func (b *CircuitBreaker) maybeHalfOpen() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.transition(StateHalfOpen)
	}
}

// transition moves to a new state and resets its counters.
// Caller holds b.mu.
func (b *CircuitBreaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to

	switch to {
	case StateClosed:
		b.consecutiveFails = 0
		b.windowStart = time.Time{}
	case StateHalfOpen:
		b.halfOpenSuccesses = 0
		b.halfOpenInFlight = 0
	}

	if b.cfg.Logger != nil {
		b.cfg.Logger.Info("circuit state change",
			zap.String("circuit", b.name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}

func (b *CircuitBreaker) now() time.Time {
	if b.cfg.Now != nil {
		return b.cfg.Now()
	}
	return time.Now()
}

// Break runs op under the breaker's admission control. Rejected calls
// never invoke op; a passed-through failure is returned unchanged.
func Break[T any](b *CircuitBreaker, op func() (T, error)) (T, error) {
	var zero T
	if err := b.Allow(); err != nil {
		return zero, err
	}
	result, err := op()
	if err != nil {
		b.RecordFailure()
		return zero, err
	}
	b.RecordSuccess()
	return result, nil
}

// BreakerRegistry is the process-wide map of per-method breakers,
// looked up by stable method identity. All mutation happens under the
// registry's own lock, never a caller-held one.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewBreakerRegistry creates an empty registry; tests instantiate
// isolated registries instead of sharing the global one.
func NewBreakerRegistry() *BreakerRegistry {
	return &BreakerRegistry{breakers: make(map[string]*CircuitBreaker)}
}

// Get returns the breaker for name, creating it from cfg on first use.
// The config of an existing breaker is not replaced.
func (r *BreakerRegistry) Get(name string, cfg BreakerConfig) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewCircuitBreaker(name, cfg)
	r.breakers[name] = b
	return b
}

// Reset clears the registry (used for testing).
func (r *BreakerRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers = make(map[string]*CircuitBreaker)
}

var defaultBreakers = NewBreakerRegistry()

// Breakers returns the process-wide breaker registry the generated
// wrappers use.
func Breakers() *BreakerRegistry { return defaultBreakers }
