package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests while half-open")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a Breaker. Zero values pick the defaults noted below.
type Settings struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default 5.
	FailureThreshold int
	// Cooldown is how long the circuit stays open before probing. Default 30s.
	Cooldown time.Duration
	// HalfOpenProbes is the number of trial calls allowed while half-open,
	// and the number of successes needed to close again. Default 1.
	HalfOpenProbes int
	// IsFailure decides whether an error counts against the circuit. Errors
	// the remote side answered deliberately (not found, conflict) should not.
	// Default: every non-nil error counts.
	IsFailure func(error) bool
	// OnStateChange is called with the lock released after each transition.
	OnStateChange func(name string, from, to State)
}

// Breaker guards calls to the shelf daemon so a dead daemon fails fast
// instead of stalling every CLI command on retries.
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	inFlight  int
	openedAt  time.Time
}

// New creates a breaker in the closed state.
func New(name string, settings Settings) *Breaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}
	if settings.HalfOpenProbes <= 0 {
		settings.HalfOpenProbes = 1
	}
	if settings.IsFailure == nil {
		settings.IsFailure = func(err error) bool { return err != nil }
	}
	return &Breaker{name: name, settings: settings, now: time.Now}
}

// Name returns the breaker's name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, promoting open to half-open once the
// cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, notify := b.refresh()
	b.fire(notify)
	return state
}

// Do runs fn if the circuit admits it and records the outcome.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}

	var err error
	defer func() {
		if r := recover(); r != nil {
			b.record(true)
			panic(r)
		}
		b.record(b.settings.IsFailure(err))
	}()

	err = fn()
	return err
}

// Call is Do for functions that return a value.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var out T
	err := b.Do(func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

type transition struct {
	from, to State
	ok       bool
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	state, notify := b.refresh()
	var err error
	switch state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if b.inFlight >= b.settings.HalfOpenProbes {
			err = ErrTooManyRequests
		}
	}
	if err == nil {
		b.inFlight++
	}
	b.mu.Unlock()

	b.fire(notify)
	return err
}

func (b *Breaker) record(failed bool) {
	b.mu.Lock()
	if b.inFlight > 0 {
		b.inFlight--
	}

	var notify transition
	switch b.state {
	case StateClosed:
		if failed {
			b.failures++
			if b.failures >= b.settings.FailureThreshold {
				notify = b.setState(StateOpen)
			}
		} else {
			b.failures = 0
		}
	case StateHalfOpen:
		if failed {
			notify = b.setState(StateOpen)
		} else {
			b.successes++
			if b.successes >= b.settings.HalfOpenProbes {
				notify = b.setState(StateClosed)
			}
		}
	}
	b.mu.Unlock()

	b.fire(notify)
}

// refresh must be called with mu held.
func (b *Breaker) refresh() (State, transition) {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.Cooldown {
		return StateHalfOpen, b.setState(StateHalfOpen)
	}
	return b.state, transition{}
}

// setState must be called with mu held.
func (b *Breaker) setState(to State) transition {
	from := b.state
	if from == to {
		return transition{}
	}
	b.state = to
	b.failures, b.successes, b.inFlight = 0, 0, 0
	if to == StateOpen {
		b.openedAt = b.now()
	}
	return transition{from: from, to: to, ok: true}
}

func (b *Breaker) fire(t transition) {
	if t.ok && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, t.from, t.to)
	}
}
