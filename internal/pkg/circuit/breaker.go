package circuit

import (
	"errors"
	"sync"
	"time"

	"github.com/TemirB/orders-enrichment/internal/config"
)

var ErrOpen = errors.New("circuit open")

type State int

const (
	Closed   State = iota // Ok, normal behavior
	Open                  // Open the breaker, do not allow requests until the timeout passes
	HalfOpen              // Half-open state, with trial requests
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker implements the Circuit Breaker.
// In Closed state it opens after 'threshold' consecutive errors, or when the
// failure ratio of the current epoch reaches 'ratio' over at least 'minRequests' calls.
// The epoch is reset every 'interval' while Closed.
// In Open state, it blocks all requests for 'halfOpenAfter' duration.
// In HalfOpen state, it allows up to 'maxHalfOpen' trial requests.
// Requires explicit Success()/Failure() calls to report outcomes.
type Breaker struct {
	mu                 sync.Mutex    // Concurrency Security
	state              State         // Current state of Breaker
	errs, threshold    int           // Current and allowed numbers of consecutive errors
	halfOpenAfter      time.Duration // Wait time before transitioning from Open to HalfOpen
	lastChange         time.Time     // Time of last state change
	trial, maxHalfOpen int           // Current and allowed numbers of trial request

	ratio       float64
	minRequests uint64
	interval    time.Duration
	epochStart  time.Time

	totalSuccess uint64
	totalFailure uint64

	epochSuccess uint64
	epochFailure uint64

	now      func() time.Time
	onChange func(from, to State)
}

type Option func(*Breaker)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// OnStateChange registers a hook called under the breaker lock on every transition.
func OnStateChange(fn func(from, to State)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

func New(cfg config.Breaker, opts ...Option) *Breaker {
	b := &Breaker{
		state:         Closed,
		threshold:     int(cfg.Threshold),
		halfOpenAfter: cfg.OpenTimeout,
		maxHalfOpen:   int(cfg.MaxHalfOpen),
		ratio:         cfg.FailureRatio,
		minRequests:   uint64(cfg.MinRequests),
		interval:      cfg.Interval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.threshold < 1 {
		b.threshold = 1
	}
	if b.maxHalfOpen < 1 {
		b.maxHalfOpen = 1
	}
	b.lastChange = b.now()
	b.epochStart = b.lastChange
	return b
}

// Allow checks if a request is permitted.
// Returns ErrOpen if circuit is open or half-open trial limit reached.
// Automatically transitions Open→HalfOpen after timeout.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch b.state {
	case Open:
		if now.Sub(b.lastChange) < b.halfOpenAfter {
			return ErrOpen
		}
		b.transitionTo(now, HalfOpen)
		b.trial++
		return nil
	case HalfOpen:
		if b.trial >= b.maxHalfOpen {
			return ErrOpen
		}
		b.trial++
		return nil
	default: // Closed
		if b.interval > 0 && now.Sub(b.epochStart) >= b.interval {
			b.resetEpoch(now)
		}
		return nil
	}
}

// Success reports a successful operation.
// Resets error count and transitions HalfOpen→Closed.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.totalSuccess++
	b.epochSuccess++

	switch b.state {
	case HalfOpen:
		b.transitionTo(now, Closed)
	case Closed:
		b.errs = 0
	}
}

// Failure reports a failed operation.
// Triggers Closed→Open transition if error threshold or failure ratio is reached.
// Immediate HalfOpen→Open transition on any failure.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.totalFailure++
	b.epochFailure++

	switch b.state {
	case HalfOpen:
		b.transitionTo(now, Open)
	case Closed:
		b.errs++
		if b.errs >= b.threshold || b.ratioExceeded() {
			b.transitionTo(now, Open)
		}
	}
}

// Release gives back a trial slot taken by Allow when the call ended
// without a verdict (e.g. the caller went away).
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == HalfOpen && b.trial > 0 {
		b.trial--
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Counts returns lifetime success and failure totals.
func (b *Breaker) Counts() (success, failure uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalSuccess, b.totalFailure
}

func (b *Breaker) ratioExceeded() bool {
	if b.ratio <= 0 || b.minRequests == 0 {
		return false
	}
	total := b.epochSuccess + b.epochFailure
	if total < b.minRequests {
		return false
	}
	return float64(b.epochFailure)/float64(total) >= b.ratio
}

func (b *Breaker) resetEpoch(now time.Time) {
	b.epochStart = now
	b.epochFailure = 0
	b.epochSuccess = 0
}

func (b *Breaker) transitionTo(now time.Time, next State) {
	prev := b.state
	b.state = next
	b.lastChange = now

	b.resetEpoch(now)

	b.trial = 0
	if next == Closed {
		b.errs = 0
	}
	if b.onChange != nil && prev != next {
		b.onChange(prev, next)
	}
}
