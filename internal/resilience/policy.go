// Package resilience wraps one remote dependency with, from outside in:
// fallback, bulkhead, and timeout plus circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TemirB/orders-enrichment/internal/domain"
	"github.com/TemirB/orders-enrichment/internal/observability"
	"github.com/TemirB/orders-enrichment/internal/pkg/bulkhead"
	"github.com/TemirB/orders-enrichment/internal/pkg/circuit"
)

var ErrTimeout = errors.New("upstream timeout")

type FetchFunc[T any] func(ctx context.Context, id string) (T, error)

type settings struct {
	bulkhead *bulkhead.Bulkhead
	breaker  *circuit.Breaker
	timeout  time.Duration
	logger   *zap.Logger
	metrics  observability.Metrics
}

type Option func(*settings)

func WithBulkhead(b *bulkhead.Bulkhead) Option {
	return func(s *settings) { s.bulkhead = b }
}

// WithBreaker enables the circuit breaker. A nil breaker leaves it disabled.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *settings) { s.breaker = b }
}

func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func WithMetrics(m observability.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

type Policy[T any] struct {
	name     string
	fetch    FetchFunc[T]
	fallback func(id string) T
	settings
}

// New builds a policy named after the entity it protects ("product", "user").
// Without WithBulkhead a 10/40 bulkhead is used; without WithTimeout, 1500ms.
func New[T any](name string, fetch FetchFunc[T], fallback func(id string) T, opts ...Option) *Policy[T] {
	s := settings{
		timeout: 1500 * time.Millisecond,
		logger:  zap.NewNop(),
		metrics: observability.Noop{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.bulkhead == nil {
		s.bulkhead = bulkhead.New(10, 40)
	}
	return &Policy[T]{name: name, fetch: fetch, fallback: fallback, settings: s}
}

type fetched[T any] struct {
	v   T
	err error
}

// Execute never returns an error: every failure is folded into the Result.
func (p *Policy[T]) Execute(ctx context.Context, id string) Result[T] {
	start := time.Now()
	res, reason := p.execute(ctx, id)
	if reason == "" {
		reason = res.Outcome.String()
	}
	p.metrics.ObserveUpstream(p.name, reason, observability.Millis(time.Since(start)))

	if res.Outcome == Degraded {
		p.logger.Warn("upstream degraded, using fallback",
			zap.String("upstream", p.name),
			zap.String("id", id),
			zap.String("reason", reason),
			zap.Error(res.Err),
		)
	}
	return res
}

func (p *Policy[T]) execute(ctx context.Context, id string) (Result[T], string) {
	release, err := p.bulkhead.Acquire(ctx)
	if err != nil {
		if errors.Is(err, bulkhead.ErrRejected) {
			return p.degrade(id, err), "rejected"
		}
		return p.degrade(id, err), "canceled"
	}

	if p.breaker != nil {
		if err := p.breaker.Allow(); err != nil {
			release()
			return p.degrade(id, err), "open"
		}
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// The slot is held until fetch really returns, even past the timeout.
	done := make(chan fetched[T], 1)
	go func() {
		defer release()
		v, err := p.fetch(cctx, id)
		done <- fetched[T]{v: v, err: err}
	}()

	var f fetched[T]
	select {
	case f = <-done:
	case <-cctx.Done():
		f.err = cctx.Err()
	}

	switch {
	case f.err == nil:
		p.success()
		return Result[T]{Value: f.v, Outcome: OK}, ""
	case errors.Is(f.err, domain.ErrNotFound):
		p.success()
		return Result[T]{Outcome: NotFound, Err: f.err}, ""
	case errors.Is(f.err, domain.ErrCallerFault):
		p.success()
		return Result[T]{Outcome: CallerFault, Err: f.err}, ""
	case ctx.Err() != nil:
		// the caller went away; that says nothing about the upstream
		if p.breaker != nil {
			p.breaker.Release()
		}
		return p.degrade(id, ctx.Err()), "canceled"
	case cctx.Err() != nil:
		p.failure()
		return p.degrade(id, fmt.Errorf("%w after %s", ErrTimeout, p.timeout)), "timeout"
	default:
		p.failure()
		return p.degrade(id, f.err), "transport"
	}
}

func (p *Policy[T]) degrade(id string, err error) Result[T] {
	return Result[T]{Value: p.fallback(id), Outcome: Degraded, Err: err}
}

func (p *Policy[T]) success() {
	if p.breaker != nil {
		p.breaker.Success()
	}
}

func (p *Policy[T]) failure() {
	if p.breaker != nil {
		p.breaker.Failure()
	}
}

// BreakerHook logs and reports breaker transitions of the named upstream.
func BreakerHook(name string, logger *zap.Logger, metrics observability.Metrics) circuit.Option {
	return circuit.OnStateChange(func(from, to circuit.State) {
		logger.Info("circuit breaker state changed",
			zap.String("upstream", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
		metrics.ObserveBreaker(name, to.String())
	})
}
