package invalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/TemirB/orders-enrichment/internal/domain"
	"github.com/TemirB/orders-enrichment/internal/observability"
)

var ErrUnknownRoutingKey = errors.New("unknown routing key")

// Delivery is one message handed over by a broker binding. Ack must be
// safe to call exactly once.
type Delivery struct {
	RoutingKey string
	Body       []byte
	Ack        func(ctx context.Context) error
}

// Decode turns a message body into the event its routing key names.
func Decode(routingKey string, body []byte) (domain.ChangeEvent, error) {
	switch routingKey {
	case domain.RoutingProductDeleted:
		var e domain.ProductDeleted
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", routingKey, err)
		}
		if strings.TrimSpace(e.ProductID) == "" {
			return nil, fmt.Errorf("decode %s: empty productID", routingKey)
		}
		return e, nil
	case domain.RoutingProductRenamed:
		var e domain.ProductRenamed
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", routingKey, err)
		}
		if strings.TrimSpace(e.ProductID) == "" {
			return nil, fmt.Errorf("decode %s: empty productID", routingKey)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoutingKey, routingKey)
	}
}

type applier interface {
	Apply(ctx context.Context, ev domain.ChangeEvent) (Mutation, error)
}

type Subscriber struct {
	applier applier
	logger  *zap.Logger
	metrics observability.Metrics
}

func NewSubscriber(a applier, logger *zap.Logger, metrics observability.Metrics) *Subscriber {
	if metrics == nil {
		metrics = observability.Noop{}
	}
	return &Subscriber{applier: a, logger: logger, metrics: metrics}
}

// Run handles deliveries until ctx is done or the channel is closed.
// Every delivery is acknowledged once its cache operation was attempted,
// including ones that could not be decoded.
func (s *Subscriber) Run(ctx context.Context, deliveries <-chan Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			s.Handle(ctx, d)
		}
	}
}

func (s *Subscriber) Handle(ctx context.Context, d Delivery) {
	defer s.ack(ctx, d)

	ev, err := Decode(d.RoutingKey, d.Body)
	if err != nil {
		s.logger.Error("dropping undecodable change event",
			zap.String("routing_key", d.RoutingKey),
			zap.Int("body_bytes", len(d.Body)),
			zap.Error(err),
		)
		s.metrics.ObserveInvalidation(d.RoutingKey, "poison", false)
		return
	}

	m, err := s.applier.Apply(ctx, ev)
	if err != nil {
		s.logger.Error("apply change event",
			zap.String("routing_key", d.RoutingKey),
			zap.String("product_id", ev.EntityID()),
			zap.Error(err),
		)
		s.metrics.ObserveInvalidation(d.RoutingKey, m.Kind.String(), false)
		return
	}

	if m.Kind == None {
		s.logger.Debug("product not cached, nothing to do",
			zap.String("routing_key", d.RoutingKey),
			zap.String("key", m.Key),
		)
	} else {
		s.logger.Info("cache updated from change event",
			zap.String("routing_key", d.RoutingKey),
			zap.String("key", m.Key),
			zap.Stringer("mutation", m.Kind),
		)
	}
	s.metrics.ObserveInvalidation(d.RoutingKey, m.Kind.String(), true)
}

func (s *Subscriber) ack(ctx context.Context, d Delivery) {
	if d.Ack == nil {
		return
	}
	if err := d.Ack(ctx); err != nil {
		s.logger.Warn("ack change event",
			zap.String("routing_key", d.RoutingKey),
			zap.Error(err),
		)
	}
}
