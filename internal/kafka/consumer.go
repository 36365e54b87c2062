package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TemirB/orders-enrichment/internal/config"
	"github.com/TemirB/orders-enrichment/internal/domain"
	"github.com/TemirB/orders-enrichment/internal/invalidation"
	"github.com/TemirB/orders-enrichment/internal/pkg/retry"
)

// RoutingKeyHeader carries the routing key of a change event. Messages
// without it are routed by their key.
const RoutingKeyHeader = "routing-key"

// maxFetchErrors is how many fetch errors in a row are tolerated before the
// reader is considered lost and recreated.
const maxFetchErrors = 5

type Reader interface {
	Config() kafkago.ReaderConfig
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Binding is one durable subscription: a consumer group on the products
// topic that only takes messages carrying RoutingKey.
type Binding struct {
	RoutingKey string
	Queue      string
}

func Bindings(cfg config.Kafka) []Binding {
	return []Binding{
		{RoutingKey: domain.RoutingProductDeleted, Queue: cfg.DeleteQueue},
		{RoutingKey: domain.RoutingProductRenamed, Queue: cfg.RenameQueue},
	}
}

type Consumer struct {
	binding   Binding
	declare   func(ctx context.Context) error
	newReader func() Reader
	retry     config.Retry
	zlogger   *zap.Logger
	pause     time.Duration
}

type Option func(*Consumer)

// WithReaderFactory replaces the kafka-go reader and topic declaration; used in tests.
func WithReaderFactory(declare func(ctx context.Context) error, newReader func() Reader) Option {
	return func(c *Consumer) {
		c.declare = declare
		c.newReader = newReader
	}
}

func NewConsumer(cfg config.Kafka, b Binding, retryPolicy config.Retry, logger *zap.Logger, opts ...Option) *Consumer {
	c := &Consumer{
		binding: b,
		declare: func(ctx context.Context) error {
			return EnsureTopic(ctx, cfg.Brokers, cfg.ProductsTopic, cfg.Partitions, cfg.ReplicationFactor, logger)
		},
		newReader: func() Reader {
			return kafkago.NewReader(kafkago.ReaderConfig{
				Brokers:     cfg.Brokers,
				GroupID:     b.Queue,
				Topic:       cfg.ProductsTopic,
				StartOffset: kafkago.FirstOffset,
				MinBytes:    1,
				MaxBytes:    10e6,
				MaxWait:     time.Second,
			})
		},
		retry:   retryPolicy,
		zlogger: logger.With(zap.String("binding", b.Queue), zap.String("routing_key", b.RoutingKey)),
		pause:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run feeds matching messages to out until ctx is done. Each message is
// committed only when its delivery is acked, and the next one is not fetched
// before that, so offsets are committed in order. Messages for other routing
// keys are committed and skipped. When the reader is lost it is closed, the
// topic is declared again and a new reader is opened.
func (c *Consumer) Run(ctx context.Context, out chan<- invalidation.Delivery) error {
	for {
		var r Reader
		err := retry.Do(ctx, c.retry, func() error {
			if err := c.declare(ctx); err != nil {
				return err
			}
			r = c.newReader()
			return nil
		}, func(attempt int, err error, delay time.Duration) {
			c.zlogger.Warn("kafka topology not ready, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.zlogger.Error("kafka declare failed, starting over", zap.Error(err))
			sleepWithContext(ctx, max(c.retry.Max, c.retry.Base))
			continue
		}

		rc := r.Config()
		c.zlogger.Info("starting kafka consumer",
			zap.Strings("brokers", rc.Brokers),
			zap.String("group", rc.GroupID),
			zap.String("topic", rc.Topic),
		)

		err = c.consume(ctx, r, out)
		if cerr := r.Close(); cerr != nil {
			c.zlogger.Debug("close reader", zap.Error(cerr))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.zlogger.Warn("kafka reader lost, reconnecting", zap.Error(err))
		sleepWithContext(ctx, c.retry.Base)
	}
}

func (c *Consumer) consume(ctx context.Context, r Reader, out chan<- invalidation.Delivery) error {
	failures := 0
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			if isBenignFetchTimeout(err) {
				c.zlogger.Debug("fetch timeout (idle), backing off", zap.Error(err))
				sleepWithContext(ctx, c.pause)
				continue
			}
			failures++
			if failures >= maxFetchErrors {
				return err
			}
			c.zlogger.Warn("FetchMessage error, backing off", zap.Int("failures", failures), zap.Error(err))
			sleepWithContext(ctx, c.pause)
			continue
		}
		failures = 0

		rk := routingKey(msg)
		if rk != c.binding.RoutingKey {
			if err := r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				c.zlogger.Warn("commit of skipped message failed",
					zap.Error(err),
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
				)
			}
			continue
		}

		acked := make(chan struct{})
		d := invalidation.Delivery{
			RoutingKey: rk,
			Body:       msg.Value,
			Ack: func(ctx context.Context) error {
				defer close(acked)
				return r.CommitMessages(ctx, msg)
			},
		}

		select {
		case out <- d:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case <-acked:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.zlogger.Debug("message committed",
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
	}
}

func routingKey(msg kafkago.Message) string {
	for _, h := range msg.Headers {
		if h.Key == RoutingKeyHeader {
			return string(h.Value)
		}
	}
	return string(msg.Key)
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func isBenignFetchTimeout(err error) bool {
	s := err.Error()
	return strings.Contains(s, "Request Timed Out") ||
		strings.Contains(s, "no messages received from kafka within the allocated time")
}
