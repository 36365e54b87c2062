package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/TemirB/orders-enrichment/internal/config"
	"github.com/TemirB/orders-enrichment/internal/domain"
	"github.com/TemirB/orders-enrichment/internal/invalidation"
)

var testRetry = config.Retry{Attempts: 3, Base: time.Millisecond, Max: 2 * time.Millisecond}

// fakeReader serves scripted fetch results, then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	script    []fetchResult
	committed []int64
	closed    bool
}

type fetchResult struct {
	msg kafkago.Message
	err error
}

func (r *fakeReader) Config() kafkago.ReaderConfig {
	return kafkago.ReaderConfig{Topic: "products-events", GroupID: "test"}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	if len(r.script) > 0 {
		next := r.script[0]
		r.script = r.script[1:]
		r.mu.Unlock()
		return next.msg, next.err
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func message(offset int64, routingKey string, body string) kafkago.Message {
	return kafkago.Message{
		Offset:  offset,
		Value:   []byte(body),
		Headers: []kafkago.Header{{Key: RoutingKeyHeader, Value: []byte(routingKey)}},
	}
}

var deleteBinding = Binding{RoutingKey: domain.RoutingProductDeleted, Queue: "orders.product.delete.queue"}

// collect acks every delivery and returns their bodies once n arrived.
func collect(t *testing.T, out <-chan invalidation.Delivery, n int) []string {
	t.Helper()
	var bodies []string
	for len(bodies) < n {
		select {
		case d := <-out:
			bodies = append(bodies, string(d.Body))
			require.NoError(t, d.Ack(context.Background()))
		case <-time.After(2 * time.Second):
			t.Fatalf("got %d of %d deliveries", len(bodies), n)
		}
	}
	return bodies
}

func TestConsumerFiltersByRoutingKey(t *testing.T) {
	r := &fakeReader{script: []fetchResult{
		{msg: message(1, domain.RoutingProductDeleted, `{"productID":"P1"}`)},
		{msg: message(2, domain.RoutingProductRenamed, `{"productID":"P1","newProductName":"x"}`)},
		{msg: kafkago.Message{Offset: 3, Key: []byte(domain.RoutingProductDeleted), Value: []byte(`{"productID":"P2"}`)}},
	}}

	c := NewConsumer(config.Kafka{}, deleteBinding, testRetry, zaptest.NewLogger(t),
		WithReaderFactory(func(context.Context) error { return nil }, func() Reader { return r }))

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan invalidation.Delivery)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, out) }()

	bodies := collect(t, out, 2)
	require.Equal(t, []string{`{"productID":"P1"}`, `{"productID":"P2"}`}, bodies)

	require.Eventually(t, func() bool { return len(r.commits()) == 3 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []int64{1, 2, 3}, r.commits())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestConsumerReconnectsAndRedeclares(t *testing.T) {
	broken := &fakeReader{}
	for i := 0; i < maxFetchErrors; i++ {
		broken.script = append(broken.script, fetchResult{err: errors.New("broken pipe")})
	}
	healthy := &fakeReader{script: []fetchResult{
		{msg: message(7, domain.RoutingProductDeleted, `{"productID":"P7"}`)},
	}}

	var mu sync.Mutex
	declared := 0
	readers := []*fakeReader{broken, healthy}
	c := NewConsumer(config.Kafka{}, deleteBinding, testRetry, zaptest.NewLogger(t),
		WithReaderFactory(
			func(context.Context) error {
				mu.Lock()
				defer mu.Unlock()
				declared++
				return nil
			},
			func() Reader {
				mu.Lock()
				defer mu.Unlock()
				r := readers[0]
				readers = readers[1:]
				return r
			},
		))
	c.pause = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan invalidation.Delivery)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, out) }()

	require.Equal(t, []string{`{"productID":"P7"}`}, collect(t, out, 1))
	cancel()
	<-done

	mu.Lock()
	require.Equal(t, 2, declared)
	mu.Unlock()
	broken.mu.Lock()
	require.True(t, broken.closed)
	broken.mu.Unlock()
	require.Equal(t, []int64{7}, healthy.commits())
}

func TestConsumerRetriesDeclare(t *testing.T) {
	r := &fakeReader{script: []fetchResult{
		{msg: message(1, domain.RoutingProductDeleted, `{"productID":"P1"}`)},
	}}

	var mu sync.Mutex
	attempts := 0
	c := NewConsumer(config.Kafka{}, deleteBinding, testRetry, zaptest.NewLogger(t),
		WithReaderFactory(func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			attempts++
			if attempts < 3 {
				return errors.New("leader not available")
			}
			return nil
		}, func() Reader { return r }))

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan invalidation.Delivery)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, out) }()

	require.Len(t, collect(t, out, 1), 1)
	cancel()
	<-done

	mu.Lock()
	require.Equal(t, 3, attempts)
	mu.Unlock()
}

func TestRoutingKey(t *testing.T) {
	require.Equal(t, "product.delete", routingKey(kafkago.Message{
		Key:     []byte("P1"),
		Headers: []kafkago.Header{{Key: "trace-id", Value: []byte("x")}, {Key: RoutingKeyHeader, Value: []byte("product.delete")}},
	}))
	require.Equal(t, "product.update.name", routingKey(kafkago.Message{Key: []byte("product.update.name")}))
}

func TestBindings(t *testing.T) {
	b := Bindings(config.Kafka{DeleteQueue: "d", RenameQueue: "r"})
	require.Equal(t, []Binding{
		{RoutingKey: "product.delete", Queue: "d"},
		{RoutingKey: "product.update.name", Queue: "r"},
	}, b)
}
