package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TemirB/orders-enrichment/internal/domain"
	"github.com/TemirB/orders-enrichment/internal/kafka"
)

// Spammer publishes product change events the way the products service does.
type Spammer struct {
	writer    *kafkago.Writer
	logger    *zap.Logger
	isRunning atomic.Bool
	wg        sync.WaitGroup
	mu        sync.Mutex
	cancel    context.CancelFunc
	totalSent atomic.Int64
	startedAt time.Time
}

type SpamRequest struct {
	Rate        int      `json:"rate"`
	Duration    string   `json:"duration"`
	ProductIDs  []string `json:"productIDs"`
	DeleteRatio float64  `json:"deleteRatio"`
}

type SpamStats struct {
	IsRunning bool    `json:"is_running"`
	TotalSent int64   `json:"total_sent"`
	Rate      float64 `json:"rate"`
}

func NewSpammer(brokers []string, topic string, logger *zap.Logger) *Spammer {
	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		BatchSize:              100,
		AllowAutoTopicCreation: true,
	}

	return &Spammer{
		writer: writer,
		logger: logger,
	}
}

func (s *Spammer) StartSpam(req SpamRequest, duration time.Duration) bool {
	if !s.isRunning.CompareAndSwap(false, true) {
		return false
	}
	s.totalSent.Store(0)

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	s.mu.Lock()
	s.cancel = cancel
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("Starting spam",
		zap.Int("rate", req.Rate),
		zap.Duration("duration", duration),
		zap.Int("products", len(req.ProductIDs)),
	)

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.isRunning.Store(false)
		defer cancel()

		ticker := time.NewTicker(time.Second / time.Duration(req.Rate))
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				msg, err := nextEvent(rng, req.ProductIDs, req.DeleteRatio)
				if err != nil {
					s.logger.Error("Error building event", zap.Error(err))
					continue
				}
				if err := s.writer.WriteMessages(ctx, msg); err != nil {
					if ctx.Err() == nil {
						s.logger.Warn("Error sending message to Kafka", zap.Error(err))
					}
					continue
				}
				s.totalSent.Add(1)

			case <-ctx.Done():
				s.logger.Info("Spam finished", zap.Int64("total_sent", s.totalSent.Load()))
				return
			}
		}
	}()
	return true
}

func (s *Spammer) StopSpam() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Spammer) GetStats() SpamStats {
	st := SpamStats{
		IsRunning: s.isRunning.Load(),
		TotalSent: s.totalSent.Load(),
	}
	s.mu.Lock()
	started := s.startedAt
	s.mu.Unlock()
	if elapsed := time.Since(started).Seconds(); !started.IsZero() && elapsed > 0 {
		st.Rate = float64(st.TotalSent) / elapsed
	}
	return st
}

func (s *Spammer) Close() {
	s.StopSpam()
	if err := s.writer.Close(); err != nil {
		s.logger.Warn("close writer", zap.Error(err))
	}
}

// nextEvent picks a product and builds either a delete or a rename for it.
// The routing key travels in a header, the product id is the message key.
func nextEvent(rng *rand.Rand, productIDs []string, deleteRatio float64) (kafkago.Message, error) {
	id := fmt.Sprintf("P%d", rng.IntN(1000))
	if len(productIDs) > 0 {
		id = productIDs[rng.IntN(len(productIDs))]
	}

	var ev domain.ChangeEvent = domain.ProductRenamed{
		ProductID: id,
		NewName:   fmt.Sprintf("Product %s rev %d", id, rng.IntN(10000)),
	}
	if rng.Float64() < deleteRatio {
		ev = domain.ProductDeleted{ProductID: id}
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:     []byte(id),
		Value:   body,
		Headers: []kafkago.Header{{Key: kafka.RoutingKeyHeader, Value: []byte(ev.RoutingKey())}},
		Time:    time.Now(),
	}, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func router(spammer *Spammer) http.Handler {
	r := chi.NewRouter()

	r.Post("/start", func(w http.ResponseWriter, r *http.Request) {
		var req SpamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.Rate <= 0 {
			req.Rate = 10
		}

		duration, err := time.ParseDuration(req.Duration)
		if err != nil || duration <= 0 {
			http.Error(w, "Invalid duration format", http.StatusBadRequest)
			return
		}

		if !spammer.StartSpam(req, duration) {
			http.Error(w, "already running", http.StatusConflict)
			return
		}

		writeJSON(w, map[string]any{
			"status":   "started",
			"rate":     req.Rate,
			"duration": duration.String(),
		})
	})

	r.Post("/stop", func(w http.ResponseWriter, _ *http.Request) {
		spammer.StopSpam()
		writeJSON(w, map[string]any{
			"status":     "stopped",
			"total_sent": spammer.totalSent.Load(),
		})
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, spammer.GetStats())
	})

	return r
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	brokers := []string{"kafka:9092"}
	if envBrokers := os.Getenv("KAFKA_BROKERS"); envBrokers != "" {
		brokers = strings.Split(envBrokers, ",")
	}

	topic := "products-events"
	if envTopic := os.Getenv("KAFKA_PRODUCTS_TOPIC"); envTopic != "" {
		topic = envTopic
	}

	spammer := NewSpammer(brokers, topic, logger)
	defer spammer.Close()

	port := ":8082"
	if envPort := os.Getenv("SPAMMER_PORT"); envPort != "" {
		port = ":" + envPort
	}

	logger.Info("Spammer server started", zap.String("addr", port), zap.String("topic", topic))
	if err := http.ListenAndServe(port, router(spammer)); err != nil {
		logger.Error("spammer server", zap.Error(err))
	}
}
