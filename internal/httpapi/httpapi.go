package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TemirB/orders-enrichment/internal/application/command"
	"github.com/TemirB/orders-enrichment/internal/application/query"
	"github.com/TemirB/orders-enrichment/internal/application/service"
	"github.com/TemirB/orders-enrichment/internal/domain"
	"github.com/TemirB/orders-enrichment/internal/observability"
)

//go:generate mockgen -source httpapi.go -destination httpapi_mock_test.go -package httpapi

type OrderService interface {
	FindWithStats(ctx context.Context, filter domain.OrderFilter) ([]query.Order, service.Stats, error)
	GetOrderByIDWithStats(ctx context.Context, id uuid.UUID) (*query.Order, service.Stats, error)
	AddOrder(ctx context.Context, cmd command.AddOrder) (*query.Order, error)
	UpdateOrder(ctx context.Context, cmd command.UpdateOrder) (*query.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) (bool, error)
}

type Server struct {
	service OrderService
	router  chi.Router
	logger  *zap.Logger
	metrics observability.Metrics
}

type Option func(*Server)

// WithMetricsHandler exposes h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.router.Method(http.MethodGet, "/metrics", h) }
}

func New(service OrderService, logger *zap.Logger, metrics observability.Metrics, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.Noop{}
	}
	s := &Server{
		service: service,
		logger:  logger,
		router:  chi.NewRouter(),
		metrics: metrics,
	}
	s.routes()
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(ServerTimingApp(s.metrics))

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Route("/api/orders", func(r chi.Router) {
		r.Get("/", s.listOrders)
		r.Get("/search/orderid/{orderID}", s.getOrderByID)
		r.Get("/search/productid/{productID}", s.getOrdersByProductID)
		r.Get("/search/userid/{userID}", s.getOrdersByUserID)
		r.Get("/search/orderDate/{orderDate}", s.getOrdersByDate)
		r.Post("/", s.addOrder)
		r.Put("/{orderID}", s.updateOrder)
		r.Delete("/{orderID}", s.deleteOrder)
	})
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	s.find(w, r, domain.OrderFilter{})
}

func (s *Server) getOrdersByProductID(w http.ResponseWriter, r *http.Request) {
	s.find(w, r, domain.ByProductID(chi.URLParam(r, "productID")))
}

func (s *Server) getOrdersByUserID(w http.ResponseWriter, r *http.Request) {
	s.find(w, r, domain.ByUserID(chi.URLParam(r, "userID")))
}

func (s *Server) getOrdersByDate(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(chi.URLParam(r, "orderDate"))
	if err != nil {
		http.Error(w, "invalid order date", http.StatusBadRequest)
		return
	}
	s.find(w, r, domain.ByOrderDate(day))
}

func (s *Server) find(w http.ResponseWriter, r *http.Request, filter domain.OrderFilter) {
	orders, st, err := s.service.FindWithStats(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeStats(w, st)
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) getOrderByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	order, st, err := s.service.GetOrderByIDWithStats(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeStats(w, st)
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) addOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddOrder
	if !s.decode(w, r, &cmd) {
		return
	}

	order, err := s.service.AddOrder(r.Context(), cmd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/orders/search/orderid/"+order.OrderID.String())
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	var cmd command.UpdateOrder
	if !s.decode(w, r, &cmd) {
		return
	}
	if cmd.OrderID != id {
		http.Error(w, "Order ID in the URL doesn't match with the order ID in the Request body", http.StatusBadRequest)
		return
	}

	order, err := s.service.UpdateOrder(r.Context(), cmd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}
	if id == uuid.Nil {
		http.Error(w, "OrderID cannot be empty", http.StatusBadRequest)
		return
	}

	deleted, err := s.service.DeleteOrder(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !deleted {
		http.Error(w, "no order with this id", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return false
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		s.logger.Warn("Error while decoding JSON", zap.Error(err))
		http.Error(w, "Invalid order data", http.StatusBadRequest)
		return false
	}
	return true
}

type errorBody struct {
	Errors []string `json:"errors"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Errors: verr.Errors})
	case errors.Is(err, domain.ErrCallerFault):
		writeJSON(w, http.StatusBadRequest, errorBody{Errors: []string{err.Error()}})
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "no order with this id", http.StatusNotFound)
	default:
		s.logger.Error("Request failed", zap.Error(err))
		http.Error(w, domain.ErrPersistence.Error(), http.StatusInternalServerError)
	}
}

func writeStats(w http.ResponseWriter, st service.Stats) {
	h := w.Header()
	observability.AppendServerTiming(h, "db", st.Storage, "")
	observability.AppendServerTiming(h, "enrich", st.Enrich, "")
	observability.SetMillis(h, "X-DB-Time", st.Storage)
	observability.SetMillis(h, "X-Enrich-Time", st.Enrich)
	if st.Degraded > 0 {
		observability.AppendServerTiming(h, "degraded", 0, "placeholders served")
		h.Set("X-Degraded", "true")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// parseDay accepts a plain date or a full RFC 3339 timestamp.
func parseDay(s string) (time.Time, error) {
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Handler() http.Handler { return s.router }
