// Package service joins stored orders with product and user state owned by
// other services. Reads degrade to placeholders, writes refuse unknown
// references.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TemirB/orders-enrichment/internal/application/command"
	"github.com/TemirB/orders-enrichment/internal/application/query"
	"github.com/TemirB/orders-enrichment/internal/domain"
	"github.com/TemirB/orders-enrichment/internal/pkg/pool"
	"github.com/TemirB/orders-enrichment/internal/resilience"
)

//go:generate mockgen -source service.go -destination service_mock_test.go -package service

type ProductResolver interface {
	Get(ctx context.Context, id string) resilience.Result[domain.Product]
}

type UserResolver interface {
	Get(ctx context.Context, id string) resilience.Result[domain.User]
}

type Storage interface {
	Add(ctx context.Context, order *domain.Order) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) (*domain.Order, error)
	Find(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	FindOne(ctx context.Context, filter domain.OrderFilter) (*domain.Order, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type Validator interface {
	ValidateAdd(command.AddOrder) []string
	ValidateUpdate(command.UpdateOrder) []string
}

type Service struct {
	storage   Storage
	products  ProductResolver
	users     UserResolver
	validator Validator
	fanOut    int
	logger    *zap.Logger
}

func NewService(storage Storage, products ProductResolver, users UserResolver, validator Validator, fanOut int, logger *zap.Logger) *Service {
	if fanOut < 1 {
		fanOut = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		storage:   storage,
		products:  products,
		users:     users,
		validator: validator,
		fanOut:    fanOut,
		logger:    logger,
	}
}

func (s *Service) GetOrders(ctx context.Context) ([]query.Order, error) {
	orders, _, err := s.FindWithStats(ctx, domain.OrderFilter{})
	return orders, err
}

func (s *Service) GetOrdersByProductID(ctx context.Context, productID string) ([]query.Order, error) {
	orders, _, err := s.FindWithStats(ctx, domain.ByProductID(productID))
	return orders, err
}

func (s *Service) GetOrdersByUserID(ctx context.Context, userID string) ([]query.Order, error) {
	orders, _, err := s.FindWithStats(ctx, domain.ByUserID(userID))
	return orders, err
}

func (s *Service) GetOrdersByDate(ctx context.Context, day time.Time) ([]query.Order, error) {
	orders, _, err := s.FindWithStats(ctx, domain.ByOrderDate(day))
	return orders, err
}

func (s *Service) GetOrderByID(ctx context.Context, id uuid.UUID) (*query.Order, error) {
	o, _, err := s.GetOrderByIDWithStats(ctx, id)
	return o, err
}

// FindWithStats returns every order matching filter, enriched. Upstream
// trouble never fails the call.
func (s *Service) FindWithStats(ctx context.Context, filter domain.OrderFilter) ([]query.Order, Stats, error) {
	var st Stats

	t0 := time.Now()
	orders, err := s.storage.Find(ctx, filter)
	st.Storage = time.Since(t0)
	if err != nil {
		s.logger.Error("Error while reading orders", zap.Error(err))
		return nil, st, fmt.Errorf("find orders: %w: %w", domain.ErrPersistence, err)
	}

	t1 := time.Now()
	out := s.enrich(ctx, orders, &st)
	st.Enrich = time.Since(t1)

	s.logger.Debug("Orders fetched",
		zap.Int("count", len(out)),
		zap.Duration("storage", st.Storage),
		zap.Duration("enrich", st.Enrich),
		zap.Int("degraded", st.Degraded),
	)
	return out, st, nil
}

func (s *Service) GetOrderByIDWithStats(ctx context.Context, id uuid.UUID) (*query.Order, Stats, error) {
	var st Stats

	t0 := time.Now()
	order, err := s.storage.FindOne(ctx, domain.ByOrderID(id))
	st.Storage = time.Since(t0)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, st, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		s.logger.Error("Can't read order", zap.Stringer("order_id", id), zap.Error(err))
		return nil, st, fmt.Errorf("find order %s: %w: %w", id, domain.ErrPersistence, err)
	}

	t1 := time.Now()
	out := s.enrich(ctx, []domain.Order{*order}, &st)
	st.Enrich = time.Since(t1)

	return &out[0], st, nil
}

func (s *Service) AddOrder(ctx context.Context, cmd command.AddOrder) (*query.Order, error) {
	if msgs := s.validator.ValidateAdd(cmd); len(msgs) > 0 {
		return nil, domain.NewValidationError(msgs...)
	}

	order := cmd.ToOrder()
	refs, err := s.checkReferences(ctx, order)
	if err != nil {
		return nil, err
	}

	saved, err := s.storage.Add(ctx, &order)
	if err != nil || saved == nil {
		s.logger.Error("Error while adding order", zap.String("user_id", order.UserID), zap.Error(err))
		return nil, fmt.Errorf("add order: %w", errors.Join(domain.ErrPersistence, err))
	}

	s.logger.Info("Order added", zap.Stringer("order_id", saved.OrderID), zap.Int("lines", len(saved.Lines)))
	resp := refs.apply(*saved)
	return &resp, nil
}

// UpdateOrder replaces an existing order wholesale.
func (s *Service) UpdateOrder(ctx context.Context, cmd command.UpdateOrder) (*query.Order, error) {
	if msgs := s.validator.ValidateUpdate(cmd); len(msgs) > 0 {
		return nil, domain.NewValidationError(msgs...)
	}

	order := cmd.ToOrder()
	refs, err := s.checkReferences(ctx, order)
	if err != nil {
		return nil, err
	}

	saved, err := s.storage.Update(ctx, &order)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("order %s: %w", order.OrderID, domain.ErrNotFound)
	}
	if err != nil || saved == nil {
		s.logger.Error("Error while updating order", zap.Stringer("order_id", order.OrderID), zap.Error(err))
		return nil, fmt.Errorf("update order %s: %w", order.OrderID, errors.Join(domain.ErrPersistence, err))
	}

	s.logger.Info("Order updated", zap.Stringer("order_id", saved.OrderID))
	resp := refs.apply(*saved)
	return &resp, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.storage.Delete(ctx, id)
	if err != nil {
		s.logger.Error("Error while deleting order", zap.Stringer("order_id", id), zap.Error(err))
		return false, fmt.Errorf("delete order %s: %w: %w", id, domain.ErrPersistence, err)
	}
	if deleted {
		s.logger.Info("Order deleted", zap.Stringer("order_id", id))
	}
	return deleted, nil
}

// checkReferences resolves every product and the user of order. Unknown ids
// are collected into one ValidationError; placeholders are accepted.
func (s *Service) checkReferences(ctx context.Context, order domain.Order) (resolved, error) {
	productIDs := order.ProductIDs()
	refs := s.resolve(ctx, productIDs, []string{order.UserID})
	if err := ctx.Err(); err != nil {
		return refs, err
	}

	var msgs []string
	for _, id := range productIDs {
		switch res := refs.products[id]; res.Outcome {
		case resilience.NotFound:
			msgs = append(msgs, "Invalid Product ID: "+id)
		case resilience.CallerFault:
			return refs, fmt.Errorf("product %q: %w", id, domain.ErrCallerFault)
		}
	}
	switch res := refs.users[order.UserID]; res.Outcome {
	case resilience.NotFound:
		msgs = append(msgs, "Invalid User ID: "+order.UserID)
	case resilience.CallerFault:
		return refs, fmt.Errorf("user %q: %w", order.UserID, domain.ErrCallerFault)
	}

	if len(msgs) > 0 {
		return refs, domain.NewValidationError(msgs...)
	}
	return refs, nil
}

func (s *Service) enrich(ctx context.Context, orders []domain.Order, st *Stats) []query.Order {
	var productIDs, userIDs []string
	seenP := make(map[string]struct{})
	seenU := make(map[string]struct{})
	for _, o := range orders {
		for _, id := range o.ProductIDs() {
			if _, ok := seenP[id]; !ok {
				seenP[id] = struct{}{}
				productIDs = append(productIDs, id)
			}
		}
		if _, ok := seenU[o.UserID]; !ok && o.UserID != "" {
			seenU[o.UserID] = struct{}{}
			userIDs = append(userIDs, o.UserID)
		}
	}

	refs := s.resolve(ctx, productIDs, userIDs)
	st.Degraded += refs.degraded()

	out := make([]query.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, refs.apply(o))
	}
	return out
}

// resolve looks every id up once, at most fanOut at a time.
func (s *Service) resolve(ctx context.Context, productIDs, userIDs []string) resolved {
	refs := resolved{
		products: make(map[string]resilience.Result[domain.Product], len(productIDs)),
		users:    make(map[string]resilience.Result[domain.User], len(userIDs)),
	}

	var mu sync.Mutex
	jobs := make([]func(), 0, len(productIDs)+len(userIDs))
	for _, id := range productIDs {
		jobs = append(jobs, func() {
			res := s.products.Get(ctx, id)
			mu.Lock()
			refs.products[id] = res
			mu.Unlock()
		})
	}
	for _, id := range userIDs {
		jobs = append(jobs, func() {
			res := s.users.Get(ctx, id)
			mu.Lock()
			refs.users[id] = res
			mu.Unlock()
		})
	}
	pool.Run(ctx, s.fanOut, jobs)

	refs.found = make(map[string]domain.Product, len(refs.products))
	for id, res := range refs.products {
		if res.Found() {
			refs.found[id] = res.Value
		}
	}
	return refs
}

type resolved struct {
	products map[string]resilience.Result[domain.Product]
	users    map[string]resilience.Result[domain.User]
	found    map[string]domain.Product
}

func (r resolved) degraded() int {
	n := 0
	for _, res := range r.products {
		if res.Outcome == resilience.Degraded {
			n++
		}
	}
	for _, res := range r.users {
		if res.Outcome == resilience.Degraded {
			n++
		}
	}
	return n
}

// apply fills o with every resolved entity. Absent ids leave fields empty.
func (r resolved) apply(o domain.Order) query.Order {
	resp := query.FromOrder(o)
	resp.SetProducts(r.found)

	if res, ok := r.users[o.UserID]; ok && res.Found() {
		resp.SetUser(res.Value)
	}
	return resp
}
