package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrderFilter selects orders. Zero fields are ignored; an empty filter matches everything.
type OrderFilter struct {
	OrderID   uuid.UUID
	ProductID string
	UserID    string
	OrderDate time.Time
}

func ByOrderID(id uuid.UUID) OrderFilter    { return OrderFilter{OrderID: id} }
func ByProductID(id string) OrderFilter     { return OrderFilter{ProductID: id} }
func ByUserID(id string) OrderFilter        { return OrderFilter{UserID: id} }
func ByOrderDate(day time.Time) OrderFilter { return OrderFilter{OrderDate: day} }

type OrderRepository interface {
	Add(ctx context.Context, order *Order) (*Order, error)
	Update(ctx context.Context, order *Order) (*Order, error)
	Find(ctx context.Context, filter OrderFilter) ([]Order, error)
	FindOne(ctx context.Context, filter OrderFilter) (*Order, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}
