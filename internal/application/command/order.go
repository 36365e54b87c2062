// Package command holds the write requests accepted by the orders service.
package command

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/TemirB/orders-enrichment/internal/domain"
)

type Item struct {
	ProductID string          `json:"productID" validate:"required"`
	UnitPrice decimal.Decimal `json:"unitPrice" validate:"required,gt=0"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
}

type AddOrder struct {
	UserID    string    `json:"userID" validate:"required"`
	OrderDate time.Time `json:"orderDate" validate:"required"`
	Items     []Item    `json:"orderItems" validate:"required,min=1,dive"`
}

// UpdateOrder replaces an order wholesale.
type UpdateOrder struct {
	OrderID   uuid.UUID `json:"orderID" validate:"required"`
	UserID    string    `json:"userID" validate:"required"`
	OrderDate time.Time `json:"orderDate" validate:"required"`
	Items     []Item    `json:"orderItems" validate:"required,min=1,dive"`
}

func (c AddOrder) ToOrder() domain.Order {
	return newOrder(uuid.Nil, c.UserID, c.OrderDate, c.Items)
}

func (c UpdateOrder) ToOrder() domain.Order {
	return newOrder(c.OrderID, c.UserID, c.OrderDate, c.Items)
}

func newOrder(id uuid.UUID, userID string, date time.Time, items []Item) domain.Order {
	o := domain.Order{
		OrderID:   id,
		UserID:    userID,
		OrderDate: date,
		Lines:     make([]domain.OrderLine, 0, len(items)),
	}
	for _, it := range items {
		o.Lines = append(o.Lines, domain.OrderLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	o.Recalculate()
	return o
}
