// Package query holds the enriched read model returned for orders.
package query

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/TemirB/orders-enrichment/internal/domain"
)

// OrderItem is an order line plus the product fields known at read time.
// ProductName and Category stay empty when the product could not be resolved.
type OrderItem struct {
	ProductID   string          `json:"productID"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	ProductName string          `json:"productName,omitempty"`
	Category    string          `json:"category,omitempty"`
}

type Order struct {
	OrderID        uuid.UUID       `json:"orderID"`
	UserID         string          `json:"userID"`
	OrderDate      time.Time       `json:"orderDate"`
	Items          []OrderItem     `json:"orderItems"`
	TotalBill      decimal.Decimal `json:"totalBill"`
	UserPersonName string          `json:"userPersonName,omitempty"`
	Email          string          `json:"email,omitempty"`
}

func FromOrder(o domain.Order) Order {
	r := Order{
		OrderID:   o.OrderID,
		UserID:    o.UserID,
		OrderDate: o.OrderDate,
		Items:     make([]OrderItem, 0, len(o.Lines)),
		TotalBill: o.TotalBill,
	}
	for _, l := range o.Lines {
		r.Items = append(r.Items, OrderItem{
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			TotalPrice: l.TotalPrice,
		})
	}
	return r
}

func (r *Order) SetUser(u domain.User) {
	r.UserPersonName = u.PersonName
	r.Email = u.Email
}

// SetProducts fills every line whose product is in products.
func (r *Order) SetProducts(products map[string]domain.Product) {
	for i := range r.Items {
		if p, ok := products[r.Items[i].ProductID]; ok {
			r.Items[i].ProductName = p.Name
			r.Items[i].Category = p.Category
		}
	}
}
