package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the aggregate owned by this service. It is created on add and
// replaced wholesale on update.
type Order struct {
	OrderID   uuid.UUID       `json:"orderID"`
	UserID    string          `json:"userID"`
	OrderDate time.Time       `json:"orderDate"`
	Lines     []OrderLine     `json:"orderItems"`
	TotalBill decimal.Decimal `json:"totalBill"`
}

type OrderLine struct {
	ProductID  string          `json:"productID"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// Recalculate derives every line total and the bill from quantities and unit prices.
func (o *Order) Recalculate() {
	total := decimal.Zero
	for i := range o.Lines {
		l := &o.Lines[i]
		l.TotalPrice = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		total = total.Add(l.TotalPrice)
	}
	o.TotalBill = total
}

// ProductIDs returns the distinct product ids referenced by the order, in line order.
func (o *Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Lines))
	ids := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}
