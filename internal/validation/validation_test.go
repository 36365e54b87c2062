package validation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/TemirB/orders-enrichment/internal/application/command"
)

func validItem() command.Item {
	return command.Item{ProductID: "P1", UnitPrice: decimal.RequireFromString("9.99"), Quantity: 2}
}

func TestValidateAdd(t *testing.T) {
	date := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  command.AddOrder
		want []string
	}{
		{
			name: "valid",
			req:  command.AddOrder{UserID: "U1", OrderDate: date, Items: []command.Item{validItem()}},
		},
		{
			name: "empty request",
			req:  command.AddOrder{},
			want: []string{"User ID can't be blank", "Order date can't be blank", "Order items can't be blank"},
		},
		{
			name: "empty items slice",
			req:  command.AddOrder{UserID: "U1", OrderDate: date, Items: []command.Item{}},
			want: []string{"Order items can't be blank"},
		},
		{
			name: "blank item fields",
			req:  command.AddOrder{UserID: "U1", OrderDate: date, Items: []command.Item{{}}},
			want: []string{"Product ID can't be blank", "Unit price can't be blank", "Quantity can't be blank"},
		},
		{
			name: "negative values",
			req: command.AddOrder{UserID: "U1", OrderDate: date, Items: []command.Item{
				{ProductID: "P1", UnitPrice: decimal.RequireFromString("-1"), Quantity: -3},
			}},
			want: []string{"Unit price can't be less than or equal to zero", "Quantity can't be less than or equal to zero"},
		},
		{
			name: "same rule broken by two items is reported once",
			req: command.AddOrder{UserID: "U1", OrderDate: date, Items: []command.Item{
				{UnitPrice: decimal.RequireFromString("1"), Quantity: 1},
				{UnitPrice: decimal.RequireFromString("1"), Quantity: 1},
			}},
			want: []string{"Product ID can't be blank"},
		},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, v.ValidateAdd(tt.req))
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	v := New()
	req := command.UpdateOrder{UserID: "U1", OrderDate: time.Now(), Items: []command.Item{validItem()}}

	require.Equal(t, []string{"Order ID can't be blank"}, v.ValidateUpdate(req))

	req.OrderID = uuid.New()
	require.Empty(t, v.ValidateUpdate(req))
}
