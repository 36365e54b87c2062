// Package validation checks order write requests and reports every broken
// rule as a human readable message.
package validation

import (
	"errors"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/TemirB/orders-enrichment/internal/application/command"
)

var messages = map[string]string{
	"OrderID.required":   "Order ID can't be blank",
	"UserID.required":    "User ID can't be blank",
	"OrderDate.required": "Order date can't be blank",
	"Items.required":     "Order items can't be blank",
	"Items.min":          "Order items can't be blank",
	"ProductID.required": "Product ID can't be blank",
	"UnitPrice.required": "Unit price can't be blank",
	"UnitPrice.gt":       "Unit price can't be less than or equal to zero",
	"Quantity.required":  "Quantity can't be blank",
	"Quantity.gt":        "Quantity can't be less than or equal to zero",
}

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return &Validator{v: v}
}

func (v *Validator) ValidateAdd(c command.AddOrder) []string {
	return v.check(c)
}

func (v *Validator) ValidateUpdate(c command.UpdateOrder) []string {
	return v.check(c)
}

func (v *Validator) check(s any) []string {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	out := make([]string, 0, len(fieldErrs))
	seen := make(map[string]struct{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := messages[fe.StructField()+"."+fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		if _, dup := seen[msg]; dup {
			continue
		}
		seen[msg] = struct{}{}
		out = append(out, msg)
	}
	return out
}
