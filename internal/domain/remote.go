package domain

import "github.com/shopspring/decimal"

// Unavailable is the placeholder written into every text field of a fallback entity.
const Unavailable = "Temporarily Unavailable"

// Product is a read-only snapshot of state owned by the products service.
type Product struct {
	ProductID       string          `json:"productID"`
	Name            string          `json:"productName"`
	Category        string          `json:"category"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	QuantityInStock int             `json:"quantityInStock"`

	// Degraded marks a fallback value. It is never serialized into the cache.
	Degraded bool `json:"-"`
}

// User is a read-only snapshot of state owned by the users service.
type User struct {
	UserID     string `json:"userID"`
	Email      string `json:"email"`
	PersonName string `json:"personName"`
	Gender     string `json:"gender"`

	Degraded bool `json:"-"`
}

func FallbackProduct(id string) Product {
	return Product{
		ProductID: id,
		Name:      Unavailable,
		Category:  Unavailable,
		UnitPrice: decimal.Zero,
		Degraded:  true,
	}
}

func FallbackUser(id string) User {
	return User{
		UserID:     id,
		Email:      Unavailable,
		PersonName: Unavailable,
		Gender:     Unavailable,
		Degraded:   true,
	}
}
