package domain

import "fmt"

// Routing keys used by the products service on its events topic.
const (
	RoutingProductDeleted = "product.delete"
	RoutingProductRenamed = "product.update.name"
)

// ChangeEvent is either ProductDeleted or ProductRenamed.
type ChangeEvent interface {
	RoutingKey() string
	EntityID() string
}

type ProductDeleted struct {
	ProductID string `json:"productID"`
}

func (ProductDeleted) RoutingKey() string { return RoutingProductDeleted }
func (e ProductDeleted) EntityID() string { return e.ProductID }

type ProductRenamed struct {
	ProductID string `json:"productID"`
	NewName   string `json:"newProductName"`
}

func (ProductRenamed) RoutingKey() string { return RoutingProductRenamed }
func (e ProductRenamed) EntityID() string { return e.ProductID }

func (e ProductDeleted) String() string { return fmt.Sprintf("ProductDeleted{%s}", e.ProductID) }
func (e ProductRenamed) String() string {
	return fmt.Sprintf("ProductRenamed{%s, %q}", e.ProductID, e.NewName)
}
