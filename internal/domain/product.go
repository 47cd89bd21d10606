// domain/product.go
package domain

import (
	"context"
	"time"
)

const DefaultLowStockThreshold = 5

type Product struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	SKU               string    `json:"sku"`
	Price             float64   `json:"price"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"lowStockThreshold"`
	ImageURL          string    `json:"imageUrl,omitempty"`
	CategoryID        string    `json:"categoryId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// IsLowStock reports whether the catalog should flag the product.
func (p *Product) IsLowStock() bool {
	return p.Quantity < p.LowStockThreshold
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ProductFilter struct {
	CategoryID string
	Query      string
	Limit      int
	Offset     int
}

// ProductRepository is the stock ledger plus catalog persistence.
type ProductRepository interface {
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	GetProductByID(ctx context.Context, id string) (*Product, error)

	UpdateProduct(ctx context.Context, id string, updates map[string]interface{}) (*Product, error)

	DeleteProduct(ctx context.Context, id string) error
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	ListLowStock(ctx context.Context) ([]Product, error)

	// DecrementStock subtracts amount in a single conditional write.
	// Returns ErrProductNotFound or a *StockError when the guard fails.
	DecrementStock(ctx context.Context, id string, amount int) (*Product, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *Category) (*Category, error)
	GetCategoryByID(ctx context.Context, id string) (*Category, error)
	UpdateCategory(ctx context.Context, category *Category) (*Category, error)
	DeleteCategory(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]Category, error)
}

// NormalizeLimit clamps list pagination to the API bounds.
func NormalizeLimit(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
