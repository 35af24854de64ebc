package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ArticleFilter is used to filter articles.
// Returned articles must match all the provided fields.
// If a field is empty, it's ignored.
type ArticleFilter struct {
	IDs   []uuid.UUID
	Slugs []string
}

// ProductFilter is used to filter products.
// Returned products must match all the provided fields.
// If a field is empty or nil, it's ignored.
type ProductFilter struct {
	IDs       []uuid.UUID
	Slugs     []string
	InStock   *bool
	TitleLike string
}

// OrderFilter is used to filter orders.
type OrderFilter struct {
	IDs      []uuid.UUID
	OrderNos []string
}

// Store provides access to the catalog store.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a transaction. If an error occurs on any of the methods, the
// transaction is considered to have failed and should be rolled back.
// Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	CreateArticle(a *Article) error
	UpdateArticle(a *Article) error
	FindArticles(filter *ArticleFilter, page Page) ([]Article, error)

	CreateComment(c *Comment) error
	FindComments(articleID uuid.UUID) ([]Comment, error)

	CreateProduct(p *Product) error
	UpdateProduct(p *Product) error
	FindProducts(filter *ProductFilter, page Page) ([]Product, error)

	CreateOrder(o *Order) error
	UpdateOrder(o *Order) error
	FindOrders(filter *OrderFilter) ([]Order, error)
}
