// Package catalog holds the content and commerce side of the site:
// articles with comments, the product listing and paid orders.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Article is a blog post.
type Article struct {
	ID      uuid.UUID
	Slug    string
	Title   string
	Content string
	// CommentsCount is denormalized onto the article row and updated
	// when a comment is posted.
	CommentsCount int
	CreatedAt     time.Time
}

// Product is a catalog item. Quantity is decremented when an order is
// paid, listings only show products with stock left.
type Product struct {
	ID         uuid.UUID
	Slug       string
	Title      string
	Content    string
	PriceCents int64
	Quantity   int
	CreatedAt  time.Time
}

// Comment is a user comment on an article.
type Comment struct {
	ID        uuid.UUID
	ArticleID uuid.UUID
	UserID    uuid.UUID
	Content   string
	CreatedAt time.Time
}

// Order is a product order awaiting or having received payment.
type Order struct {
	ID        uuid.UUID
	OrderNo   string
	ProductID uuid.UUID
	Quantity  int
	IsPaid    bool
	// GatewayTradeNo is the payment gateways own id for the trade,
	// recorded when the payment notification arrives.
	GatewayTradeNo string
	CreatedAt      time.Time
}

// Page selects a slice of a listing. Pages start at 1.
type Page struct {
	Number int
	Size   int
}

// Limit is the maximum number of rows for the page.
func (p Page) Limit() int {
	if p.Size <= 0 {
		return 15
	}
	return p.Size
}

// Offset is the number of rows to skip before the page starts.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit()
}
