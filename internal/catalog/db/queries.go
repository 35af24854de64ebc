package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/timeshards/timeshards/internal/catalog"
	"github.com/timeshards/timeshards/internal/errorz"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)

func insertArticle(ef execFunc, a *catalog.Article) error {
	if a.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	_, err := ef(
		`INSERT INTO articles (id, slug, title, content, comments_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Slug, a.Title, a.Content, a.CommentsCount, a.CreatedAt,
	)
	return errorz.MapDBErr(err)
}

func updateArticle(ef execFunc, a *catalog.Article) error {
	result, err := ef(
		`UPDATE articles SET slug = ?, title = ?, content = ?, comments_count = ? WHERE id = ?`,
		a.Slug, a.Title, a.Content, a.CommentsCount, a.ID,
	)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return checkAffected(result, "article")
}

func selectArticles(qf queryFunc, f *catalog.ArticleFilter, page catalog.Page) ([]catalog.Article, error) {
	var b strings.Builder
	var params []any

	b.WriteString(`SELECT id, slug, title, content, comments_count, created_at FROM articles WHERE 1=1 `)

	if len(f.IDs) > 0 {
		b.WriteString(`AND id IN (` + placeholders(len(f.IDs)) + `) `)
		for _, id := range f.IDs {
			params = append(params, id)
		}
	}

	if len(f.Slugs) > 0 {
		b.WriteString(`AND slug IN (` + placeholders(len(f.Slugs)) + `) `)
		for _, slug := range f.Slugs {
			params = append(params, slug)
		}
	}

	b.WriteString(`ORDER BY created_at DESC LIMIT ? OFFSET ?`)
	params = append(params, page.Limit(), page.Offset())

	rows, err := qf(b.String(), params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]catalog.Article, 0)
	for rows.Next() {
		var a catalog.Article
		err := rows.Scan(&a.ID, &a.Slug, &a.Title, &a.Content, &a.CommentsCount, &a.CreatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func insertComment(ef execFunc, c *catalog.Comment) error {
	if c.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	_, err := ef(
		`INSERT INTO comments (id, article_id, user_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.ArticleID, c.UserID, c.Content, c.CreatedAt,
	)
	return errorz.MapDBErr(err)
}

func selectComments(qf queryFunc, articleID uuid.UUID) ([]catalog.Comment, error) {
	rows, err := qf(
		`SELECT id, article_id, user_id, content, created_at
		 FROM comments WHERE article_id = ? ORDER BY created_at ASC`,
		articleID,
	)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]catalog.Comment, 0)
	for rows.Next() {
		var c catalog.Comment
		err := rows.Scan(&c.ID, &c.ArticleID, &c.UserID, &c.Content, &c.CreatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func insertProduct(ef execFunc, p *catalog.Product) error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	_, err := ef(
		`INSERT INTO products (id, slug, title, content, price_cents, quantity, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, p.Title, p.Content, p.PriceCents, p.Quantity, p.CreatedAt,
	)
	return errorz.MapDBErr(err)
}

func updateProduct(ef execFunc, p *catalog.Product) error {
	result, err := ef(
		`UPDATE products SET slug = ?, title = ?, content = ?, price_cents = ?, quantity = ? WHERE id = ?`,
		p.Slug, p.Title, p.Content, p.PriceCents, p.Quantity, p.ID,
	)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return checkAffected(result, "product")
}

func selectProducts(qf queryFunc, f *catalog.ProductFilter, page catalog.Page) ([]catalog.Product, error) {
	var b strings.Builder
	var params []any

	b.WriteString(`SELECT id, slug, title, content, price_cents, quantity, created_at FROM products WHERE 1=1 `)

	if len(f.IDs) > 0 {
		b.WriteString(`AND id IN (` + placeholders(len(f.IDs)) + `) `)
		for _, id := range f.IDs {
			params = append(params, id)
		}
	}

	if len(f.Slugs) > 0 {
		b.WriteString(`AND slug IN (` + placeholders(len(f.Slugs)) + `) `)
		for _, slug := range f.Slugs {
			params = append(params, slug)
		}
	}

	if f.InStock != nil {
		if *f.InStock {
			b.WriteString(`AND quantity > 0 `)
		} else {
			b.WriteString(`AND quantity <= 0 `)
		}
	}

	if f.TitleLike != "" {
		b.WriteString(`AND title LIKE ? `)
		params = append(params, "%"+f.TitleLike+"%")
	}

	b.WriteString(`ORDER BY created_at DESC LIMIT ? OFFSET ?`)
	params = append(params, page.Limit(), page.Offset())

	rows, err := qf(b.String(), params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]catalog.Product, 0)
	for rows.Next() {
		var p catalog.Product
		err := rows.Scan(&p.ID, &p.Slug, &p.Title, &p.Content, &p.PriceCents, &p.Quantity, &p.CreatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}
		out = append(out, p)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func insertOrder(ef execFunc, o *catalog.Order) error {
	if o.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	_, err := ef(
		`INSERT INTO product_orders (id, order_no, product_id, quantity, is_paid, gateway_trade_no, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.OrderNo, o.ProductID, o.Quantity, o.IsPaid, o.GatewayTradeNo, o.CreatedAt,
	)
	return errorz.MapDBErr(err)
}

func updateOrder(ef execFunc, o *catalog.Order) error {
	result, err := ef(
		`UPDATE product_orders SET order_no = ?, product_id = ?, quantity = ?, is_paid = ?, gateway_trade_no = ? WHERE id = ?`,
		o.OrderNo, o.ProductID, o.Quantity, o.IsPaid, o.GatewayTradeNo, o.ID,
	)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return checkAffected(result, "order")
}

func selectOrders(qf queryFunc, f *catalog.OrderFilter) ([]catalog.Order, error) {
	var b strings.Builder
	var params []any

	b.WriteString(`SELECT id, order_no, product_id, quantity, is_paid, gateway_trade_no, created_at
		FROM product_orders WHERE 1=1 `)

	if len(f.IDs) > 0 {
		b.WriteString(`AND id IN (` + placeholders(len(f.IDs)) + `) `)
		for _, id := range f.IDs {
			params = append(params, id)
		}
	}

	if len(f.OrderNos) > 0 {
		b.WriteString(`AND order_no IN (` + placeholders(len(f.OrderNos)) + `) `)
		for _, no := range f.OrderNos {
			params = append(params, no)
		}
	}

	b.WriteString(`ORDER BY created_at ASC`)

	rows, err := qf(b.String(), params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]catalog.Order, 0)
	for rows.Next() {
		var o catalog.Order
		err := rows.Scan(&o.ID, &o.OrderNo, &o.ProductID, &o.Quantity, &o.IsPaid, &o.GatewayTradeNo, &o.CreatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}
		out = append(out, o)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func checkAffected(result sql.Result, kind string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("%s not found: %w", kind, errorz.ErrNotFound)
	}

	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
