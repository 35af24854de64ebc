// Package db implements catalog.Store on SQLite.
package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/timeshards/timeshards/internal/catalog"
)

// Store is responsible for persisting the catalog.
type Store struct {
	db *sql.DB
}

// New creates a new Store.
func New(db *sql.DB) *Store {
	return &Store{
		db: db,
	}
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (catalog.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{
		tx: tx,
	}, nil
}

type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

func (t *Tx) CreateArticle(a *catalog.Article) error {
	return insertArticle(t.tx.Exec, a)
}

func (t *Tx) UpdateArticle(a *catalog.Article) error {
	return updateArticle(t.tx.Exec, a)
}

func (t *Tx) FindArticles(filter *catalog.ArticleFilter, page catalog.Page) ([]catalog.Article, error) {
	return selectArticles(t.tx.Query, filter, page)
}

func (t *Tx) CreateComment(c *catalog.Comment) error {
	return insertComment(t.tx.Exec, c)
}

func (t *Tx) FindComments(articleID uuid.UUID) ([]catalog.Comment, error) {
	return selectComments(t.tx.Query, articleID)
}

func (t *Tx) CreateProduct(p *catalog.Product) error {
	return insertProduct(t.tx.Exec, p)
}

func (t *Tx) UpdateProduct(p *catalog.Product) error {
	return updateProduct(t.tx.Exec, p)
}

func (t *Tx) FindProducts(filter *catalog.ProductFilter, page catalog.Page) ([]catalog.Product, error) {
	return selectProducts(t.tx.Query, filter, page)
}

func (t *Tx) CreateOrder(o *catalog.Order) error {
	return insertOrder(t.tx.Exec, o)
}

func (t *Tx) UpdateOrder(o *catalog.Order) error {
	return updateOrder(t.tx.Exec, o)
}

func (t *Tx) FindOrders(filter *catalog.OrderFilter) ([]catalog.Order, error) {
	return selectOrders(t.tx.Query, filter)
}
