package catalog

import (
	"context"
	"errors"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/timeshards/timeshards/internal/errorz"
)

// ErrCommentTooShort is reported as a field error on the comment form.
var ErrCommentTooShort = errors.New("comment must be at least 3 characters")

const minCommentRunes = 3

// PaymentNotification is a verified notification from the payment
// gateway.
type PaymentNotification struct {
	OrderNo string
	TradeNo string
	Status  string
}

// NotifyVerifier verifies the signature of a raw payment notification.
// The cryptographic details belong to the gateway SDK, the catalog only
// cares whether the notification is genuine.
type NotifyVerifier interface {
	Verify(ctx context.Context, form url.Values) (PaymentNotification, error)
}

// VerifierFunc adapts a function to the NotifyVerifier interface.
type VerifierFunc func(ctx context.Context, form url.Values) (PaymentNotification, error)

func (f VerifierFunc) Verify(ctx context.Context, form url.Values) (PaymentNotification, error) {
	return f(ctx, form)
}

// Service provides the catalog operations.
type Service struct {
	store Store

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:   store,
		NowFunc: time.Now,
	}
}

// ListArticles returns a page of articles, newest first.
func (s *Service) ListArticles(ctx context.Context, page Page) ([]Article, error) {
	var articles []Article
	err := s.inTx(ctx, func(tx Tx) error {
		var txErr error
		articles, txErr = tx.FindArticles(&ArticleFilter{}, page)
		return txErr
	})
	return articles, err
}

// ArticleBySlug returns the article with the provided slug and its
// comments. It returns errorz.ErrNotFound if no article matches.
func (s *Service) ArticleBySlug(ctx context.Context, slug string) (Article, []Comment, error) {
	var article Article
	var comments []Comment

	err := s.inTx(ctx, func(tx Tx) error {
		articles, txErr := tx.FindArticles(&ArticleFilter{Slugs: []string{slug}}, Page{})
		if txErr != nil {
			return txErr
		}

		if len(articles) != 1 {
			return errorz.ErrNotFound
		}

		article = articles[0]

		comments, txErr = tx.FindComments(article.ID)
		return txErr
	})
	if err != nil {
		return Article{}, nil, err
	}

	return article, comments, nil
}

// AddComment posts a comment by the user on the article with the
// provided slug and bumps the denormalized comment count.
func (s *Service) AddComment(ctx context.Context, slug string, userID uuid.UUID, content string) error {
	if utf8.RuneCountInString(content) < minCommentRunes {
		return errorz.InvalidInput{
			errorz.Keyed{Key: "Content", Err: ErrCommentTooShort},
		}
	}

	now := s.NowFunc()

	return s.inTx(ctx, func(tx Tx) error {
		articles, txErr := tx.FindArticles(&ArticleFilter{Slugs: []string{slug}}, Page{})
		if txErr != nil {
			return txErr
		}

		if len(articles) != 1 {
			return errorz.ErrNotFound
		}

		article := articles[0]

		comment := Comment{
			ID:        uuid.New(),
			ArticleID: article.ID,
			UserID:    userID,
			Content:   content,
			CreatedAt: now,
		}

		if txErr := tx.CreateComment(&comment); txErr != nil {
			return txErr
		}

		article.CommentsCount++
		return tx.UpdateArticle(&article)
	})
}

// ListProducts returns a page of in-stock products, newest first,
// optionally narrowed by a title substring.
func (s *Service) ListProducts(ctx context.Context, page Page, titleLike string) ([]Product, error) {
	inStock := true

	var products []Product
	err := s.inTx(ctx, func(tx Tx) error {
		var txErr error
		products, txErr = tx.FindProducts(&ProductFilter{
			InStock:   &inStock,
			TitleLike: titleLike,
		}, page)
		return txErr
	})
	return products, err
}

// PaymentReceived marks the order in a verified payment notification as
// paid and decrements the product stock. A repeated notification for an
// already paid order is a no-op, gateways redeliver notifications until
// they are acknowledged.
func (s *Service) PaymentReceived(ctx context.Context, n PaymentNotification) error {
	return s.inTx(ctx, func(tx Tx) error {
		orders, txErr := tx.FindOrders(&OrderFilter{OrderNos: []string{n.OrderNo}})
		if txErr != nil {
			return txErr
		}

		if len(orders) != 1 {
			return errorz.ErrNotFound
		}

		order := orders[0]
		if order.IsPaid {
			return nil
		}

		order.IsPaid = true
		order.GatewayTradeNo = n.TradeNo

		if txErr := tx.UpdateOrder(&order); txErr != nil {
			return txErr
		}

		products, txErr := tx.FindProducts(&ProductFilter{IDs: []uuid.UUID{order.ProductID}}, Page{})
		if txErr != nil {
			return txErr
		}

		if len(products) != 1 {
			return errorz.ErrNotFound
		}

		product := products[0]
		product.Quantity -= order.Quantity

		return tx.UpdateProduct(&product)
	})
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	return tx.Commit()
}
