package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/timeshards/timeshards/internal/catalog"
	"github.com/timeshards/timeshards/internal/errorz"
)

type homeView struct {
	Articles []catalog.Article
	Products []catalog.Product
}

func (s *Server) getHome(w http.ResponseWriter, r *http.Request, sess *Session) error {
	articles, err := s.deps.Catalog.ListArticles(r.Context(), catalog.Page{Number: 1, Size: 6})
	if err != nil {
		return err
	}

	products, err := s.deps.Catalog.ListProducts(r.Context(), catalog.Page{Number: 1, Size: 12}, "")
	if err != nil {
		return err
	}

	return s.writeView(w, r, sess, "home", homeView{
		Articles: articles,
		Products: products,
	})
}

type articleView struct {
	Article  catalog.Article
	Comments []catalog.Comment
	Error    string
	Content  string
}

func (s *Server) getArticle(w http.ResponseWriter, r *http.Request, sess *Session) error {
	article, comments, err := s.deps.Catalog.ArticleBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		return err
	}

	return s.writeView(w, r, sess, "article", articleView{
		Article:  article,
		Comments: comments,
	})
}

type commentForm struct {
	Content string `schema:"content"`
}

func (s *Server) postComment(w http.ResponseWriter, r *http.Request, sess *Session) error {
	userID, ok := sess.UserID()
	if !ok {
		// loggedIn guarantees a user, this is a programming error.
		return errors.New("comment posted without a session user")
	}

	var form commentForm
	if err := s.decodeForm(r, &form); err != nil {
		return err
	}

	slug := r.PathValue("slug")

	err := s.deps.Catalog.AddComment(r.Context(), slug, userID, form.Content)
	if err != nil {
		if errors.Is(err, catalog.ErrCommentTooShort) {
			article, comments, lookupErr := s.deps.Catalog.ArticleBySlug(r.Context(), slug)
			if lookupErr != nil {
				return lookupErr
			}

			return s.writeViewStatus(w, r, sess, "article", articleView{
				Article:  article,
				Comments: comments,
				Error:    "Comments must be at least 3 characters.",
				Content:  form.Content,
			}, http.StatusUnprocessableEntity)
		}
		return err
	}

	sess.AddFlash("Your comment was posted.")
	if err := sess.Save(r, w); err != nil {
		return err
	}

	http.Redirect(w, r, "/blog/"+url.PathEscape(slug), http.StatusFound)
	return nil
}

// postPayNotify receives server-to-server payment notifications from
// the gateway. The gateway retries until it reads a literal "success"
// body.
func (s *Server) postPayNotify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.handleError(w, r, err)
		return
	}

	notification, err := s.deps.Verifier.Verify(r.Context(), r.PostForm)
	if err != nil {
		// An unverifiable notification is not ours to acknowledge.
		s.deps.Logger.Warn("payment notification rejected", "error", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if err := s.deps.Catalog.PaymentReceived(r.Context(), notification); err != nil {
		if errors.Is(err, errorz.ErrNotFound) {
			s.deps.Logger.Warn("payment notification for unknown order",
				"order_no", notification.OrderNo)
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		s.handleError(w, r, err)
		return
	}

	w.Write([]byte("success"))
}
