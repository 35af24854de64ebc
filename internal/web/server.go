package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/schema"
	"github.com/gorilla/sessions"

	"github.com/timeshards/timeshards/internal"
	"github.com/timeshards/timeshards/internal/auth"
	"github.com/timeshards/timeshards/internal/catalog"
	"github.com/timeshards/timeshards/internal/errorz"
	"github.com/timeshards/timeshards/internal/krypto"
	"github.com/timeshards/timeshards/internal/oauth"
)

const (
	csrfTokenCookieName = "ts-csrf"
	csrfTokenField      = "csrf_token"
)

// ViewRenderer renders named views with the given data.
type ViewRenderer interface {
	Render(w io.Writer, name string, data any) error
}

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger       *slog.Logger
	ViewRenderer ViewRenderer
	AuthService  *auth.Service
	Catalog      *catalog.Service
	SessionStore sessions.Store
	Providers    []oauth.Provider
	Verifier     catalog.NotifyVerifier
}

// ServerConfig is the configuration for the server.
type ServerConfig struct {
	CSRFKey      krypto.Key
	SecureCookie bool
}

type Server struct {
	deps      *ServerDeps
	mux       *http.ServeMux
	decoder   *schema.Decoder
	providers map[string]oauth.Provider
	handler   http.Handler
}

func NewServer(deps *ServerDeps, cfg ServerConfig) *Server {
	s := &Server{
		deps:      deps,
		mux:       http.NewServeMux(),
		decoder:   schema.NewDecoder(),
		providers: make(map[string]oauth.Provider),
	}

	s.decoder.IgnoreUnknownKeys(true)

	for _, p := range deps.Providers {
		s.providers[p.Name()] = p
	}

	// Home and articles.
	s.mux.Handle("GET /{$}", s.withSession(s.getHome))
	s.mux.Handle("GET /blog/{slug}", s.withSession(s.getArticle))
	s.mux.Handle("POST /blog/{slug}/comments", s.loggedIn(s.postComment))

	// Login and logout.
	s.mux.Handle("GET /signin", s.withSession(s.getSignIn))
	s.mux.Handle("POST /signin", s.withSession(s.postSignIn))
	s.mux.Handle("GET /signout", s.withSession(s.getSignOut))

	// Registration and activation.
	s.mux.Handle("GET /signup", s.withSession(s.getSignUp))
	s.mux.Handle("POST /signup", s.withSession(s.postSignUp))
	s.mux.Handle("GET /signup/success/{email}", s.withSession(s.getSignUpSuccess))
	s.mux.Handle("GET /activate/{token}", s.withSession(s.getActivate))

	// Password reset.
	s.mux.Handle("GET /password/forgot", s.withSession(s.getForgotPassword))
	s.mux.Handle("POST /password/forgot", s.withSession(s.postForgotPassword))
	s.mux.Handle("GET /password/reset/{token}", s.withSession(s.getPasswordReset))
	s.mux.Handle("POST /password/reset", s.withSession(s.postPasswordReset))

	// OAuth kick-off and callback.
	s.mux.Handle("GET /oauth/{provider}", s.withSession(s.getOAuth))

	csrfMW := csrf.Protect(
		cfg.CSRFKey.SecretValue(),
		csrf.CookieName(csrfTokenCookieName),
		csrf.FieldName(csrfTokenField),
		csrf.Secure(cfg.SecureCookie),
	)

	// The payment gateway posts notifications directly, it can't carry
	// a CSRF token. Everything else goes through the CSRF middleware.
	outer := http.NewServeMux()
	outer.Handle("POST /pay/notify", http.HandlerFunc(s.postPayNotify))
	outer.Handle("/", csrfMW(s.mux))

	s.handler = outer

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handlerFunc is a handler that receives the session as an explicit
// argument.
type handlerFunc func(w http.ResponseWriter, r *http.Request, sess *Session) error

// withSession loads the session and passes it to the handler.
func (s *Server) withSession(fn handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.loadSession(r)
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		if err := fn(w, r, sess); err != nil {
			s.handleError(w, r, err)
		}
	})
}

// loggedIn only calls the handler for authenticated sessions. Other
// requests are sent to the login page, with the original target
// captured so login can redirect back.
func (s *Server) loggedIn(fn handlerFunc) http.Handler {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, sess *Session) error {
		if _, ok := sess.UserID(); !ok {
			if r.Method == http.MethodGet {
				sess.SetIntended(r.URL.RequestURI())
			} else if referer := r.Header.Get("Referer"); referer != "" {
				sess.SetIntended(refererPath(referer))
			}

			if err := sess.Save(r, w); err != nil {
				return err
			}

			http.Redirect(w, r, "/signin", http.StatusFound)
			return nil
		}

		return fn(w, r, sess)
	})
}

// viewData is the envelope passed to every view.
type viewData struct {
	Global globalData
	View   any
}

type globalData struct {
	Version    string
	CSRFToken  string
	IsLoggedIn bool
	Flashes    []any
}

func (s *Server) writeView(w http.ResponseWriter, r *http.Request, sess *Session, name string, data any) error {
	return s.writeViewStatus(w, r, sess, name, data, http.StatusOK)
}

func (s *Server) writeViewStatus(w http.ResponseWriter, r *http.Request, sess *Session, name string, data any, status int) error {
	_, loggedIn := sess.UserID()

	vd := viewData{
		Global: globalData{
			Version:    internal.BuildRevision,
			CSRFToken:  csrf.Token(r),
			IsLoggedIn: loggedIn,
			Flashes:    sess.Flashes(),
		},
		View: data,
	}

	// Reading the flashes mutates the session, persist before writing
	// the body.
	if err := sess.Save(r, w); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return s.deps.ViewRenderer.Render(w, name, vd)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errorz.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var invalidInput errorz.InvalidInput
	if errors.As(err, &invalidInput) {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	s.deps.Logger.Error("internal server error", "url", r.URL.String(), "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// decodeForm parses the request form into dst, skipping the CSRF field.
func (s *Server) decodeForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return err
	}

	// The CSRF token has already been verified by the middleware and
	// won't map to any form struct.
	r.PostForm.Del(csrfTokenField)

	return s.decoder.Decode(dst, r.PostForm)
}

// refererPath reduces a referer header to a local path.
func refererPath(referer string) string {
	if len(referer) > 0 && referer[0] == '/' {
		return referer
	}

	// Strip scheme and host.
	for i := 0; i+2 < len(referer); i++ {
		if referer[i] == ':' && referer[i+1] == '/' && referer[i+2] == '/' {
			rest := referer[i+3:]
			for j := 0; j < len(rest); j++ {
				if rest[j] == '/' {
					return rest[j:]
				}
			}
			return "/"
		}
	}

	return "/"
}
