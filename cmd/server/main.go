package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/timeshards/timeshards/assets"
	"github.com/timeshards/timeshards/internal"
	"github.com/timeshards/timeshards/internal/auth"
	authdb "github.com/timeshards/timeshards/internal/auth/db"
	"github.com/timeshards/timeshards/internal/catalog"
	catalogdb "github.com/timeshards/timeshards/internal/catalog/db"
	"github.com/timeshards/timeshards/internal/db"
	"github.com/timeshards/timeshards/internal/email"
	"github.com/timeshards/timeshards/internal/email/postmark"
	emailview "github.com/timeshards/timeshards/internal/email/view"
	"github.com/timeshards/timeshards/internal/oauth"
	"github.com/timeshards/timeshards/internal/pay"
	"github.com/timeshards/timeshards/internal/web"
	"github.com/timeshards/timeshards/internal/web/view"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(w, nil))

	// A .env file is a development convenience, not having one is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env file", "error", err)
	}

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	database, err := db.OpenSQLite(cfg.dbFile, true)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return 1
	}
	defer database.Close()

	if err := db.Migrate(ctx, database, assets.MigrationFS); err != nil {
		logger.Error("failed to migrate database", "error", err)
		return 1
	}

	var sender email.Sender = email.NewLogSender(logger)
	if len(cfg.email.postmarkServerToken.SecretValue()) > 0 {
		sender = postmark.NewSender(http.DefaultClient, postmark.Settings{
			APIURL:        cfg.email.postmarkAPIURL,
			ServerToken:   cfg.email.postmarkServerToken,
			MessageStream: cfg.email.postmarkMessageStream,
		})
	}

	emailSvc := email.NewService(emailview.NewFSRenderer(assets.EmailFS), sender, cfg.email.from)

	authSvc, err := auth.NewService(authdb.New(database), emailSvc, auth.ServiceConfig{
		BaseURL:          cfg.baseURL,
		ResetTokenExpiry: cfg.auth.resetTokenExpiry,
		ResetThrottle:    cfg.auth.resetThrottle,
	})
	if err != nil {
		logger.Error("failed to create auth service", "error", err)
		return 1
	}

	catalogSvc := catalog.NewService(catalogdb.New(database))

	var providers []oauth.Provider
	if cfg.weibo.clientID != "" {
		providers = append(providers, oauth.NewWeibo(
			cfg.weibo.clientID,
			cfg.weibo.clientSecret,
			cfg.baseURL+"/oauth/weibo",
		))
	}
	if cfg.qq.clientID != "" {
		providers = append(providers, oauth.NewQQ(
			cfg.qq.clientID,
			cfg.qq.clientSecret,
			cfg.baseURL+"/oauth/qq",
		))
	}

	sessionStore := sessions.NewCookieStore(cfg.auth.sessionKey.SecretValue())
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.auth.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}

	deps := &web.ServerDeps{
		Logger:       logger,
		ViewRenderer: view.NewFSRenderer(assets.TemplateFS),
		AuthService:  authSvc,
		Catalog:      catalogSvc,
		SessionStore: sessionStore,
		Providers:    providers,
		Verifier:     pay.MD5Verifier(cfg.payKey),
	}

	srv := &http.Server{
		Addr:         cfg.http.addr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.writeTimeout,
		IdleTimeout:  cfg.http.idleTimeout,
		Handler: web.NewServer(deps, web.ServerConfig{
			CSRFKey:      cfg.auth.csrfKey,
			SecureCookie: cfg.auth.secureCookie,
		}),
	}

	// We need to run two tasks concurrently:
	// - Listen and serving of the HTTP server.
	// - Waiting for a signal to stop the server.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.http.addr,
			"buildRevision", internal.BuildRevision,
			"buildRevisionTime", internal.BuildRevisionTime,
		)
		// ListenAndServe always returns a non-nil error,
		// g will cancel gCtx when an error is returned, so
		// this will also stop the other goroutine.
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.http.shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutCtx)
	})

	err = g.Wait()
	if err != nil && err != http.ErrServerClosed {
		logger.Error("http server stopped with error", "error", err)
		return 1
	}

	logger.Info("http server stopped successfully")

	return 0
}
