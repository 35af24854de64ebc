package oauth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/timeshards/timeshards/internal/krypto"
	"github.com/timeshards/timeshards/internal/oauth"
)

func newQQForTest(t *testing.T, handler http.Handler) *oauth.QQ {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	q := oauth.NewQQ("client-id", krypto.NewSecret("client-secret"), "http://localhost/oauth/qq")
	q.Config.Endpoint.AuthURL = srv.URL + "/oauth2.0/authorize"
	q.Config.Endpoint.TokenURL = srv.URL + "/oauth2.0/token"
	q.APIBase = srv.URL

	return q
}

func Test_QQ_Exchange(t *testing.T) {
	t.Run("ok, full flow", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/oauth2.0/token", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"at-1","token_type":"bearer","expires_in":3600}`))
		})
		mux.HandleFunc("/oauth2.0/me", func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("access_token"); got != "at-1" {
				t.Errorf("expected access token at-1, got %s", got)
			}
			// The endpoint wraps its JSON in a JSONP callback.
			w.Write([]byte(`callback( {"client_id":"client-id","openid":"OPENID-1"} );`))
		})
		mux.HandleFunc("/user/get_user_info", func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("openid"); got != "OPENID-1" {
				t.Errorf("expected openid OPENID-1, got %s", got)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ret":0,"nickname":"shardling"}`))
		})

		provider := newQQForTest(t, mux)

		ext, err := provider.Exchange(context.Background(), "the-code")
		if err != nil {
			t.Fatalf("failed to exchange: %v", err)
		}

		if ext.Provider != "qq" || ext.UserID != "OPENID-1" || ext.Nickname != "shardling" {
			t.Errorf("unexpected identity: %+v", ext)
		}
	})

	t.Run("fail, token endpoint down", func(t *testing.T) {
		provider := newQQForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))

		_, err := provider.Exchange(context.Background(), "the-code")

		var provErr *oauth.ProviderError
		if !errors.As(err, &provErr) {
			t.Fatalf("expected ProviderError, got %v", err)
		}

		if provErr.Provider != "qq" || provErr.Op != "exchange" {
			t.Errorf("unexpected provider error: %+v", provErr)
		}
	})

	t.Run("fail, no openid in response", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/oauth2.0/token", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"at-1","token_type":"bearer","expires_in":3600}`))
		})
		mux.HandleFunc("/oauth2.0/me", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`callback( {"error":100016,"error_description":"access token check failed"} );`))
		})

		provider := newQQForTest(t, mux)

		_, err := provider.Exchange(context.Background(), "the-code")

		var provErr *oauth.ProviderError
		if !errors.As(err, &provErr) {
			t.Fatalf("expected ProviderError, got %v", err)
		}

		if provErr.Op != "profile" {
			t.Errorf("expected profile op, got %s", provErr.Op)
		}
	})
}

func containsStr(s, substr string) bool {
	return strings.Contains(s, substr)
}
