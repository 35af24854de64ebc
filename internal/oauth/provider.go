// Package oauth implements the third-party login provider adapters.
//
// Each adapter exchanges a one-time authorization code for an access
// token and resolves a profile with a stable external user id and a
// display name. The identity workflow treats that external id as the
// login email and the access token as the login password.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/timeshards/timeshards/internal/auth"
)

// Provider is a third-party login provider.
type Provider interface {
	// Name is the provider key used in the callback route.
	Name() string
	// AuthCodeURL returns the URL to redirect the user to for consent.
	AuthCodeURL(state string) string
	// Exchange trades the authorization code for an access token and
	// resolves the profile behind it. Failures are reported as a
	// *ProviderError, never swallowed.
	Exchange(ctx context.Context, code string) (auth.ExternalIdentity, error)
}

// ProviderError is an explicit error from a provider exchange or
// profile call. Callers can distinguish a provider outage from a plain
// signup failure.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("oauth provider %s: %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// getJSON fetches url and decodes the response body into out.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
