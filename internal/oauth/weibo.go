package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/timeshards/timeshards/internal/auth"
	"github.com/timeshards/timeshards/internal/krypto"
)

const weiboAPIBase = "https://api.weibo.com"

// Weibo implements the Provider interface for Sina Weibo.
type Weibo struct {
	// Config is the oauth2 config. Exposed so tests can point the
	// adapter at a fake token endpoint.
	Config oauth2.Config
	client *http.Client

	// APIBase is the base URL of the Weibo REST API. Exposed so tests
	// can point the adapter at a fake server.
	APIBase string
}

func NewWeibo(clientID string, clientSecret krypto.Secret, callbackURL string) *Weibo {
	return &Weibo{
		Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: string(clientSecret.SecretValue()),
			RedirectURL:  callbackURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  weiboAPIBase + "/oauth2/authorize",
				TokenURL: weiboAPIBase + "/oauth2/access_token",
			},
		},
		client:  http.DefaultClient,
		APIBase: weiboAPIBase,
	}
}

func (w *Weibo) Name() string {
	return "weibo"
}

func (w *Weibo) AuthCodeURL(state string) string {
	return w.Config.AuthCodeURL(state)
}

// Exchange trades the authorization code for an access token and
// resolves the Weibo profile. The token response carries the uid, the
// display name requires an extra profile call.
func (w *Weibo) Exchange(ctx context.Context, code string) (auth.ExternalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, w.client)

	tok, err := w.Config.Exchange(ctx, code)
	if err != nil {
		return auth.ExternalIdentity{}, &ProviderError{Provider: w.Name(), Op: "exchange", Err: err}
	}

	uid, _ := tok.Extra("uid").(string)
	if uid == "" {
		// Older API versions only return the uid from a dedicated endpoint.
		var uidResp struct {
			UID int64 `json:"uid"`
		}
		uidURL := fmt.Sprintf("%s/2/account/get_uid.json?access_token=%s", w.APIBase, url.QueryEscape(tok.AccessToken))
		if err := getJSON(ctx, w.client, uidURL, &uidResp); err != nil {
			return auth.ExternalIdentity{}, &ProviderError{Provider: w.Name(), Op: "profile", Err: err}
		}
		uid = fmt.Sprintf("%d", uidResp.UID)
	}

	var profile struct {
		ScreenName string `json:"screen_name"`
	}
	profileURL := fmt.Sprintf("%s/2/users/show.json?access_token=%s&uid=%s",
		w.APIBase, url.QueryEscape(tok.AccessToken), url.QueryEscape(uid))
	if err := getJSON(ctx, w.client, profileURL, &profile); err != nil {
		return auth.ExternalIdentity{}, &ProviderError{Provider: w.Name(), Op: "profile", Err: err}
	}

	return auth.ExternalIdentity{
		Provider:    w.Name(),
		UserID:      uid,
		AccessToken: krypto.NewSecret(tok.AccessToken),
		Nickname:    profile.ScreenName,
	}, nil
}
