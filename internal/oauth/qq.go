package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/timeshards/timeshards/internal/auth"
	"github.com/timeshards/timeshards/internal/krypto"
)

const qqAPIBase = "https://graph.qq.com"

// QQ implements the Provider interface for QQ Connect.
type QQ struct {
	// Config is the oauth2 config. Exposed so tests can point the
	// adapter at a fake token endpoint.
	Config oauth2.Config
	client *http.Client

	// APIBase is the base URL of the QQ Connect API. Exposed so tests
	// can point the adapter at a fake server.
	APIBase string
}

func NewQQ(clientID string, clientSecret krypto.Secret, callbackURL string) *QQ {
	return &QQ{
		Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: string(clientSecret.SecretValue()),
			RedirectURL:  callbackURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  qqAPIBase + "/oauth2.0/authorize",
				TokenURL: qqAPIBase + "/oauth2.0/token",
			},
		},
		client:  http.DefaultClient,
		APIBase: qqAPIBase,
	}
}

func (q *QQ) Name() string {
	return "qq"
}

func (q *QQ) AuthCodeURL(state string) string {
	return q.Config.AuthCodeURL(state)
}

// Exchange trades the authorization code for an access token, resolves
// the stable openid and fetches the profile for the display name.
func (q *QQ) Exchange(ctx context.Context, code string) (auth.ExternalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, q.client)

	tok, err := q.Config.Exchange(ctx, code)
	if err != nil {
		return auth.ExternalIdentity{}, &ProviderError{Provider: q.Name(), Op: "exchange", Err: err}
	}

	openID, err := q.fetchOpenID(ctx, tok.AccessToken)
	if err != nil {
		return auth.ExternalIdentity{}, &ProviderError{Provider: q.Name(), Op: "profile", Err: err}
	}

	var profile struct {
		Nickname string `json:"nickname"`
	}
	profileURL := fmt.Sprintf("%s/user/get_user_info?access_token=%s&oauth_consumer_key=%s&openid=%s",
		q.APIBase, url.QueryEscape(tok.AccessToken), url.QueryEscape(q.Config.ClientID), url.QueryEscape(openID))
	if err := getJSON(ctx, q.client, profileURL, &profile); err != nil {
		return auth.ExternalIdentity{}, &ProviderError{Provider: q.Name(), Op: "profile", Err: err}
	}

	return auth.ExternalIdentity{
		Provider:    q.Name(),
		UserID:      openID,
		AccessToken: krypto.NewSecret(tok.AccessToken),
		Nickname:    profile.Nickname,
	}, nil
}

// fetchOpenID resolves the stable user id for an access token. The
// endpoint wraps its JSON in a JSONP callback:
//
//	callback( {"client_id":"...","openid":"..."} );
func (q *QQ) fetchOpenID(ctx context.Context, accessToken string) (string, error) {
	meURL := fmt.Sprintf("%s/oauth2.0/me?access_token=%s", q.APIBase, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	raw := string(body)
	if start := strings.Index(raw, "("); start >= 0 {
		if end := strings.LastIndex(raw, ")"); end > start {
			raw = raw[start+1 : end]
		}
	}

	var me struct {
		OpenID string `json:"openid"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &me); err != nil {
		return "", fmt.Errorf("failed to parse openid response: %w", err)
	}

	if me.OpenID == "" {
		return "", fmt.Errorf("no openid in response: %s", body)
	}

	return me.OpenID, nil
}
