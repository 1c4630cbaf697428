package hub

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// oauthTokenSource adapts an oauth2.TokenSource to this package's narrower
// TokenSource interface, the same bridging shape the teacher's auth code
// uses between its device-code flow and graph.TokenSource.
type oauthTokenSource struct {
	src oauth2.TokenSource
}

func (b *oauthTokenSource) Token() (string, error) {
	tok, err := b.src.Token()
	if err != nil {
		return "", err
	}

	return tok.AccessToken, nil
}

// NewClientCredentialsTokenSource builds a TokenSource that authenticates to
// the hub with OAuth2 client-credentials, the grant a headless daemon uses
// (no browser, no device code) — unlike the teacher's interactive flows in
// graph/auth.go, nothing here depends on a human being present.
func NewClientCredentialsTokenSource(ctx context.Context, tokenURL, clientID, clientSecret string, scopes []string) TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}

	return &oauthTokenSource{src: cfg.TokenSource(ctx)}
}

// StaticTokenSource wraps a pre-obtained bearer token, used for hubs
// authenticated with a long-lived API key instead of OAuth2.
func StaticTokenSource(token string) TokenSource {
	return &oauthTokenSource{src: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})}
}
