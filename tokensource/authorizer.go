package tokensource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Config identifies the application to the identity provider and names the
// provider's endpoints.
type Config struct {
	// ClientID identifies this application. Required.
	ClientID string

	// ClientSecret is empty for public clients using PKCE.
	ClientSecret string

	// Scopes are the access scopes requested during authorization.
	Scopes []string

	// AuthURL and TokenURL are the provider's authorization and token
	// exchange endpoints.
	AuthURL  string
	TokenURL string

	// RedirectURL receives the authorization code after consent. For
	// out-of-band flows this is the provider's manual-copy redirect.
	RedirectURL string
}

// oauth2Config translates Config into the x/oauth2 representation.
func (c Config) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       append([]string(nil), c.Scopes...),
		RedirectURL:  c.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Authorizer performs the exchanges that talk to the identity provider: the
// one-time authorization-code exchange and the recurring refresh-token
// exchange. It is the only component with knowledge of the provider's
// endpoints.
type Authorizer struct {
	config *oauth2.Config
	client *http.Client
}

// AuthorizerOption configures an Authorizer.
type AuthorizerOption func(*Authorizer)

// WithHTTPClient sets the HTTP client used for token endpoint requests.
// The default client has a 30 second timeout.
func WithHTTPClient(client *http.Client) AuthorizerOption {
	return func(a *Authorizer) {
		a.client = client
	}
}

// NewAuthorizer creates an Authorizer for the given provider configuration.
func NewAuthorizer(cfg Config, opts ...AuthorizerOption) *Authorizer {
	a := &Authorizer{
		config: cfg.oauth2Config(),
		client: &http.Client{
			// Bounds token exchanges even when callers pass long-lived contexts.
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AuthCodeURL generates the authorization URL for the consent step, with a
// PKCE S256 challenge derived from verifier. The caller must keep the
// verifier and pass the same value to Exchange.
func (a *Authorizer) AuthCodeURL(verifier string, opts ...oauth2.AuthCodeOption) string {
	allOpts := append(opts, oauth2.S256ChallengeOption(verifier))
	return a.config.AuthCodeURL(verifier, allOpts...)
}

// Exchange completes the authorization flow, trading the code from the
// consent redirect for a credential.
func (a *Authorizer) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if verifier == "" {
		return nil, errors.New("tokensource: verifier cannot be empty")
	}

	token, err := a.config.Exchange(a.httpContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("tokensource: authorization code exchange: %w", err)
	}
	return token, nil
}

// Refresh trades a refresh token for a new credential. Providers that rotate
// refresh tokens return the replacement inside the new credential.
func (a *Authorizer) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, errors.New("tokensource: refresh token cannot be empty")
	}

	stale := &oauth2.Token{RefreshToken: refreshToken}
	token, err := a.config.TokenSource(a.httpContext(ctx), stale).Token()
	if err != nil {
		return nil, fmt.Errorf("tokensource: refresh exchange: %w", err)
	}
	return token, nil
}

// httpContext injects the Authorizer's HTTP client into ctx the way the
// oauth2 package expects.
func (a *Authorizer) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.client)
}
