package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/restbind/restbind"
	"github.com/restbind/restbind/descriptor"
	"github.com/restbind/restbind/tokensource"
	"github.com/restbind/restbind/tokenstore"
)

// App wires configuration into the runtime pieces the commands share: the
// credential store, the credential source and the API client. Construction
// is eager so configuration mistakes surface before any command logic runs.
type App struct {
	Config *Config
	Store  tokenstore.Store
	Source restbind.CredentialSource
	Client *restbind.Client

	logger *slog.Logger
	oauth  *tokensource.Source
}

// New assembles an App from validated configuration.
func New(cfg *Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := cfg.Auth.NewStore()
	if err != nil {
		return nil, fmt.Errorf("creating credential store: %w", err)
	}

	a := &App{
		Config: cfg,
		Store:  store,
		logger: logger,
	}

	switch cfg.Auth.Method {
	case AuthenticationMethodOAuth:
		source := tokensource.NewSource(cfg.TokenSourceConfig(),
			tokensource.WithStore(store),
			tokensource.WithLogger(logger),
		)
		a.oauth = source
		a.Source = source
	case AuthenticationMethodStatic:
		source, err := tokensource.NewStaticSource(store)
		if err != nil {
			return nil, fmt.Errorf("creating static credential source: %w", err)
		}
		a.Source = source
	default:
		return nil, fmt.Errorf("unsupported authentication method %q", cfg.Auth.Method)
	}

	clientOpts := []restbind.Option{
		restbind.WithLogger(logger),
		restbind.WithHTTPClient(&http.Client{Timeout: cfg.HTTP.Timeout}),
		restbind.WithRetryPolicy(restbind.RetryPolicy{
			InitialInterval:     cfg.HTTP.Retry.InitialInterval,
			MaxInterval:         cfg.HTTP.Retry.MaxInterval,
			Multiplier:          cfg.HTTP.Retry.Multiplier,
			RandomizationFactor: cfg.HTTP.Retry.RandomizationFactor,
			MaxAttempts:         cfg.HTTP.Retry.MaxAttempts,
		}),
	}
	if cfg.TraceFile != "" {
		clientOpts = append(clientOpts, restbind.WithTraceFile(cfg.TraceFile))
	}

	client, err := restbind.New(a.Source, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	a.Client = client

	return a, nil
}

// OAuthSource returns the refreshing credential source, or an error when the
// configured authentication method does not use one. Login and logout only
// make sense for that method.
func (a *App) OAuthSource() (*tokensource.Source, error) {
	if a.oauth == nil {
		return nil, fmt.Errorf("authentication method %q has no managed credentials", a.Config.Auth.Method)
	}
	return a.oauth, nil
}

// Authorizer returns the provider-facing authorizer used during interactive
// login.
func (a *App) Authorizer() *tokensource.Authorizer {
	return tokensource.NewAuthorizer(a.Config.TokenSourceConfig(),
		tokensource.WithHTTPClient(&http.Client{Timeout: a.Config.HTTP.Timeout}),
	)
}

// Descriptor loads the configured API descriptor and applies the base URL
// override when one is set.
func (a *App) Descriptor() (*descriptor.Document, error) {
	if a.Config.Descriptor == "" {
		return nil, fmt.Errorf("no API descriptor configured")
	}

	doc, err := descriptor.Load(a.Config.Descriptor)
	if err != nil {
		return nil, fmt.Errorf("loading descriptor %s: %w", a.Config.Descriptor, err)
	}
	if a.Config.BaseURL != "" {
		doc.SetBaseURL(a.Config.BaseURL)
	}
	return doc, nil
}

// TokenSourceConfig translates the OAuth section into the tokensource
// representation.
func (c *Config) TokenSourceConfig() tokensource.Config {
	return tokensource.Config{
		ClientID:     c.OAuth.ClientID,
		ClientSecret: c.OAuth.ClientSecret,
		Scopes:       c.OAuth.Scopes.Selected,
		AuthURL:      c.OAuth.AuthURL,
		TokenURL:     c.OAuth.TokenURL,
		RedirectURL:  c.OAuth.RedirectURL,
	}
}
