// Package restbind turns declarative endpoint metadata into authenticated,
// ready-to-call API functions.
//
// A Client binds an HTTP client, a credential source and retry policy; its
// Generate method closes over one endpoint.Config and returns a callable
// that handles URL templating, bearer authentication, a single
// refresh-and-retry on credential rejection, bounded backoff on transient
// failures, and JSON response parsing:
//
//	client, err := restbind.New(source)
//	shorten, err := client.Generate(endpoint.Config{
//	  BaseURL: "https://api.example.com/urlshortener/v1/url",
//	  Method:  endpoint.MethodPost,
//	  Transform: func(body gjson.Result) (any, error) {
//	    return body.Get("id").String(), nil
//	  },
//	})
//	id, err := shorten(ctx, endpoint.Args{Body: map[string]any{"longUrl": long}})
//
// Generated callables are safe for concurrent use and share the Client's
// credential source, so a refresh triggered by one call benefits all others.
package restbind

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/restbind/restbind/endpoint"
	"github.com/restbind/restbind/tokensource"
)

// CredentialSource supplies bearer credentials to the request pipeline.
// Token blocks while a refresh is in flight; Invalidate discards a
// credential the upstream API rejected so the next Token call refreshes.
type CredentialSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	Invalidate(stale *oauth2.Token)
}

// Compile-time check that the tokensource implementation satisfies the
// pipeline's contract.
var _ CredentialSource = (*tokensource.Source)(nil)

// RetryPolicy bounds retries of rate-limited and server-error responses.
type RetryPolicy struct {
	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration

	// MaxInterval caps the delay between retries.
	MaxInterval time.Duration

	// Multiplier grows the delay after each attempt.
	Multiplier float64

	// RandomizationFactor jitters each delay by ±factor.
	RandomizationFactor float64

	// MaxAttempts is the total number of send attempts, the first included.
	MaxAttempts uint
}

// DefaultRetryPolicy is the retry policy applied when none is configured.
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval:     500 * time.Millisecond,
	MaxInterval:         10 * time.Second,
	Multiplier:          2.0,
	RandomizationFactor: 0.5,
	MaxAttempts:         4,
}

// Client executes calls against endpoint configurations. A single Client is
// safe for concurrent use by any number of generated callables.
type Client struct {
	httpClient *http.Client
	source     CredentialSource
	logger     *slog.Logger
	retry      RetryPolicy
	trace      *traceRecorder
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (30 second timeout).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for call diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// WithTraceFile persists the most recent resolved request (method, URL,
// body; never the credential) to path after each resolution. The artifact is
// an observability aid for offline inspection and is never read back by the
// pipeline.
func WithTraceFile(path string) Option {
	return func(c *Client) {
		c.trace = &traceRecorder{path: path}
	}
}

// WithUserAgent sets the User-Agent header attached to every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// New creates a Client around the given credential source.
func New(source CredentialSource, opts ...Option) (*Client, error) {
	if source == nil {
		return nil, fmt.Errorf("restbind: credential source cannot be nil")
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		source:     source,
		logger:     slog.Default(),
		retry:      DefaultRetryPolicy,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.retry.MaxAttempts == 0 {
		return nil, fmt.Errorf("restbind: retry policy needs at least one attempt")
	}

	return c, nil
}

// CallFunc is a generated API callable. Each invocation supplies only the
// dynamic arguments; everything else is fixed by the endpoint configuration
// the callable closes over.
type CallFunc func(ctx context.Context, args endpoint.Args) (any, error)

// Generate binds cfg into a reusable callable. It validates the
// configuration structurally and performs no I/O; all network work happens
// inside the returned CallFunc.
func (c *Client) Generate(cfg endpoint.Config) (CallFunc, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("restbind: invalid endpoint configuration: %w", err)
	}

	bound := cfg.Clone()
	return func(ctx context.Context, args endpoint.Args) (any, error) {
		return c.execute(ctx, bound, args)
	}, nil
}

// Do executes a single call without generating a reusable callable.
func (c *Client) Do(ctx context.Context, cfg endpoint.Config, args endpoint.Args) (any, error) {
	call, err := c.Generate(cfg)
	if err != nil {
		return nil, err
	}
	return call(ctx, args)
}
