package tokensource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/restbind/restbind/tokenstore"
)

// ErrReauthenticationRequired reports that no usable refresh path exists:
// either no credential has ever been stored, or the refresh exchange was
// rejected. The caller must redo the interactive authorization flow.
var ErrReauthenticationRequired = errors.New("tokensource: reauthentication required")

// DefaultRefreshMargin is how long before expiry a credential is treated as
// stale. Refreshing early keeps tokens from expiring mid-flight.
const DefaultRefreshMargin = 60 * time.Second

// Source hands out valid access tokens, refreshing them near expiry. The
// cached credential is replaced wholesale and read atomically, so concurrent
// callers observe either the old valid credential or the new one, never a
// torn value. At most one refresh exchange is in flight at a time.
type Source struct {
	authorizer *Authorizer
	store      tokenstore.Store
	margin     time.Duration
	logger     *slog.Logger

	token atomic.Pointer[oauth2.Token]
	group singleflight.Group
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithStore attaches persistent credential storage. The initial credential
// is loaded from the store on first use, and rotated refresh tokens are
// written back after each successful refresh.
func WithStore(store tokenstore.Store) SourceOption {
	return func(s *Source) {
		s.store = store
	}
}

// WithRefreshMargin overrides DefaultRefreshMargin.
func WithRefreshMargin(margin time.Duration) SourceOption {
	return func(s *Source) {
		s.margin = margin
	}
}

// WithLogger sets the logger for persistence and refresh diagnostics.
func WithLogger(logger *slog.Logger) SourceOption {
	return func(s *Source) {
		s.logger = logger
	}
}

// NewSource creates a Source for the given provider configuration. No I/O
// happens until the first Token call.
func NewSource(cfg Config, opts ...SourceOption) *Source {
	s := &Source{
		authorizer: NewAuthorizer(cfg),
		margin:     DefaultRefreshMargin,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns a credential valid for at least the refresh margin,
// refreshing if necessary. Callers arriving during a refresh wait for its
// result instead of triggering their own exchange. A caller whose context is
// cancelled while waiting returns immediately; the refresh itself continues
// to completion for the remaining waiters.
func (s *Source) Token(ctx context.Context) (*oauth2.Token, error) {
	if token := s.token.Load(); s.usable(token) {
		return token, nil
	}

	ch := s.group.DoChan("refresh", func() (any, error) {
		return s.refresh()
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	}
}

// Invalidate discards the cached access token, but only when it is still
// the one the caller used. A credential replaced by a concurrent refresh is
// left alone. The refresh token survives invalidation: without it a Source
// running store-less after SetToken would lose its only refresh path.
func (s *Source) Invalidate(stale *oauth2.Token) {
	if stale == nil {
		return
	}
	if stale.RefreshToken != "" {
		s.token.CompareAndSwap(stale, &oauth2.Token{RefreshToken: stale.RefreshToken})
		return
	}
	s.token.CompareAndSwap(stale, nil)
}

// SetToken installs a credential obtained elsewhere (an interactive
// authorization flow) and persists it.
func (s *Source) SetToken(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return errors.New("tokensource: token cannot be nil")
	}
	s.token.Store(token)
	return s.persist(ctx, token)
}

// Logout discards the cached credential and clears persistent storage. The
// next Token call fails with ErrReauthenticationRequired until a new
// interactive authorization completes.
func (s *Source) Logout(ctx context.Context) error {
	s.token.Store(nil)
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, ""); err != nil {
		return fmt.Errorf("tokensource: clearing stored credential: %w", err)
	}
	return nil
}

// usable reports whether the credential can be attached to a request without
// refreshing first.
func (s *Source) usable(token *oauth2.Token) bool {
	if token == nil || token.AccessToken == "" {
		return false
	}
	// Zero expiry means the provider gave no lifetime; treat as non-expiring.
	if token.Expiry.IsZero() {
		return true
	}
	return time.Until(token.Expiry) > s.margin
}

// refresh runs inside the single flight. It deliberately ignores caller
// contexts: the exchange completes on behalf of every waiter, including
// future ones, regardless of who cancels. The Authorizer's HTTP client
// timeout bounds the exchange.
func (s *Source) refresh() (*oauth2.Token, error) {
	// A racing caller may have refreshed while this one was queued.
	if token := s.token.Load(); s.usable(token) {
		return token, nil
	}

	ctx := context.Background()

	refreshToken, err := s.currentRefreshToken(ctx)
	if err != nil {
		return nil, err
	}

	token, err := s.authorizer.Refresh(ctx, refreshToken)
	if err != nil {
		// The refresh path is gone (revoked or rejected). Drop the stale
		// credential so the next attempt starts from storage again.
		s.token.Store(nil)
		return nil, fmt.Errorf("%w: %v", ErrReauthenticationRequired, err)
	}
	if token.RefreshToken == "" {
		// Provider did not rotate; keep the working refresh token.
		token.RefreshToken = refreshToken
	}

	s.token.Store(token)
	if err := s.persist(ctx, token); err != nil {
		// The access token is valid either way; losing the write-back only
		// matters once this process restarts.
		s.logger.ErrorContext(ctx, "failed to persist refreshed credential", "error", err)
	}

	return token, nil
}

// currentRefreshToken determines the refresh token to use, falling back to
// persistent storage when the in-memory credential has none.
func (s *Source) currentRefreshToken(ctx context.Context) (string, error) {
	if token := s.token.Load(); token != nil && token.RefreshToken != "" {
		return token.RefreshToken, nil
	}

	if s.store == nil {
		return "", ErrReauthenticationRequired
	}

	serialized, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			return "", ErrReauthenticationRequired
		}
		return "", fmt.Errorf("tokensource: loading stored credential: %w", err)
	}

	var stored oauth2.Token
	if err := json.Unmarshal([]byte(serialized), &stored); err != nil {
		return "", fmt.Errorf("tokensource: stored credential is not valid JSON: %w", err)
	}
	if stored.RefreshToken == "" {
		return "", ErrReauthenticationRequired
	}
	return stored.RefreshToken, nil
}

// persist writes the credential back to storage as JSON.
func (s *Source) persist(ctx context.Context, token *oauth2.Token) error {
	if s.store == nil {
		return nil
	}
	serialized, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("tokensource: serializing credential: %w", err)
	}
	return s.store.Save(ctx, string(serialized))
}
