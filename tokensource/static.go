package tokensource

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/oauth2"

	"github.com/restbind/restbind/tokenstore"
)

// StaticSource serves a fixed access token managed outside the process,
// typically injected through an environment variable. There is no refresh
// path: invalidation just forces a re-read from storage, which picks up
// rotations performed by external secret management.
type StaticSource struct {
	store tokenstore.Store
	token atomic.Pointer[oauth2.Token]
}

// NewStaticSource creates a StaticSource reading the raw access token from
// store.
func NewStaticSource(store tokenstore.Store) (*StaticSource, error) {
	if store == nil {
		return nil, fmt.Errorf("tokensource: store cannot be nil")
	}
	return &StaticSource{store: store}, nil
}

// Token returns the stored access token, reading storage on first use and
// after invalidation.
func (s *StaticSource) Token(ctx context.Context) (*oauth2.Token, error) {
	if token := s.token.Load(); token != nil {
		return token, nil
	}

	accessToken, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("tokensource: loading static token: %w", err)
	}

	token := &oauth2.Token{AccessToken: accessToken}
	s.token.Store(token)
	return token, nil
}

// Invalidate drops the cached token so the next Token call re-reads
// storage. As with Source, a token already replaced concurrently is left
// alone.
func (s *StaticSource) Invalidate(stale *oauth2.Token) {
	if stale == nil {
		return
	}
	s.token.CompareAndSwap(stale, nil)
}
