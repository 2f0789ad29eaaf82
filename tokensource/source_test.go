package tokensource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/restbind/restbind/tokenstore"
)

// memoryStore is an in-process tokenstore.Store for tests.
type memoryStore struct {
	mu         sync.Mutex
	credential string
	loads      int
	saves      int
}

var _ tokenstore.Store = (*memoryStore)(nil)

func (m *memoryStore) Load(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.credential == "" {
		return "", tokenstore.ErrNotFound
	}
	return m.credential, nil
}

func (m *memoryStore) Save(ctx context.Context, credential string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credential = credential
	m.saves++
	return nil
}

func (m *memoryStore) seed(t *testing.T, token *oauth2.Token) {
	t.Helper()
	serialized, err := json.Marshal(token)
	if err != nil {
		t.Fatalf("marshaling seed credential: %v", err)
	}
	m.credential = string(serialized)
}

// newTokenEndpoint returns a test identity provider that issues sequentially
// numbered access tokens, and a counter of refresh exchanges observed.
func newTokenEndpoint(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var exchanges atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := exchanges.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"at-%d","token_type":"Bearer","refresh_token":"rt-%d","expires_in":3600}`, n, n)
	}))
	t.Cleanup(server.Close)
	return server, &exchanges
}

func testConfig(tokenURL string) Config {
	return Config{
		ClientID: "client-1",
		Scopes:   []string{"items.read"},
		AuthURL:  "https://provider.example.com/authorize",
		TokenURL: tokenURL,
	}
}

func TestTokenRefreshesFromStoredCredential(t *testing.T) {
	server, exchanges := newTokenEndpoint(t)

	store := &memoryStore{}
	store.seed(t, &oauth2.Token{RefreshToken: "rt-0"})

	src := NewSource(testConfig(server.URL), WithStore(store))

	token, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if token.AccessToken != "at-1" {
		t.Errorf("AccessToken = %q, want %q", token.AccessToken, "at-1")
	}
	if got := exchanges.Load(); got != 1 {
		t.Errorf("refresh exchanges = %d, want 1", got)
	}

	// Fresh credential is served from cache.
	again, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("second Token failed: %v", err)
	}
	if again != token {
		t.Error("expected cached credential on second call")
	}
	if got := exchanges.Load(); got != 1 {
		t.Errorf("refresh exchanges after cached read = %d, want 1", got)
	}
}

func TestTokenSingleFlight(t *testing.T) {
	server, exchanges := newTokenEndpoint(t)

	store := &memoryStore{}
	store.seed(t, &oauth2.Token{RefreshToken: "rt-0"})

	src := NewSource(testConfig(server.URL), WithStore(store))

	const callers = 32
	tokens := make([]*oauth2.Token, callers)

	var g errgroup.Group
	for i := range callers {
		g.Go(func() error {
			token, err := src.Token(context.Background())
			if err != nil {
				return err
			}
			tokens[i] = token
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent Token failed: %v", err)
	}

	if got := exchanges.Load(); got != 1 {
		t.Errorf("refresh exchanges = %d, want exactly 1", got)
	}
	for i, token := range tokens {
		if token.AccessToken != tokens[0].AccessToken {
			t.Fatalf("caller %d received %q, caller 0 received %q", i, token.AccessToken, tokens[0].AccessToken)
		}
	}
}

func TestTokenRefreshesNearExpiry(t *testing.T) {
	server, exchanges := newTokenEndpoint(t)

	store := &memoryStore{}
	store.seed(t, &oauth2.Token{RefreshToken: "rt-0"})

	src := NewSource(testConfig(server.URL), WithStore(store))

	first, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	// Simulate a credential inside the refresh safety margin.
	soon := *first
	soon.Expiry = time.Now().Add(10 * time.Second)
	src.token.Store(&soon)

	second, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token near expiry failed: %v", err)
	}
	if second.AccessToken == soon.AccessToken {
		t.Error("expected a new access token for a near-expiry credential")
	}
	if got := exchanges.Load(); got != 2 {
		t.Errorf("refresh exchanges = %d, want 2", got)
	}
}

func TestTokenWithoutCredential(t *testing.T) {
	server, _ := newTokenEndpoint(t)

	src := NewSource(testConfig(server.URL), WithStore(&memoryStore{}))

	_, err := src.Token(context.Background())
	if !errors.Is(err, ErrReauthenticationRequired) {
		t.Errorf("Token error = %v, want ErrReauthenticationRequired", err)
	}
}

func TestTokenRefreshRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	t.Cleanup(server.Close)

	store := &memoryStore{}
	store.seed(t, &oauth2.Token{RefreshToken: "rt-revoked"})

	src := NewSource(testConfig(server.URL), WithStore(store))

	_, err := src.Token(context.Background())
	if !errors.Is(err, ErrReauthenticationRequired) {
		t.Errorf("Token error = %v, want ErrReauthenticationRequired", err)
	}
}

func TestInvalidateOnlyDropsOwnCredential(t *testing.T) {
	server, exchanges := newTokenEndpoint(t)

	store := &memoryStore{}
	store.seed(t, &oauth2.Token{RefreshToken: "rt-0"})

	src := NewSource(testConfig(server.URL), WithStore(store))

	first, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	src.Invalidate(first)
	second, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token after invalidate failed: %v", err)
	}
	if second.AccessToken == first.AccessToken {
		t.Error("expected a fresh access token after invalidation")
	}
	if got := exchanges.Load(); got != 2 {
		t.Errorf("refresh exchanges = %d, want 2", got)
	}

	// Invalidating the superseded credential must not touch the current one.
	src.Invalidate(first)
	third, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if third != second {
		t.Error("stale invalidation discarded the current credential")
	}
}

func TestInvalidatePreservesRefreshPathWithoutStore(t *testing.T) {
	server, exchanges := newTokenEndpoint(t)

	// No store: the in-memory credential is the only refresh path.
	src := NewSource(testConfig(server.URL))

	seeded := &oauth2.Token{AccessToken: "at-stale", RefreshToken: "rt-live"}
	if err := src.SetToken(context.Background(), seeded); err != nil {
		t.Fatalf("SetToken failed: %v", err)
	}

	src.Invalidate(seeded)

	token, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token after invalidate failed: %v", err)
	}
	if token.AccessToken != "at-1" {
		t.Errorf("AccessToken = %q, want %q", token.AccessToken, "at-1")
	}
	if got := exchanges.Load(); got != 1 {
		t.Errorf("refresh exchanges = %d, want 1", got)
	}
}

func TestRefreshSurvivesCallerCancellation(t *testing.T) {
	var exchanges atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if exchanges.Add(1) == 1 {
			close(started)
		}
		<-release
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at-1","token_type":"Bearer","refresh_token":"rt-1","expires_in":3600}`)
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
	})

	store := &memoryStore{}
	store.seed(t, &oauth2.Token{RefreshToken: "rt-0"})

	src := NewSource(testConfig(server.URL), WithStore(store))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancelled := make(chan error, 1)
	go func() {
		_, err := src.Token(ctx)
		cancelled <- err
	}()
	<-started

	// Waiters join the in-flight refresh before the first caller bails out.
	const waiters = 4
	tokens := make([]*oauth2.Token, waiters)
	var g errgroup.Group
	for i := range waiters {
		g.Go(func() error {
			token, err := src.Token(context.Background())
			if err != nil {
				return err
			}
			tokens[i] = token
			return nil
		})
	}
	time.Sleep(100 * time.Millisecond)

	cancel()
	if err := <-cancelled; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller error = %v, want context.Canceled", err)
	}

	close(release)
	if err := g.Wait(); err != nil {
		t.Fatalf("waiting Token failed: %v", err)
	}
	for i, token := range tokens {
		if token.AccessToken != "at-1" {
			t.Errorf("waiter %d received %q, want %q", i, token.AccessToken, "at-1")
		}
	}
	if got := exchanges.Load(); got != 1 {
		t.Errorf("refresh exchanges = %d, want exactly 1", got)
	}
}

func TestRefreshPersistsRotatedCredential(t *testing.T) {
	server, _ := newTokenEndpoint(t)

	store := &memoryStore{}
	store.seed(t, &oauth2.Token{RefreshToken: "rt-0"})

	src := NewSource(testConfig(server.URL), WithStore(store))

	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	var persisted oauth2.Token
	if err := json.Unmarshal([]byte(store.credential), &persisted); err != nil {
		t.Fatalf("persisted credential is not valid JSON: %v", err)
	}
	if persisted.RefreshToken != "rt-1" {
		t.Errorf("persisted refresh token = %q, want %q", persisted.RefreshToken, "rt-1")
	}
}

func TestLogout(t *testing.T) {
	server, _ := newTokenEndpoint(t)

	store := &memoryStore{}
	store.seed(t, &oauth2.Token{RefreshToken: "rt-0"})

	src := NewSource(testConfig(server.URL), WithStore(store))

	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if err := src.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	_, err := src.Token(context.Background())
	if !errors.Is(err, ErrReauthenticationRequired) {
		t.Errorf("Token after logout = %v, want ErrReauthenticationRequired", err)
	}
}
