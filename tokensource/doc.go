// Package tokensource manages the OAuth2 credential lifecycle: the initial
// authorization-code exchange, cached access tokens, and automatic
// single-flight refresh.
//
// # Authorization flow
//
// Use Authorizer for the initial flow to obtain a credential. The consent
// step happens in the user's browser; the process only produces the URL and
// consumes the resulting code:
//
//	auth := tokensource.NewAuthorizer(cfg)
//	verifier := oauth2.GenerateVerifier() // save for Exchange
//	url := auth.AuthCodeURL(verifier)
//	// user authorizes in a browser and supplies the code
//	token, err := auth.Exchange(ctx, code, verifier)
//
// # Credential source
//
// Source hands out valid access tokens to concurrent callers, refreshing
// near expiry. However many callers ask at once, at most one refresh
// exchange is in flight; everyone waits for and shares its result. A caller
// that cancels while waiting detaches without aborting the refresh, which
// completes for the benefit of the remaining waiters.
//
//	src := tokensource.NewSource(cfg, tokensource.WithStore(store))
//	token, err := src.Token(ctx)
package tokensource
