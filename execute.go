package restbind

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/restbind/restbind/endpoint"
	"github.com/restbind/restbind/tokensource"
)

// rawResponse is one HTTP exchange's outcome, scoped to a single call.
type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

// execute runs the full pipeline for one invocation: resolve, authenticate,
// send with bounded retries, parse. Resolution failures happen before any
// network I/O.
func (c *Client) execute(ctx context.Context, cfg endpoint.Config, args endpoint.Args) (any, error) {
	resolved, err := cfg.Resolve(args)
	if err != nil {
		return nil, err
	}

	callID := uuid.NewString()
	logger := c.logger.With(
		"call_id", callID,
		"method", string(resolved.Method),
		"url", resolved.URL,
	)
	c.trace.record(ctx, logger, callID, resolved)

	attempts := 0
	var lastTransient *transientStatusError
	operation := func() (*rawResponse, error) {
		attempts++
		raw, err := c.attempt(ctx, logger, resolved)
		if err != nil {
			var authErr *AuthRetryError
			if errors.As(err, &authErr) || errors.Is(err, tokensource.ErrReauthenticationRequired) {
				return nil, backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			// Network-level failure: eligible for backoff.
			return nil, err
		}

		switch {
		case raw.status >= 200 && raw.status < 300:
			return raw, nil
		case raw.status == http.StatusTooManyRequests:
			logger.DebugContext(ctx, "rate limited", "attempt", attempts)
			lastTransient = &transientStatusError{Status: raw.status, Body: raw.body}
			if seconds := retryAfterSeconds(raw.header); seconds > 0 {
				return nil, backoff.RetryAfter(seconds)
			}
			return nil, lastTransient
		case raw.status >= 500:
			logger.DebugContext(ctx, "server error", "status", raw.status, "attempt", attempts)
			lastTransient = &transientStatusError{Status: raw.status, Body: raw.body}
			return nil, lastTransient
		default:
			return nil, backoff.Permanent(&StatusError{Status: raw.status, Body: raw.body})
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retry.InitialInterval
	policy.MaxInterval = c.retry.MaxInterval
	policy.Multiplier = c.retry.Multiplier
	policy.RandomizationFactor = c.retry.RandomizationFactor

	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.retry.MaxAttempts),
	)
	if err != nil {
		var transient *transientStatusError
		if !errors.As(err, &transient) {
			// A Retry-After on the final attempt surfaces the library's
			// delay error; fold it back into the last rate-limit response.
			var retryAfter *backoff.RetryAfterError
			if errors.As(err, &retryAfter) {
				transient = lastTransient
			}
		}
		if transient != nil {
			return nil, &RetriesExhaustedError{
				Attempts: attempts,
				Status:   transient.Status,
				Body:     transient.Body,
			}
		}
		return nil, err
	}

	return parseResult(raw, cfg, args)
}

// attempt performs one authenticated exchange, refreshing the credential and
// resending exactly once when the upstream rejects it.
func (c *Client) attempt(ctx context.Context, logger *slog.Logger, resolved *endpoint.ResolvedRequest) (*rawResponse, error) {
	token, err := c.source.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring credential: %w", err)
	}

	raw, err := c.send(ctx, resolved, token)
	if err != nil {
		return nil, err
	}
	if !isAuthFailure(raw) {
		return raw, nil
	}

	logger.WarnContext(ctx, "credential rejected, refreshing once", "status", raw.status)
	c.source.Invalidate(token)

	fresh, err := c.source.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("reacquiring credential: %w", err)
	}

	raw, err = c.send(ctx, resolved, fresh)
	if err != nil {
		return nil, err
	}
	if isAuthFailure(raw) {
		return nil, &AuthRetryError{Status: raw.status, Body: raw.body}
	}
	return raw, nil
}

// send performs the HTTP exchange with the credential attached as a bearer
// header. The resolved request is never mutated; only the headers differ
// between the original send and an auth retry.
func (c *Client) send(ctx context.Context, resolved *endpoint.ResolvedRequest, token *oauth2.Token) (*rawResponse, error) {
	var bodyReader io.Reader
	if len(resolved.Body) > 0 {
		bodyReader = bytes.NewReader(resolved.Body)
	}

	req, err := http.NewRequestWithContext(ctx, string(resolved.Method), resolved.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")
	if len(resolved.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &rawResponse{
		status: resp.StatusCode,
		header: resp.Header.Clone(),
		body:   body,
	}, nil
}

// isAuthFailure reports whether the response means the credential was
// rejected. 401 always does. 403 is ambiguous between permissions and
// expiry, so it only counts when the error body names an invalid or expired
// token; a plain permissions denial must not burn the call's single auth
// retry.
func isAuthFailure(raw *rawResponse) bool {
	switch raw.status {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		return tokenErrorBody(raw.body)
	}
	return false
}

// tokenErrorBody inspects a JSON error body for signs of a credential
// problem rather than a permissions one.
func tokenErrorBody(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	detail := strings.ToLower(strings.Join([]string{
		gjson.GetBytes(body, "error.status").String(),
		gjson.GetBytes(body, "error.message").String(),
		gjson.GetBytes(body, "error").String(),
		gjson.GetBytes(body, "error_description").String(),
	}, " "))
	if !strings.Contains(detail, "token") {
		return false
	}
	return strings.Contains(detail, "expired") || strings.Contains(detail, "invalid")
}

// retryAfterSeconds parses a Retry-After header given in seconds. HTTP-date
// values are ignored; the backoff policy covers those responses.
func retryAfterSeconds(header http.Header) int {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}
