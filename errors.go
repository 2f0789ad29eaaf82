package restbind

import "fmt"

// StatusError reports a non-retryable client error response (4xx other than
// credential rejection). The raw body is carried for programmatic
// inspection.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("restbind: request rejected with status %d", e.Status)
}

// AuthRetryError reports that the upstream rejected the credential, a
// refreshed credential was obtained and the request resent, and the resend
// was rejected too. The pipeline never retries authentication a second time
// within one call.
type AuthRetryError struct {
	Status int
	Body   []byte
}

func (e *AuthRetryError) Error() string {
	return fmt.Sprintf("restbind: authentication failed with status %d after one credential refresh", e.Status)
}

// RetriesExhaustedError reports that rate-limit or server-error responses
// persisted through every attempt the retry policy allows. Status and Body
// are from the final attempt.
type RetriesExhaustedError struct {
	Attempts int
	Status   int
	Body     []byte
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("restbind: transient failures exhausted %d attempts, last status %d", e.Attempts, e.Status)
}

// MalformedResponseError reports a successful (2xx) response whose body is
// not valid JSON. It is a data-integrity fault and never retried.
type MalformedResponseError struct {
	Status int
	Body   []byte
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("restbind: status %d response body is not valid JSON", e.Status)
}

// TransformError reports a failure inside the caller-supplied transform when
// applied to a well-formed response body.
type TransformError struct {
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("restbind: response transform failed: %v", e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// transientStatusError marks a response eligible for backoff-and-retry
// (429 or 5xx). It stays internal: callers only ever see it folded into
// RetriesExhaustedError.
type transientStatusError struct {
	Status int
	Body   []byte
}

func (e *transientStatusError) Error() string {
	return fmt.Sprintf("restbind: transient status %d", e.Status)
}
