package endpoint

// Args carries the dynamic values of one invocation of an endpoint. An Args
// value is owned by the call that supplies it and is never retained after
// the call completes.
type Args struct {
	// Path maps declared path parameter names to runtime values. Every key
	// must be declared in the configuration's PathParams; unknown names are
	// rejected during resolution.
	Path map[string]string

	// Query maps declared query parameter names to runtime values, with the
	// same unknown-name rule as Path.
	Query map[string]string

	// Body is an optional JSON-serializable request payload.
	Body any

	// Raw skips the configured transform for this invocation, returning the
	// full parsed response body instead.
	Raw bool
}
