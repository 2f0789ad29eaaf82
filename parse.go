package restbind

import (
	"bytes"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/restbind/restbind/endpoint"
)

// parseResult converts a successful response body into the call's return
// value. An empty body yields the zero gjson.Result (null variant); a
// non-empty body must be valid JSON. The configured transform is applied
// unless the invocation asked for the raw parsed value.
func parseResult(raw *rawResponse, cfg endpoint.Config, args endpoint.Args) (any, error) {
	var parsed gjson.Result

	if trimmed := bytes.TrimSpace(raw.body); len(trimmed) > 0 {
		if !gjson.ValidBytes(trimmed) {
			return nil, &MalformedResponseError{Status: raw.status, Body: raw.body}
		}
		parsed = gjson.ParseBytes(trimmed)
	}

	if cfg.Transform == nil || args.Raw {
		return parsed, nil
	}
	return applyTransform(cfg.Transform, parsed)
}

// applyTransform runs the caller-supplied transform, converting both
// returned errors and panics into TransformError. Transform failures are
// deterministic for a given body and therefore never retried.
func applyTransform(transform endpoint.TransformFunc, body gjson.Result) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = &TransformError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	value, transformErr := transform(body)
	if transformErr != nil {
		return nil, &TransformError{Err: transformErr}
	}
	return value, nil
}
