package endpoint

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/tidwall/gjson"
)

// Method is an HTTP method supported for endpoint configurations.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

// valid reports whether m is one of the supported methods.
func (m Method) valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	}
	return false
}

// TransformFunc converts a parsed JSON response body into an
// application-specific value. The gjson.Result is a tagged variant (object,
// array, scalar or null for an empty body) that implementations can
// pattern-match on. Returning an error marks the call as failed; it is never
// swallowed or defaulted.
type TransformFunc func(body gjson.Result) (any, error)

// Param declares a single named path or query parameter, optionally with a
// static default used when an invocation supplies no value.
type Param struct {
	Name    string
	Default string

	// HasDefault distinguishes "defaults to empty string" from "no default".
	HasDefault bool
}

// ParamDefault declares a parameter with a static default value.
func ParamDefault(name, def string) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

// placeholderPattern matches {name} placeholders in URL templates.
var placeholderPattern = regexp.MustCompile(`\{([^/{}?#]+)\}`)

// Config declares one API operation: where requests go, how they are shaped,
// and how responses are converted. A Config is immutable after construction
// and safe to share across goroutines and invocations.
type Config struct {
	// BaseURL is the URL template, containing zero or more {name}
	// placeholders substituted from path parameters.
	BaseURL string

	// Method is the HTTP method used for every invocation.
	Method Method

	// PathParams declares the named placeholders of BaseURL, in order.
	PathParams []Param

	// QueryParams declares the accepted query-string parameters. Resolved
	// values are appended in declaration order.
	QueryParams []Param

	// Transform optionally converts the parsed response body into the value
	// returned to callers. When nil, callers receive the full parsed body.
	Transform TransformFunc
}

// Validate checks the structural well-formedness of the configuration:
// a known method, a non-empty URL template, uniquely named parameters, and
// a declared path parameter for every placeholder in the template.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("endpoint: base URL cannot be empty")
	}
	if !c.Method.valid() {
		return fmt.Errorf("endpoint: unsupported method %q", string(c.Method))
	}

	declared := make(map[string]struct{}, len(c.PathParams))
	for _, p := range c.PathParams {
		if p.Name == "" {
			return fmt.Errorf("endpoint: path parameter with empty name")
		}
		if _, dup := declared[p.Name]; dup {
			return fmt.Errorf("endpoint: duplicate path parameter %q", p.Name)
		}
		declared[p.Name] = struct{}{}
	}

	seen := make(map[string]struct{}, len(c.QueryParams))
	for _, p := range c.QueryParams {
		if p.Name == "" {
			return fmt.Errorf("endpoint: query parameter with empty name")
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("endpoint: duplicate query parameter %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	for _, match := range placeholderPattern.FindAllStringSubmatch(c.BaseURL, -1) {
		if _, ok := declared[match[1]]; !ok {
			return fmt.Errorf("endpoint: placeholder {%s} has no declared path parameter", match[1])
		}
	}

	return nil
}

// Clone returns a deep copy of the configuration. Generated callables close
// over a clone so later mutation of the caller's slices cannot leak into
// in-flight requests.
func (c Config) Clone() Config {
	clone := c
	if c.PathParams != nil {
		clone.PathParams = append([]Param(nil), c.PathParams...)
	}
	if c.QueryParams != nil {
		clone.QueryParams = append([]Param(nil), c.QueryParams...)
	}
	return clone
}
