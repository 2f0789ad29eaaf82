package endpoint

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"
)

// ResolvedRequest is a fully substituted request: URL with all placeholders
// replaced and the query string attached, plus the serialized body. It is
// immutable once built and carries no credential; authentication is applied
// at send time.
type ResolvedRequest struct {
	Method Method
	URL    string
	Body   []byte
}

// Resolve substitutes invocation arguments into the URL template and
// serializes the request body. It is a pure function: no I/O, and on error
// no partially resolved request is returned.
//
// Path parameters resolve from the invocation value, then the declared
// default; a placeholder left without either fails with MissingPathArgError.
// Query parameters follow the same lookup but are omitted when absent.
func (c Config) Resolve(args Args) (*ResolvedRequest, error) {
	if err := c.checkUnknownArgs(args); err != nil {
		return nil, err
	}

	resolved := c.BaseURL
	for _, p := range c.PathParams {
		value, ok := args.Path[p.Name]
		if !ok {
			if !p.HasDefault {
				if strings.Contains(resolved, "{"+p.Name+"}") {
					return nil, &MissingPathArgError{Name: p.Name}
				}
				continue
			}
			value = p.Default
		}

		// Simple-style path encoding, the same scheme OpenAPI clients use
		// for path segments.
		encoded, err := runtime.StyleParamWithLocation("simple", false, p.Name, runtime.ParamLocationPath, value)
		if err != nil {
			return nil, fmt.Errorf("endpoint: encoding path parameter %q: %w", p.Name, err)
		}
		resolved = strings.ReplaceAll(resolved, "{"+p.Name+"}", encoded)
	}

	// Placeholders surviving substitution mean the configuration declares
	// fewer parameters than the template uses.
	if match := placeholderPattern.FindStringSubmatch(resolved); match != nil {
		return nil, &MissingPathArgError{Name: match[1]}
	}

	if query := c.resolveQuery(args); query != "" {
		separator := "?"
		if strings.Contains(resolved, "?") {
			separator = "&"
		}
		resolved += separator + query
	}

	var body []byte
	if args.Body != nil {
		var err error
		body, err = json.Marshal(args.Body)
		if err != nil {
			return nil, fmt.Errorf("endpoint: serializing request body: %w", err)
		}
	}

	return &ResolvedRequest{
		Method: c.Method,
		URL:    resolved,
		Body:   body,
	}, nil
}

// checkUnknownArgs rejects invocation arguments not declared by the
// configuration before any substitution happens.
func (c Config) checkUnknownArgs(args Args) error {
	declaredPath := make(map[string]struct{}, len(c.PathParams))
	for _, p := range c.PathParams {
		declaredPath[p.Name] = struct{}{}
	}
	for name := range args.Path {
		if _, ok := declaredPath[name]; !ok {
			return &UnknownArgError{Name: name, In: "path"}
		}
	}

	declaredQuery := make(map[string]struct{}, len(c.QueryParams))
	for _, p := range c.QueryParams {
		declaredQuery[p.Name] = struct{}{}
	}
	for name := range args.Query {
		if _, ok := declaredQuery[name]; !ok {
			return &UnknownArgError{Name: name, In: "query"}
		}
	}

	return nil
}

// resolveQuery builds the query string in declaration order. url.Values is
// deliberately not used for assembly because its Encode sorts keys.
func (c Config) resolveQuery(args Args) string {
	var pairs []string
	for _, p := range c.QueryParams {
		value, ok := args.Query[p.Name]
		if !ok {
			if !p.HasDefault {
				continue
			}
			value = p.Default
		}
		pairs = append(pairs, url.QueryEscape(p.Name)+"="+url.QueryEscape(value))
	}
	return strings.Join(pairs, "&")
}
