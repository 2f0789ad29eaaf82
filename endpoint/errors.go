package endpoint

import "fmt"

// MissingPathArgError reports a path placeholder that could not be resolved
// from either invocation arguments or configuration defaults. It is returned
// before any network I/O takes place.
type MissingPathArgError struct {
	Name string
}

func (e *MissingPathArgError) Error() string {
	return fmt.Sprintf("endpoint: no value or default for path parameter %q", e.Name)
}

// UnknownArgError reports an invocation argument whose name is not declared
// by the endpoint configuration. Unknown names are rejected eagerly rather
// than silently ignored.
type UnknownArgError struct {
	Name string
	In   string // "path" or "query"
}

func (e *UnknownArgError) Error() string {
	return fmt.Sprintf("endpoint: unknown %s parameter %q", e.In, e.Name)
}
