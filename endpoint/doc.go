// Package endpoint describes single REST API operations as declarative,
// immutable values and resolves per-call arguments against them.
//
// A Config pairs a base URL template (with {name} placeholders) and an HTTP
// method with the declared path and query parameters of one operation. Args
// carries the values for one invocation. Resolve substitutes arguments into
// the template, producing a fully-formed request before any network I/O
// happens:
//
//	cfg := endpoint.Config{
//	  BaseURL: "https://api.example.com/accounts/{accountId}/items",
//	  Method:  endpoint.MethodGet,
//	  PathParams: []endpoint.Param{endpoint.ParamDefault("accountId", "default123")},
//	  QueryParams: []endpoint.Param{endpoint.Param{Name: "pageToken"}},
//	}
//	req, err := cfg.Resolve(endpoint.Args{Path: map[string]string{"accountId": "acct42"}})
//
// Resolution is a pure function of Config and Args. A path parameter without
// a value or default is a hard failure; a query parameter without either is
// simply omitted from the URL.
package endpoint
