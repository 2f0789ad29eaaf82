// Package descriptor translates machine-readable API descriptions into
// endpoint configurations.
//
// The descriptor format is an OpenAPI 3 document: each operation contributes
// its HTTP method, path template and declared path/query parameters
// (including schema defaults). The translation is purely structural: the
// resulting endpoint.Config values are indistinguishable from hand-authored
// ones.
package descriptor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/restbind/restbind/endpoint"
)

// Document is a loaded API description.
type Document struct {
	doc     *openapi3.T
	baseURL string
}

// Load reads and parses an OpenAPI document from a file (JSON or YAML).
func Load(path string) (*Document, error) {
	doc, err := openapi3.NewLoader().LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("descriptor: loading %s: %w", path, err)
	}
	return newDocument(doc)
}

// LoadFromData parses an OpenAPI document from memory.
func LoadFromData(data []byte) (*Document, error) {
	doc, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("descriptor: parsing document: %w", err)
	}
	return newDocument(doc)
}

func newDocument(doc *openapi3.T) (*Document, error) {
	d := &Document{doc: doc}
	if len(doc.Servers) > 0 {
		d.baseURL = doc.Servers[0].URL
	}
	return d, nil
}

// SetBaseURL overrides the document's server URL, e.g. to target a staging
// deployment of the same API.
func (d *Document) SetBaseURL(baseURL string) {
	d.baseURL = baseURL
}

// Operation summarizes one operation of the document.
type Operation struct {
	ID      string
	Method  endpoint.Method
	Path    string
	Summary string
}

// Operations lists the document's operations sorted by path then method.
func (d *Document) Operations() []Operation {
	var ops []Operation
	for path, item := range d.doc.Paths.Map() {
		for method, op := range item.Operations() {
			ops = append(ops, Operation{
				ID:      operationID(op, method, path),
				Method:  endpoint.Method(strings.ToUpper(method)),
				Path:    path,
				Summary: op.Summary,
			})
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return ops[i].Method < ops[j].Method
	})
	return ops
}

// Endpoint builds the endpoint configuration for the named operation.
func (d *Document) Endpoint(id string) (endpoint.Config, error) {
	if d.baseURL == "" {
		return endpoint.Config{}, fmt.Errorf("descriptor: document declares no server URL; call SetBaseURL")
	}

	for path, item := range d.doc.Paths.Map() {
		for method, op := range item.Operations() {
			if operationID(op, method, path) != id {
				continue
			}

			cfg := endpoint.Config{
				BaseURL: strings.TrimSuffix(d.baseURL, "/") + path,
				Method:  endpoint.Method(strings.ToUpper(method)),
			}
			// Path-item parameters apply to every operation under the path;
			// operation parameters follow and may repeat them.
			for _, ref := range append(append(openapi3.Parameters{}, item.Parameters...), op.Parameters...) {
				param := ref.Value
				if param == nil {
					continue
				}
				declared := endpoint.Param{Name: param.Name}
				if def := schemaDefault(param.Schema); def != "" {
					declared = endpoint.ParamDefault(param.Name, def)
				}
				switch param.In {
				case openapi3.ParameterInPath:
					if !containsParam(cfg.PathParams, param.Name) {
						cfg.PathParams = append(cfg.PathParams, declared)
					}
				case openapi3.ParameterInQuery:
					if !containsParam(cfg.QueryParams, param.Name) {
						cfg.QueryParams = append(cfg.QueryParams, declared)
					}
				}
			}

			if err := cfg.Validate(); err != nil {
				return endpoint.Config{}, fmt.Errorf("descriptor: operation %s: %w", id, err)
			}
			return cfg, nil
		}
	}

	return endpoint.Config{}, fmt.Errorf("descriptor: no operation %q in document", id)
}

// operationID returns the declared operationId, or a stable "METHOD path"
// fallback for documents that omit it.
func operationID(op *openapi3.Operation, method, path string) string {
	if op.OperationID != "" {
		return op.OperationID
	}
	return strings.ToUpper(method) + " " + path
}

// schemaDefault renders a schema's default value as a parameter string.
func schemaDefault(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Value == nil || ref.Value.Default == nil {
		return ""
	}
	return fmt.Sprintf("%v", ref.Value.Default)
}

func containsParam(params []endpoint.Param, name string) bool {
	for _, p := range params {
		if p.Name == name {
			return true
		}
	}
	return false
}
