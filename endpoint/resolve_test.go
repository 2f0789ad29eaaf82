package endpoint

import (
	"errors"
	"testing"
)

func TestResolvePathParams(t *testing.T) {
	cfg := Config{
		BaseURL:    "https://api.example.com/accounts/{accountId}/items",
		Method:     MethodGet,
		PathParams: []Param{ParamDefault("accountId", "default123")},
	}

	tests := []struct {
		name string
		args Args
		want string
	}{
		{
			name: "default applies when no value supplied",
			args: Args{},
			want: "https://api.example.com/accounts/default123/items",
		},
		{
			name: "invocation value overrides default",
			args: Args{Path: map[string]string{"accountId": "acct42"}},
			want: "https://api.example.com/accounts/acct42/items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := cfg.Resolve(tt.args)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if req.URL != tt.want {
				t.Errorf("URL = %q, want %q", req.URL, tt.want)
			}
		})
	}
}

func TestResolveMissingPathArg(t *testing.T) {
	cfg := Config{
		BaseURL:    "https://api.example.com/accounts/{accountId}/items",
		Method:     MethodGet,
		PathParams: []Param{{Name: "accountId"}},
	}

	_, err := cfg.Resolve(Args{})
	var missing *MissingPathArgError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingPathArgError, got %v", err)
	}
	if missing.Name != "accountId" {
		t.Errorf("Name = %q, want %q", missing.Name, "accountId")
	}
}

func TestResolveUndeclaredPlaceholder(t *testing.T) {
	cfg := Config{
		BaseURL: "https://api.example.com/v1/{itemId}",
		Method:  MethodGet,
	}

	_, err := cfg.Resolve(Args{})
	var missing *MissingPathArgError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingPathArgError for undeclared placeholder, got %v", err)
	}
}

func TestResolveQueryString(t *testing.T) {
	tests := []struct {
		name   string
		params []Param
		args   Args
		want   string
	}{
		{
			name:   "values are percent-encoded",
			params: []Param{{Name: "shortUrl"}},
			args:   Args{Query: map[string]string{"shortUrl": "http://goo.gl/abc"}},
			want:   "https://api.example.com/url?shortUrl=http%3A%2F%2Fgoo.gl%2Fabc",
		},
		{
			name:   "absent optional parameter is omitted",
			params: []Param{{Name: "shortUrl"}, {Name: "projection"}},
			args:   Args{Query: map[string]string{"shortUrl": "abc"}},
			want:   "https://api.example.com/url?shortUrl=abc",
		},
		{
			name:   "declaration order is preserved",
			params: []Param{{Name: "zebra"}, {Name: "apple"}},
			args:   Args{Query: map[string]string{"zebra": "1", "apple": "2"}},
			want:   "https://api.example.com/url?zebra=1&apple=2",
		},
		{
			name:   "defaults fill absent values",
			params: []Param{ParamDefault("projection", "FULL")},
			args:   Args{},
			want:   "https://api.example.com/url?projection=FULL",
		},
		{
			name:   "no parameters yields bare URL",
			params: []Param{{Name: "shortUrl"}},
			args:   Args{},
			want:   "https://api.example.com/url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				BaseURL:     "https://api.example.com/url",
				Method:      MethodGet,
				QueryParams: tt.params,
			}
			req, err := cfg.Resolve(tt.args)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if req.URL != tt.want {
				t.Errorf("URL = %q, want %q", req.URL, tt.want)
			}
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	cfg := Config{
		BaseURL:     "https://api.example.com/accounts/{accountId}/items",
		Method:      MethodPost,
		PathParams:  []Param{{Name: "accountId"}},
		QueryParams: []Param{{Name: "fields"}, {Name: "pageToken"}},
	}
	args := Args{
		Path:  map[string]string{"accountId": "a1"},
		Query: map[string]string{"fields": "id", "pageToken": "t0"},
		Body:  map[string]any{"longUrl": "http://example.com"},
	}

	first, err := cfg.Resolve(args)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	for range 10 {
		next, err := cfg.Resolve(args)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if next.URL != first.URL {
			t.Fatalf("URL changed between identical invocations: %q vs %q", next.URL, first.URL)
		}
		if string(next.Body) != string(first.Body) {
			t.Fatalf("body changed between identical invocations: %s vs %s", next.Body, first.Body)
		}
	}
}

func TestResolveUnknownArgs(t *testing.T) {
	cfg := Config{
		BaseURL:     "https://api.example.com/url",
		Method:      MethodGet,
		QueryParams: []Param{{Name: "shortUrl"}},
	}

	_, err := cfg.Resolve(Args{Query: map[string]string{"longUrl": "x"}})
	var unknown *UnknownArgError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownArgError, got %v", err)
	}
	if unknown.Name != "longUrl" || unknown.In != "query" {
		t.Errorf("unexpected error detail: %+v", unknown)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "well-formed",
			cfg: Config{
				BaseURL:    "https://api.example.com/{id}",
				Method:     MethodGet,
				PathParams: []Param{{Name: "id"}},
			},
		},
		{
			name:    "empty base URL",
			cfg:     Config{Method: MethodGet},
			wantErr: true,
		},
		{
			name:    "unsupported method",
			cfg:     Config{BaseURL: "https://api.example.com", Method: Method("TRACE")},
			wantErr: true,
		},
		{
			name: "undeclared placeholder",
			cfg: Config{
				BaseURL: "https://api.example.com/{id}",
				Method:  MethodGet,
			},
			wantErr: true,
		},
		{
			name: "duplicate query parameter",
			cfg: Config{
				BaseURL:     "https://api.example.com",
				Method:      MethodGet,
				QueryParams: []Param{{Name: "q"}, {Name: "q"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
