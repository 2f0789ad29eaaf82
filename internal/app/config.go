package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/restbind/restbind"
	"github.com/restbind/restbind/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// TokenStorageType represents the supported credential storage backends.
type TokenStorageType string

const (
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeEnv     TokenStorageType = "env"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
)

// AuthenticationMethod represents how the stored credential becomes an
// access token.
type AuthenticationMethod string

const (
	// AuthenticationMethodOAuth treats the stored credential as a refresh
	// token and refreshes access tokens automatically.
	AuthenticationMethodOAuth AuthenticationMethod = "oauth"

	// AuthenticationMethodStatic treats the stored credential as a
	// ready-to-use access token managed outside this process.
	AuthenticationMethodStatic AuthenticationMethod = "static"
)

// Default configuration values
const (
	DefaultConfigLogFormat   = LogFormatText
	DefaultConfigAuthStorage = TokenStorageTypeFile
	DefaultConfigAuthMethod  = AuthenticationMethodOAuth
	DefaultConfigHTTPTimeout = 30 * time.Second

	// DefaultConfigRedirectURL is the out-of-band redirect: the provider
	// displays the authorization code for manual copy instead of calling
	// back into a local server.
	DefaultConfigRedirectURL = "urn:ietf:wg:oauth:2.0:oob"
)

// AuthConfig describes where the OAuth credential is persisted.
type AuthConfig struct {
	Storage TokenStorageType `json:"storage" validate:"required,oneof=file env keyring"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	File        string `json:"file,omitempty"`         // file storage: path to credential file
	EnvKey      string `json:"env_key,omitempty"`      // env storage: environment variable name
	KeyringUser string `json:"keyring_user,omitempty"` // keyring storage: user identifier

	// Method selects how the stored credential is turned into access tokens.
	Method AuthenticationMethod `json:"method" validate:"required,oneof=oauth static"`
}

// NewStore creates a credential store from the authentication configuration.
func (a *AuthConfig) NewStore() (tokenstore.Store, error) {
	switch a.Storage {
	case TokenStorageTypeFile:
		return tokenstore.NewFileStore(a.File)
	case TokenStorageTypeEnv:
		return tokenstore.NewEnvStore(a.EnvKey)
	case TokenStorageTypeKeyring:
		return tokenstore.NewKeyringStore("restbind-credential", a.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", a.Storage)
	}
}

// ScopesConfig holds the scope selection requested during authorization.
type ScopesConfig struct {
	Selected []string `json:"selected"`
}

// OAuthConfig identifies the application to the identity provider.
type OAuthConfig struct {
	ClientID     string       `json:"client_id,omitempty"`
	ClientSecret string       `json:"client_secret,omitempty"`
	AuthURL      string       `json:"auth_url,omitempty" validate:"omitempty,url"`
	TokenURL     string       `json:"token_url,omitempty" validate:"omitempty,url"`
	RedirectURL  string       `json:"redirect_url,omitempty"`
	Scopes       ScopesConfig `json:"scopes"`
}

// RetryConfig bounds transient-failure retries of API calls.
type RetryConfig struct {
	InitialInterval     time.Duration `json:"initial_interval"`
	MaxInterval         time.Duration `json:"max_interval"`
	Multiplier          float64       `json:"multiplier"`
	RandomizationFactor float64       `json:"randomization_factor"`
	MaxAttempts         uint          `json:"max_attempts"`
}

// HTTPConfig holds HTTP client behavior.
type HTTPConfig struct {
	Timeout time.Duration `json:"timeout"`
	Retry   RetryConfig   `json:"retry"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level `json:"log_level"`
	LogFormat LogFormat  `json:"log_format" validate:"oneof=text json"`

	// Verbose enables the request trace artifact and debug logging.
	Verbose bool `json:"verbose"`

	// TraceFile is where the most recent resolved request is persisted when
	// Verbose is set. Defaults to the user cache directory.
	TraceFile string `json:"trace_file,omitempty"`

	// Descriptor is the path of the OpenAPI document describing the target
	// API's operations.
	Descriptor string `json:"descriptor,omitempty"`

	// BaseURL optionally overrides the descriptor's server URL.
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`

	Auth  AuthConfig  `json:"auth"`
	OAuth OAuthConfig `json:"oauth"`
	HTTP  HTTPConfig  `json:"http"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}
	if c.Auth.Method == "" {
		c.Auth.Method = DefaultConfigAuthMethod
	}
	if c.OAuth.RedirectURL == "" {
		c.OAuth.RedirectURL = DefaultConfigRedirectURL
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = DefaultConfigHTTPTimeout
	}

	policy := restbind.DefaultRetryPolicy
	if c.HTTP.Retry.InitialInterval == 0 {
		c.HTTP.Retry.InitialInterval = policy.InitialInterval
	}
	if c.HTTP.Retry.MaxInterval == 0 {
		c.HTTP.Retry.MaxInterval = policy.MaxInterval
	}
	if c.HTTP.Retry.Multiplier == 0 {
		c.HTTP.Retry.Multiplier = policy.Multiplier
	}
	if c.HTTP.Retry.RandomizationFactor == 0 {
		c.HTTP.Retry.RandomizationFactor = policy.RandomizationFactor
	}
	if c.HTTP.Retry.MaxAttempts == 0 {
		c.HTTP.Retry.MaxAttempts = policy.MaxAttempts
	}

	if c.Verbose && c.TraceFile == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("trace_file required (auto-detect failed: %w)", err)
		}
		c.TraceFile = filepath.Join(cacheDir, "restbind", "last_request.json")
	}

	// Dynamic defaults based on storage type
	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("auth.file required (auto-detect failed: %w)", err)
			}
			c.Auth.File = filepath.Join(configDir, "restbind", "credential")
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Auth.KeyringUser = currentUser.Username
		}
	case TokenStorageTypeEnv:
		// env_key must be explicitly configured (no sensible default)
	}

	return nil
}

// Validate validates the configuration using struct tags and cross-field
// rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Auth.Method == AuthenticationMethodOAuth {
		// Refresh-token rotation needs writable storage (env is read-only)
		if c.Auth.Storage == TokenStorageTypeEnv {
			return errors.New("oauth authentication requires writable storage, env is read-only")
		}
		if c.OAuth.ClientID == "" {
			return errors.New("oauth.client_id required for oauth authentication")
		}
		if c.OAuth.AuthURL == "" || c.OAuth.TokenURL == "" {
			return errors.New("oauth.auth_url and oauth.token_url required for oauth authentication")
		}
	}

	switch c.Auth.Storage {
	case TokenStorageTypeFile:
		if c.Auth.File == "" {
			return errors.New("file path required for file storage")
		}
	case TokenStorageTypeEnv:
		if c.Auth.EnvKey == "" {
			return errors.New("env_key required for env storage")
		}
	case TokenStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	return nil
}
