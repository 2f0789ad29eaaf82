package app

import (
	"strings"
	"testing"
)

func validOAuthConfig() *Config {
	cfg := &Config{}
	cfg.OAuth.ClientID = "client-1"
	cfg.OAuth.AuthURL = "https://idp.example.com/authorize"
	cfg.OAuth.TokenURL = "https://idp.example.com/token"
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validOAuthConfig()
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults() error = %v", err)
	}

	if cfg.LogFormat != LogFormatText {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, LogFormatText)
	}
	if cfg.Auth.Storage != TokenStorageTypeFile {
		t.Errorf("Auth.Storage = %q, want %q", cfg.Auth.Storage, TokenStorageTypeFile)
	}
	if cfg.Auth.Method != AuthenticationMethodOAuth {
		t.Errorf("Auth.Method = %q, want %q", cfg.Auth.Method, AuthenticationMethodOAuth)
	}
	if cfg.Auth.File == "" {
		t.Error("Auth.File not defaulted for file storage")
	}
	if cfg.HTTP.Retry.MaxAttempts == 0 {
		t.Error("retry policy not defaulted")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after defaults error = %v", err)
	}
}

func TestValidateOAuthRequiresProvider(t *testing.T) {
	cfg := validOAuthConfig()
	cfg.OAuth.ClientID = ""
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults() error = %v", err)
	}

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "client_id") {
		t.Errorf("Validate() error = %v, want client_id error", err)
	}
}

func TestValidateOAuthRejectsEnvStorage(t *testing.T) {
	cfg := validOAuthConfig()
	cfg.Auth.Storage = TokenStorageTypeEnv
	cfg.Auth.EnvKey = "RESTBIND_TOKEN"
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults() error = %v", err)
	}

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted oauth with read-only env storage")
	}
}

func TestValidateStaticWithEnvStorage(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.Method = AuthenticationMethodStatic
	cfg.Auth.Storage = TokenStorageTypeEnv
	cfg.Auth.EnvKey = "RESTBIND_TOKEN"
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults() error = %v", err)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidateEnvStorageRequiresKey(t *testing.T) {
	cfg := &Config{}
	cfg.Auth.Method = AuthenticationMethodStatic
	cfg.Auth.Storage = TokenStorageTypeEnv
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults() error = %v", err)
	}

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted env storage without env_key")
	}
}
