package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if !cfg.Titles.Reddit.Enabled || cfg.Titles.Timeout != 0 {
		t.Errorf("titles defaults = %+v", cfg.Titles)
	}
}

func TestFormatConfig(t *testing.T) {
	for _, name := range []string{"", "markdown", "Org"} {
		cfg := FormatConfig{Default: name}
		if err := cfg.Validate(); err != nil {
			t.Errorf("format %q should pass: %v", name, err)
		}
	}
	cfg := FormatConfig{Default: "textile"}
	if err := cfg.Validate(); err == nil {
		t.Error("unsupported format should fail validation")
	}
}

func TestTitlesConfig(t *testing.T) {
	cfg := TitlesConfig{Reddit: RedditConfig{Enabled: true}}
	if err := cfg.Validate(); err == nil {
		t.Error("reddit without api base should fail validation")
	}

	cfg = TitlesConfig{Timeout: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("negative timeout should fail validation")
	}

	cfg = TitlesConfig{UserAgent: "ua", MaxBodyBytes: 10, Timeout: time.Second,
		Reddit: RedditConfig{Enabled: true, APIBase: "http://r", Separator: " | "}}
	pc := cfg.ProviderConfig()
	if pc.UserAgent != "ua" || pc.MaxBodyBytes != 10 || pc.Timeout != time.Second ||
		!pc.RedditEnabled || pc.RedditAPIBase != "http://r" || pc.RedditSeparator != " | " {
		t.Errorf("provider config = %+v", pc)
	}
}
