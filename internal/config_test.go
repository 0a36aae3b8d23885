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
	if cfg.App.HTTP.Address() != ":8080" {
		t.Errorf("address = %q, want :8080", cfg.App.HTTP.Address())
	}
}

func TestCanonConfig_EmptyClassifierDefaultsHeuristic(t *testing.T) {
	cfg := CanonConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty classifier should default: %v", err)
	}
	if cfg.Classifier != ClassifierHeuristic {
		t.Errorf("classifier = %q, want %q", cfg.Classifier, ClassifierHeuristic)
	}
}

func TestCanonConfig_OpenAIRequiresKey(t *testing.T) {
	cfg := CanonConfig{Classifier: ClassifierOpenAI}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("openai classifier without api key should fail")
	}
	if !strings.Contains(err.Error(), "api_key is empty") {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.OpenAI.APIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("openai classifier with key should pass: %v", err)
	}
}

func TestCanonConfig_RejectsBadValues(t *testing.T) {
	cases := map[string]CanonConfig{
		"unknown classifier": {Classifier: "oracle"},
		"threshold above 1":  {MatchThreshold: 1.5},
		"negative threshold": {MatchThreshold: -0.1},
		"negative timeout":   {EvaluationTimeout: -time.Second},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBundlesConfig_WatchNeedsPath(t *testing.T) {
	cfg := BundlesConfig{Watch: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("watch without path should fail")
	}
	cfg = BundlesConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled bundles should pass: %v", err)
	}
}

func TestFullConfig_SQLitePathRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SQLite.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty sqlite path should fail")
	}
}
