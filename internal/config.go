package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Canon classifiers.
const (
	ClassifierHeuristic = "heuristic"
	ClassifierOpenAI    = "openai"
)

// Config represents the application configuration. Every field tagged with
// env can be overridden by that environment variable.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Canon   CanonConfig       `yaml:"canon"`
	Bundles BundlesConfig     `yaml:"bundles"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Canon.Validate(); err != nil {
		return err
	}
	if err := c.Bundles.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" env:"SAGA_LOG_LEVEL"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" env:"SAGA_HTTP_PORT"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"SAGA_SQLITE_PATH"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" env:"SAGA_AUTH_MODE"`
	Token string `yaml:"token" env:"SAGA_AUTH_TOKEN"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// CanonConfig configures canon evaluation.
//
// Classifier selects how passages are checked:
//   - "heuristic" (default): offline term matching against invalid examples.
//   - "openai": an OpenAI-compatible chat model; OpenAI.APIKey must be set.
type CanonConfig struct {
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout" env:"SAGA_CANON_EVALUATION_TIMEOUT"`
	Classifier        string        `yaml:"classifier" env:"SAGA_CANON_CLASSIFIER"`
	// MatchThreshold is the share of an example's terms the heuristic
	// requires; 0 selects the default.
	MatchThreshold float64      `yaml:"match_threshold" env:"SAGA_CANON_MATCH_THRESHOLD"`
	OpenAI         OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig holds the OpenAI classifier settings.
type OpenAIConfig struct {
	Model   string `yaml:"model" env:"SAGA_OPENAI_MODEL"`
	APIKey  string `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL string `yaml:"base_url" env:"OPENAI_BASE_URL"`
}

// Validate validates the canon configuration.
func (c *CanonConfig) Validate() error {
	if c.Classifier == "" {
		c.Classifier = ClassifierHeuristic
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.EvaluationTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Classifier, validation.In(ClassifierHeuristic, ClassifierOpenAI)),
		validation.Field(&c.MatchThreshold, validation.Min(0.0), validation.Max(1.0)),
	); err != nil {
		return err
	}
	if c.Classifier == ClassifierOpenAI && c.OpenAI.APIKey == "" {
		return fmt.Errorf("canon: classifier is %q but openai.api_key is empty", ClassifierOpenAI)
	}
	return nil
}

// BundlesConfig holds the bundle directory settings. An empty Path disables
// bundle sync.
type BundlesConfig struct {
	Path  string `yaml:"path" env:"SAGA_BUNDLES_PATH"`
	Watch bool   `yaml:"watch" env:"SAGA_BUNDLES_WATCH"`
}

// Validate validates the bundles configuration.
func (c *BundlesConfig) Validate() error {
	if c.Watch && c.Path == "" {
		return fmt.Errorf("bundles: watch is enabled but path is empty")
	}
	return nil
}

// EventsConfig holds SSE settings.
type EventsConfig struct {
	// ContextThrottle is the minimum gap between two context.invalidated
	// events for one series.
	ContextThrottle time.Duration `yaml:"context_throttle" env:"SAGA_EVENTS_CONTEXT_THROTTLE"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ContextThrottle, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./saga.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Canon: CanonConfig{
			EvaluationTimeout: 10 * time.Second,
			Classifier:        ClassifierHeuristic,
		},
		Bundles: BundlesConfig{
			Path:  "./bundles",
			Watch: true,
		},
		Events: EventsConfig{
			ContextThrottle: 2 * time.Second,
		},
	}
}
