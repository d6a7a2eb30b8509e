package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultCompression  = "auto"
	DefaultFetchTimeout = 10 * time.Second
	DefaultFormat       = "text"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "json"
	DefaultAPIKeyHeader = "X-API-Key"
)

// Config is the top-level configuration.
type Config struct {
	Input  Input        `yaml:"input"`
	Output Output       `yaml:"output"`
	Log    Log          `yaml:"log"`
	Alerts AlertsConfig `yaml:"alerts"`
}

// Input describes where the report export is read from.
type Input struct {
	// Location is a local file path or an http:// / https:// URL.
	// The positional CLI argument overrides it.
	Location string `yaml:"location"`

	// Compression is one of: auto | zstd | none.
	// auto decodes zstd when Location ends in ".zst" or ".zstd".
	Compression string `yaml:"compression"`

	// Timeout bounds a remote fetch. Ignored for local files.
	Timeout time.Duration `yaml:"timeout"`

	Auth AuthConfig `yaml:"auth"`
	TLS  TLSConfig  `yaml:"tls"`
}

// IsRemote reports whether Location is an HTTP(S) URL.
func (in Input) IsRemote() bool {
	return strings.HasPrefix(in.Location, "http://") || strings.HasPrefix(in.Location, "https://")
}

// AuthConfig specifies how to authenticate a remote fetch.
type AuthConfig struct {
	// Mode is one of: apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// Header carries the API key when Mode == "apikey".
	Header string `yaml:"header"`
	// KeyEnv names the environment variable holding the API key.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv names the environment variable holding the bearer token.
	TokenEnv string `yaml:"token_env"`

	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds TLS dial options for remote inputs.
type TLSConfig struct {
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Output controls how results are emitted.
type Output struct {
	// Format is one of: text | json | prometheus.
	Format string `yaml:"format"`

	// Path is the file results are written to. Empty means stdout.
	Path string `yaml:"path"`
}

// Log configures the slog handler.
type Log struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// AlertsConfig holds threshold rules and webhook targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule fires for every station whose result matches Condition.
type AlertRule struct {
	Name string `yaml:"name"`

	// Condition is "field op value", e.g. "availability < 90".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info. Defaults to warning.
	Severity string `yaml:"severity"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv names the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// ConditionFields are the result fields a rule condition may reference.
var ConditionFields = []string{"availability", "available_time", "total_time", "reporting_units"}

// ConditionOps are the comparison operators a rule condition may use.
var ConditionOps = []string{">", ">=", "<", "<=", "=="}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Input: Input{
			Compression: DefaultCompression,
			Timeout:     DefaultFetchTimeout,
			Auth:        AuthConfig{Mode: "none", Header: DefaultAPIKeyHeader},
		},
		Output: Output{Format: DefaultFormat},
		Log:    Log{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

// Validate checks enums and rule syntax. It does not require Input.Location,
// which may still come from the command line.
func (c *Config) Validate() error {
	if err := validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func validate(cfg *Config) error {
	switch cfg.Input.Compression {
	case "auto", "zstd", "none":
	default:
		return fmt.Errorf("input.compression: unknown value %q", cfg.Input.Compression)
	}
	if cfg.Input.Timeout <= 0 {
		return fmt.Errorf("input.timeout must be positive")
	}
	switch cfg.Input.Auth.Mode {
	case "apikey":
		if cfg.Input.Auth.Header == "" {
			return fmt.Errorf("input.auth.header is required for apikey mode")
		}
	case "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("input.auth: unknown mode %q", cfg.Input.Auth.Mode)
	}

	switch cfg.Output.Format {
	case "text", "json", "prometheus":
	default:
		return fmt.Errorf("output.format: unknown value %q", cfg.Output.Format)
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown value %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: unknown value %q", cfg.Log.Format)
	}

	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if err := validateCondition(r.Condition); err != nil {
			return fmt.Errorf("alerts.rules[%d] %q: %w", i, r.Name, err)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	for i, wh := range cfg.Alerts.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, wh.Type)
		}
		if wh.URLEnv == "" {
			return fmt.Errorf("alerts.webhooks[%d]: url_env is required", i)
		}
	}
	return nil
}

func validateCondition(cond string) error {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return fmt.Errorf("condition %q: want \"field op value\"", cond)
	}
	if !contains(ConditionFields, parts[0]) {
		return fmt.Errorf("condition %q: unknown field %q", cond, parts[0])
	}
	if !contains(ConditionOps, parts[1]) {
		return fmt.Errorf("condition %q: unknown operator %q", cond, parts[1])
	}
	if _, err := strconv.ParseFloat(parts[2], 64); err != nil {
		return fmt.Errorf("condition %q: value %q is not a number", cond, parts[2])
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
