package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort      = 8080
	DefaultEngineTimeout = 5 * time.Minute
	DefaultVerifyTimeout = 10 * time.Second
	DefaultWorkers       = 4
	DefaultQueueSize     = 64
	DefaultFlushInterval = 30 * time.Second
	DefaultSnapshotPath  = "data/astroserve.json"
)

// Config holds the configuration parsed from the `server:` section of
// config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all service settings.
type ServerConfig struct {
	// HTTPPort is the port the HTTP API listens on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// CORSOrigins is the browser origin allow-list. Empty allows none
	// (non-browser clients send no Origin header and are unaffected).
	CORSOrigins []string `yaml:"cors_origins"`

	// Auth configures how bearer credentials are verified.
	Auth AuthConfig `yaml:"auth"`

	// Engine configures the chart computation engine.
	Engine EngineConfig `yaml:"engine"`

	// Store configures document snapshot persistence.
	Store StoreConfig `yaml:"store"`

	// Dispatch configures the background worker pool.
	Dispatch DispatchConfig `yaml:"dispatch"`

	// Notify holds webhook delivery targets for computed-chart notifications.
	Notify NotifyConfig `yaml:"notify"`

	// Telemetry configures OpenTelemetry trace export.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AuthConfig controls bearer-token verification.
type AuthConfig struct {
	// Mode is one of: remote | static.
	// "remote" verifies tokens against VerifyURL; "static" uses a fixed
	// token table from the environment, for development only.
	Mode string `yaml:"mode"`

	// VerifyURL is the external identity service's verification endpoint.
	// Required when Mode == "remote".
	VerifyURL string `yaml:"verify_url"`

	// TokensEnv names the environment variable holding the static token
	// table as "token=subject" pairs separated by commas.
	// Used when Mode == "static".
	TokensEnv string `yaml:"tokens_env"`

	// Timeout bounds one verification call. Default: 10s.
	Timeout time.Duration `yaml:"timeout"`
}

// StaticTokens returns the token table resolved from the environment.
func (a AuthConfig) StaticTokens() map[string]string {
	out := make(map[string]string)
	if a.TokensEnv == "" {
		return out
	}
	for _, pair := range strings.Split(os.Getenv(a.TokensEnv), ",") {
		tok, sub, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && tok != "" && sub != "" {
			out[tok] = sub
		}
	}
	return out
}

// EngineConfig controls the chart computation engine.
type EngineConfig struct {
	// Mode is one of: grpc | local.
	// "grpc" calls the external engine at Address; "local" uses the
	// built-in minimal engine.
	Mode string `yaml:"mode"`

	// Address is the external engine's gRPC endpoint (host:port).
	// Required when Mode == "grpc".
	Address string `yaml:"address"`

	// Timeout bounds one computation. A computation that exceeds it is
	// recorded as failed. Default: 5m.
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig controls document snapshot persistence.
type StoreConfig struct {
	// Path is the snapshot file. Empty keeps the store purely in memory.
	// Default: data/astroserve.json.
	Path string `yaml:"path"`

	// FlushInterval is how often a changed store is snapshotted. Default: 30s.
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// DispatchConfig controls the background worker pool.
type DispatchConfig struct {
	// Workers is the number of concurrent computation workers (default 4).
	Workers int `yaml:"workers"`

	// QueueSize is the pending-task buffer depth (default 64). A full
	// queue drops new tasks with a logged warning; the caller has already
	// been acknowledged.
	QueueSize int `yaml:"queue_size"`
}

// NotifyConfig holds webhook delivery targets.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP/gRPC collector endpoint. Empty disables tracing.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Auth: AuthConfig{
				Mode:    "static",
				Timeout: DefaultVerifyTimeout,
			},
			Engine: EngineConfig{
				Mode:    "local",
				Timeout: DefaultEngineTimeout,
			},
			Store: StoreConfig{
				Path:          DefaultSnapshotPath,
				FlushInterval: DefaultFlushInterval,
			},
			Dispatch: DispatchConfig{
				Workers:   DefaultWorkers,
				QueueSize: DefaultQueueSize,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}

	switch s.Auth.Mode {
	case "static":
	case "remote":
		if s.Auth.VerifyURL == "" {
			return fmt.Errorf("server.auth.verify_url is required when mode is remote")
		}
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want remote|static", s.Auth.Mode)
	}

	switch s.Engine.Mode {
	case "local":
	case "grpc":
		if s.Engine.Address == "" {
			return fmt.Errorf("server.engine.address is required when mode is grpc")
		}
	default:
		return fmt.Errorf("server.engine.mode %q unknown: want grpc|local", s.Engine.Mode)
	}
	if s.Engine.Timeout <= 0 {
		return fmt.Errorf("server.engine.timeout must be positive")
	}

	if s.Dispatch.Workers < 1 {
		return fmt.Errorf("server.dispatch.workers must be at least 1")
	}
	if s.Dispatch.QueueSize < 1 {
		return fmt.Errorf("server.dispatch.queue_size must be at least 1")
	}
	if s.Store.FlushInterval < 0 {
		return fmt.Errorf("server.store.flush_interval must not be negative")
	}

	for i, wh := range s.Notify.Webhooks {
		switch wh.Type {
		case "slack", "http":
		default:
			return fmt.Errorf("server.notify.webhooks[%d].type %q unknown: want slack|http", i, wh.Type)
		}
	}
	return nil
}
