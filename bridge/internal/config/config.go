package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPollInterval  = 10 * time.Second
	DefaultFetchTimeout  = 5 * time.Second
	DefaultPushTimeout   = 15 * time.Second
	DefaultRetryAttempts = 3
	DefaultBackoffBase   = 2 * time.Second
	DefaultMaxBatchDocs  = 500
	DefaultMaxConcurrent = 4
	DefaultOpsAddr       = ":8080"
	DefaultWSInterval    = 5 * time.Second
)

// Config is the top-level configuration for the bridge binary.
// Fields map 1:1 to the "bridge" section of config.example.yaml.
type Config struct {
	Bridge BridgeConfig `yaml:"bridge"`
}

// BridgeConfig holds all bridge-side settings.
type BridgeConfig struct {
	// PollInterval controls how often every source is polled.
	PollInterval time.Duration `yaml:"poll_interval"`

	// FetchTimeout bounds each outbound source fetch.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// MaxBatchDocs caps the number of documents accumulated before a batch
	// is flushed mid-cycle.
	MaxBatchDocs int `yaml:"max_batch_docs"`

	// MaxConcurrentPolls bounds how many sources are fetched at once within
	// one polling cycle.
	MaxConcurrentPolls int `yaml:"max_concurrent_polls"`

	// Sources is the list of metric endpoints to replicate. The list is
	// immutable for the process lifetime.
	Sources []Source `yaml:"sources"`

	// Sink is the document store the bridge pushes to.
	Sink SinkConfig `yaml:"sink"`

	// Retry is the push retry policy.
	Retry RetryConfig `yaml:"retry"`

	// Ops configures the operational HTTP listener (status API, own
	// metrics, websocket stream).
	Ops OpsConfig `yaml:"ops"`
}

// Source describes one monitored metric endpoint.
type Source struct {
	// ID is a unique identifier for this source. When empty it is derived
	// from the endpoint's host:port.
	ID string `yaml:"id"`

	// Type selects the pull protocol: exposition (raw /metrics text) or
	// promapi (Prometheus instant-query API).
	Type string `yaml:"type"`

	// URL is the full endpoint URL: the exposition page for "exposition",
	// the Prometheus server root for "promapi".
	URL string `yaml:"url"`

	// Metrics lists the series names a promapi source queries. When empty
	// the names are discovered from the server once at first poll.
	Metrics []string `yaml:"metrics"`

	// Auth configures how the bridge authenticates to this source.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// SinkConfig describes the document store target.
type SinkConfig struct {
	// URL is the root of the store's HTTP API.
	URL string `yaml:"url"`

	// Index is the index replicated documents are written to.
	Index string `yaml:"index"`

	// Timeout bounds each push call.
	Timeout time.Duration `yaml:"timeout"`

	// Auth configures how the bridge authenticates to the store.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// RetryConfig is the sink push retry policy.
type RetryConfig struct {
	// Attempts is the maximum number of push attempts per batch.
	Attempts int `yaml:"attempts"`

	// BackoffBase scales the linear wait between attempts: the n-th retry
	// waits n times this value.
	BackoffBase time.Duration `yaml:"backoff_base"`
}

// OpsConfig configures the bridge's own HTTP listener.
type OpsConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`

	// APIKeyEnv names the environment variable holding the key required on
	// /api/v1 requests. Empty disables authentication.
	APIKeyEnv string `yaml:"api_key_env"`

	// WSInterval controls how often the websocket hub broadcasts the
	// sources snapshot.
	WSInterval time.Duration `yaml:"ws_interval"`
}

// APIKey returns the ops API key resolved from the environment.
func (o OpsConfig) APIKey() string {
	if o.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(o.APIKeyEnv)
}

// AuthConfig specifies the authentication mode for an endpoint.
type AuthConfig struct {
	// Mode is one of: apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// API key fields, used when Mode == "apikey".
	// Header is the HTTP header name to send the key in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// Bearer token fields, used when Mode == "bearer".
	// TokenEnv is the name of the environment variable that holds the token.
	TokenEnv string `yaml:"token_env"`

	// Basic auth fields, used when Mode == "basic".
	// Username is the literal username (safe to store in config).
	Username string `yaml:"username"`
	// PasswordEnv is the name of the environment variable that holds the password.
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
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

// TLSConfig holds per-endpoint TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults and missing
// source ids are derived from the endpoint host:port.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := normalize(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Bridge: BridgeConfig{
			PollInterval:       DefaultPollInterval,
			FetchTimeout:       DefaultFetchTimeout,
			MaxBatchDocs:       DefaultMaxBatchDocs,
			MaxConcurrentPolls: DefaultMaxConcurrent,
			Sink: SinkConfig{
				Timeout: DefaultPushTimeout,
			},
			Retry: RetryConfig{
				Attempts:    DefaultRetryAttempts,
				BackoffBase: DefaultBackoffBase,
			},
			Ops: OpsConfig{
				Addr:       DefaultOpsAddr,
				WSInterval: DefaultWSInterval,
			},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	b := &cfg.Bridge
	if b.PollInterval <= 0 {
		return fmt.Errorf("bridge.poll_interval must be positive")
	}
	if b.FetchTimeout <= 0 {
		return fmt.Errorf("bridge.fetch_timeout must be positive")
	}
	if b.MaxBatchDocs <= 0 {
		return fmt.Errorf("bridge.max_batch_docs must be positive")
	}
	if b.MaxConcurrentPolls <= 0 {
		return fmt.Errorf("bridge.max_concurrent_polls must be positive")
	}
	if len(b.Sources) == 0 {
		return fmt.Errorf("bridge.sources must list at least one source")
	}
	if b.Sink.URL == "" {
		return fmt.Errorf("bridge.sink.url is required")
	}
	if b.Sink.Index == "" {
		return fmt.Errorf("bridge.sink.index is required")
	}
	if b.Sink.Timeout <= 0 {
		return fmt.Errorf("bridge.sink.timeout must be positive")
	}
	if b.Retry.Attempts < 1 {
		return fmt.Errorf("bridge.retry.attempts must be at least 1")
	}
	if b.Retry.BackoffBase < 0 {
		return fmt.Errorf("bridge.retry.backoff_base must not be negative")
	}
	if err := validAuthMode(b.Sink.Auth.Mode); err != nil {
		return fmt.Errorf("bridge.sink: %w", err)
	}
	for i, src := range b.Sources {
		if src.URL == "" {
			return fmt.Errorf("sources[%d] %q: url is required", i, src.ID)
		}
		switch src.Type {
		case "exposition", "promapi", "":
		default:
			return fmt.Errorf("sources[%d] %q: unknown type %q", i, src.ID, src.Type)
		}
		if err := validAuthMode(src.Auth.Mode); err != nil {
			return fmt.Errorf("sources[%d] %q: %w", i, src.ID, err)
		}
	}
	return nil
}

func validAuthMode(mode string) error {
	switch mode {
	case "apikey", "bearer", "basic", "none", "":
		return nil
	default:
		return fmt.Errorf("unknown auth mode %q", mode)
	}
}

// normalize fills derived fields: the default source type and ids taken from
// the endpoint host:port. Ids must be unique after derivation.
func normalize(cfg *Config) error {
	seen := make(map[string]int)
	for i := range cfg.Bridge.Sources {
		src := &cfg.Bridge.Sources[i]
		if src.Type == "" {
			src.Type = "exposition"
		}
		if src.ID == "" {
			id, err := deriveID(src.URL)
			if err != nil {
				return fmt.Errorf("sources[%d]: derive id: %w", i, err)
			}
			src.ID = id
		}
		if prev, dup := seen[src.ID]; dup {
			return fmt.Errorf("sources[%d]: id %q already used by sources[%d]", i, src.ID, prev)
		}
		seen[src.ID] = i
	}
	return nil
}

// deriveID returns the host:port of rawURL (host alone when no port is set).
func deriveID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return u.Host, nil
}
