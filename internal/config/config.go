package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where commands look for the config file.
const DefaultPath = "clarity.yaml"

// Config is the root configuration for a clarity deployment.
type Config struct {
	Version int     `yaml:"version"`
	Oracle  Oracle  `yaml:"oracle"`
	GitHub  GitHub  `yaml:"github"`
	Server  Server  `yaml:"server"`
	Archive Archive `yaml:"archive"`
}

// Oracle describes the text-generation provider and the pipeline's
// oracle budget.
type Oracle struct {
	Provider   string `yaml:"provider"`              // nvidia, openai, openrouter, anthropic
	Model      string `yaml:"model"`                 // model name at the provider
	APIKeyEnv  string `yaml:"api_key_env"`           // env var holding the API key
	TimeoutSec int    `yaml:"timeout_sec,omitempty"` // per-call timeout (0 = default 120)
	MaxRetries int    `yaml:"max_retries,omitempty"` // refinement rounds per stage (0 = default 2)
}

// GitHub configures the item source.
type GitHub struct {
	TokenEnv    string `yaml:"token_env,omitempty"`     // env var holding the token; empty = unauthenticated
	CacheTTLSec int    `yaml:"cache_ttl_sec,omitempty"` // API cache TTL (0 = default 300)
	TimeoutSec  int    `yaml:"timeout_sec,omitempty"`   // per-request timeout (0 = default 30)
}

// Server configures the HTTP surface.
type Server struct {
	Port int `yaml:"port,omitempty"` // 0 = default 8000
}

// Archive configures the optional run history. Disabled by default;
// when enabled, completed runs are written to a sqlite file and never
// read back during a run.
type Archive struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"` // 0 = default clarity.db
}

// OracleTimeout returns the effective per-call timeout in seconds.
func (o Oracle) OracleTimeout() int {
	if o.TimeoutSec > 0 {
		return o.TimeoutSec
	}
	return 120
}

// Retries returns the effective refinement ceiling.
func (o Oracle) Retries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 2
}

// CacheTTL returns the effective cache TTL in seconds.
func (g GitHub) CacheTTL() int {
	if g.CacheTTLSec > 0 {
		return g.CacheTTLSec
	}
	return 300
}

// RequestTimeout returns the effective per-request timeout in seconds.
func (g GitHub) RequestTimeout() int {
	if g.TimeoutSec > 0 {
		return g.TimeoutSec
	}
	return 30
}

// ListenPort returns the effective server port.
func (s Server) ListenPort() int {
	if s.Port > 0 {
		return s.Port
	}
	return 8000
}

// DBPath returns the effective archive path.
func (a Archive) DBPath() string {
	if a.Path != "" {
		return a.Path
	}
	return "clarity.db"
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a starter config using the nvidia provider.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Oracle: Oracle{
			Provider:  "nvidia",
			Model:     "qwen/qwen2.5-coder-32b-instruct",
			APIKeyEnv: "NVIDIA_API_KEY",
		},
		GitHub: GitHub{
			TokenEnv: "GITHUB_TOKEN",
		},
		Server: Server{
			Port: 8000,
		},
	}
}

func (c *Config) validate() error {
	switch c.Oracle.Provider {
	case "nvidia", "openai", "openrouter", "anthropic":
	case "":
		return fmt.Errorf("oracle: provider is required")
	default:
		return fmt.Errorf("oracle: unsupported provider %q", c.Oracle.Provider)
	}
	if c.Oracle.Model == "" {
		return fmt.Errorf("oracle: model is required")
	}
	if c.Oracle.APIKeyEnv == "" {
		return fmt.Errorf("oracle: api_key_env is required")
	}
	if c.Oracle.MaxRetries < 0 {
		return fmt.Errorf("oracle: max_retries must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: port %d out of range", c.Server.Port)
	}
	return nil
}
