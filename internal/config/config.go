package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the matchloop API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Cache     CacheConfig     `yaml:"cache"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	OpTimeoutMs      int      `yaml:"op_timeout_ms"`
}

// OpTimeout bounds a single repository call.
func (d DatabaseConfig) OpTimeout() time.Duration {
	return time.Duration(d.OpTimeoutMs) * time.Millisecond
}

// IndexConfig holds profile index and candidate search settings.
type IndexConfig struct {
	HNSWM          int `yaml:"hnsw_m"` // 0 builds a FLAT index
	CandidateLimit int `yaml:"candidate_limit"`
}

// CacheConfig holds discovery result cache settings.
type CacheConfig struct {
	TTLSec           int    `yaml:"ttl_sec"`
	TimeoutMs        int    `yaml:"timeout_ms"`
	InvalidateOnPost string `yaml:"invalidate_on_post"` // all, owner (default: all)
	EmbeddingTTLHrs  int    `yaml:"embedding_ttl_hours"`
}

// TTL returns the entry lifetime.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

// Timeout returns the per-call store timeout.
func (c CacheConfig) Timeout() time.Duration { return time.Duration(c.TimeoutMs) * time.Millisecond }

// FeedbackConfig holds feedback dispatch settings.
type FeedbackConfig struct {
	QueueSize         int        `yaml:"queue_size"`
	Workers           int        `yaml:"workers"`
	MaxAttempts       int        `yaml:"max_attempts"`
	AttemptTimeoutSec int        `yaml:"attempt_timeout_sec"`
	RatePerSecond     float64    `yaml:"rate_per_second"` // 0 = unlimited
	Burst             int        `yaml:"burst"`
	DrainTimeoutSec   int        `yaml:"drain_timeout_sec"`
	Sink              SinkConfig `yaml:"sink"`
}

// SinkConfig selects where feedback events are delivered.
type SinkConfig struct {
	Type    string `yaml:"type"` // http, nats, log (default: log)
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Subject string `yaml:"subject"`
}

// AnalyticsConfig holds outcome analytics settings.
type AnalyticsConfig struct {
	TopTags int `yaml:"top_tags"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey  string       `yaml:"api_key"`
	BaseURL string       `yaml:"base_url"`
	Budget  BudgetConfig `yaml:"budget"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// Vectorizer returns the vectorizer to use and its provider. With several
// configured, the lexically first name wins so startup is deterministic.
func (e EmbeddingConfig) Vectorizer() (VectorizerConfig, ProviderConfig, bool) {
	name := ""
	for n := range e.Vectorizers {
		if name == "" || n < name {
			name = n
		}
	}
	if name == "" {
		return VectorizerConfig{}, ProviderConfig{}, false
	}
	vc := e.Vectorizers[name]
	return vc, e.Providers[vc.Provider], true
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.OpTimeoutMs <= 0 {
		c.Database.OpTimeoutMs = 2000
	}
	if c.Index.HNSWM < 0 {
		c.Index.HNSWM = 0
	}
	if c.Index.CandidateLimit <= 0 {
		c.Index.CandidateLimit = 20
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.TimeoutMs <= 0 {
		c.Cache.TimeoutMs = 200
	}
	if c.Cache.InvalidateOnPost == "" {
		c.Cache.InvalidateOnPost = "all"
	}
	if c.Cache.EmbeddingTTLHrs <= 0 {
		c.Cache.EmbeddingTTLHrs = 24 * 7
	}
	if c.Feedback.QueueSize <= 0 {
		c.Feedback.QueueSize = 1024
	}
	if c.Feedback.Workers <= 0 {
		c.Feedback.Workers = 4
	}
	if c.Feedback.MaxAttempts <= 0 {
		c.Feedback.MaxAttempts = 5
	}
	if c.Feedback.AttemptTimeoutSec <= 0 {
		c.Feedback.AttemptTimeoutSec = 5
	}
	if c.Feedback.DrainTimeoutSec <= 0 {
		c.Feedback.DrainTimeoutSec = 10
	}
	if c.Feedback.Sink.Type == "" {
		c.Feedback.Sink.Type = "log"
	}
	if c.Analytics.TopTags <= 0 {
		c.Analytics.TopTags = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	for name, p := range c.Embedding.Providers {
		switch p.Budget.Action {
		case "", "warn", "reject":
			// ok
		default:
			return fmt.Errorf(
				"embedding.providers.%s.budget.action must be \"warn\" or \"reject\", got %q",
				name, p.Budget.Action,
			)
		}
	}
	for name, v := range c.Embedding.Vectorizers {
		if _, ok := c.Embedding.Providers[v.Provider]; !ok {
			return fmt.Errorf("embedding.vectorizers.%s.provider %q is not configured", name, v.Provider)
		}
		if v.Dimensions <= 0 {
			return fmt.Errorf("embedding.vectorizers.%s.dimensions must be positive, got %d", name, v.Dimensions)
		}
	}
	switch c.Cache.InvalidateOnPost {
	case "all", "owner":
	default:
		return fmt.Errorf("cache.invalidate_on_post must be \"all\" or \"owner\", got %q", c.Cache.InvalidateOnPost)
	}
	if c.Feedback.RatePerSecond < 0 {
		return fmt.Errorf("feedback.rate_per_second must not be negative, got %v", c.Feedback.RatePerSecond)
	}
	switch c.Feedback.Sink.Type {
	case "http", "nats":
		if c.Feedback.Sink.URL == "" {
			return fmt.Errorf("feedback.sink.url is required for sink type %q", c.Feedback.Sink.Type)
		}
	case "log":
	default:
		return fmt.Errorf("feedback.sink.type must be \"http\", \"nats\" or \"log\", got %q", c.Feedback.Sink.Type)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
