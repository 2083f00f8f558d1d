package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding = EmbeddingConfig{
		Providers: map[string]ProviderConfig{
			"nebius": {
				APIKey:  "test-key",
				BaseURL: "https://api.example.com/v1/",
				Budget: BudgetConfig{
					DailyTokenLimit: 1000000,
					Action:          "invalid_action",
				},
			},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `embedding.providers.nebius.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	validActions := []string{"", "warn", "reject"}

	for _, action := range validActions {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding = EmbeddingConfig{
				Providers: map[string]ProviderConfig{
					"nebius": {APIKey: "test-key", Budget: BudgetConfig{Action: action}},
				},
			}

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"redis without addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "valkey-cluster" }, "database.driver"},
		{"invalidation policy", func(c *Config) { c.Cache.InvalidateOnPost = "similar" }, "cache.invalidate_on_post"},
		{"sink type", func(c *Config) { c.Feedback.Sink.Type = "kafka" }, "feedback.sink.type"},
		{"http sink without url", func(c *Config) { c.Feedback.Sink.Type = "http" }, "feedback.sink.url"},
		{"nats sink without url", func(c *Config) { c.Feedback.Sink.Type = "nats" }, "feedback.sink.url"},
		{"negative rate", func(c *Config) { c.Feedback.RatePerSecond = -1 }, "rate_per_second"},
		{"vectorizer provider", func(c *Config) {
			c.Embedding.Vectorizers = map[string]VectorizerConfig{"profiles": {Provider: "missing"}}
		}, "embedding.vectorizers.profiles.provider"},
		{"vectorizer dimensions", func(c *Config) {
			c.Embedding.Providers = map[string]ProviderConfig{"nebius": {}}
			c.Embedding.Vectorizers = map[string]VectorizerConfig{"profiles": {Provider: "nebius"}}
		}, "embedding.vectorizers.profiles.dimensions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestValidate_MemoryDriverNeedsNoAddrs(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}, Database: DatabaseConfig{Driver: "memory"}}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected Driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Database.OpTimeout() != 2*time.Second {
		t.Errorf("expected OpTimeout=2s, got %v", cfg.Database.OpTimeout())
	}
	if cfg.Cache.TTL() != 300*time.Second {
		t.Errorf("expected cache TTL=300s, got %v", cfg.Cache.TTL())
	}
	if cfg.Cache.Timeout() != 200*time.Millisecond {
		t.Errorf("expected cache timeout=200ms, got %v", cfg.Cache.Timeout())
	}
	if cfg.Cache.InvalidateOnPost != "all" {
		t.Errorf("expected InvalidateOnPost=all, got %q", cfg.Cache.InvalidateOnPost)
	}
	if cfg.Index.CandidateLimit != 20 {
		t.Errorf("expected CandidateLimit=20, got %d", cfg.Index.CandidateLimit)
	}
	if cfg.Feedback.QueueSize != 1024 || cfg.Feedback.Workers != 4 || cfg.Feedback.MaxAttempts != 5 {
		t.Errorf("unexpected feedback defaults: %+v", cfg.Feedback)
	}
	if cfg.Feedback.Sink.Type != "log" {
		t.Errorf("expected sink type log, got %q", cfg.Feedback.Sink.Type)
	}
	if cfg.Analytics.TopTags != 10 {
		t.Errorf("expected TopTags=10, got %d", cfg.Analytics.TopTags)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: "memory", ReadinessTimeout: 15},
		Index:    IndexConfig{HNSWM: 16, CandidateLimit: 50},
		Cache:    CacheConfig{TTLSec: 60, InvalidateOnPost: "owner"},
		Feedback: FeedbackConfig{Workers: 1, Sink: SinkConfig{Type: "nats"}},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("expected Driver=memory, got %q", cfg.Database.Driver)
	}
	if cfg.Index.HNSWM != 16 || cfg.Index.CandidateLimit != 50 {
		t.Errorf("unexpected index config: %+v", cfg.Index)
	}
	if cfg.Cache.TTLSec != 60 || cfg.Cache.InvalidateOnPost != "owner" {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
	if cfg.Feedback.Workers != 1 || cfg.Feedback.Sink.Type != "nats" {
		t.Errorf("unexpected feedback config: %+v", cfg.Feedback)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("MATCHLOOP_TEST_TOKEN", "s3cret")

	cfg, err := Parse([]byte(`
http:
  port: ${MATCHLOOP_TEST_PORT:-9090}
database:
  driver: memory
feedback:
  sink:
    type: http
    url: https://learning.example.com/events
    token: ${MATCHLOOP_TEST_TOKEN}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Feedback.Sink.Token != "s3cret" {
		t.Errorf("expected token from env, got %q", cfg.Feedback.Sink.Token)
	}
}

func TestVectorizer_DeterministicChoice(t *testing.T) {
	e := EmbeddingConfig{
		Providers: map[string]ProviderConfig{"a": {APIKey: "ka"}, "b": {APIKey: "kb"}},
		Vectorizers: map[string]VectorizerConfig{
			"zeta":  {Provider: "b", Model: "m2"},
			"alpha": {Provider: "a", Model: "m1"},
		},
	}

	vc, pc, ok := e.Vectorizer()
	if !ok || vc.Model != "m1" || pc.APIKey != "ka" {
		t.Errorf("Vectorizer() = %+v, %+v, %v", vc, pc, ok)
	}

	if _, _, ok := (EmbeddingConfig{}).Vectorizer(); ok {
		t.Error("empty config must report no vectorizer")
	}
}
