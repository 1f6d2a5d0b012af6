package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the retriever API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Provider   ProviderConfig   `yaml:"provider"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Cache      CacheConfig      `yaml:"cache"`
	Search     SearchConfig     `yaml:"search"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
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

// DatabaseConfig holds cache store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ProviderConfig holds model provider settings.
type ProviderConfig struct {
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url"`
	EmbeddingModel  string  `yaml:"embedding_model"`
	CompletionModel string  `yaml:"completion_model"`
	Temperature     float32 `yaml:"temperature"`
}

// ResilienceConfig holds retry and circuit breaker thresholds.
type ResilienceConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	InitialDelayMs   int `yaml:"initial_delay_ms"`
	MaxDelayMs       int `yaml:"max_delay_ms"`
	FailureThreshold int `yaml:"failure_threshold"`
	OpenTimeoutSec   int `yaml:"open_timeout_sec"`
	SuccessesToClose int `yaml:"successes_to_close"`
}

// CacheConfig holds tiered cache sizing.
type CacheConfig struct {
	L1Capacity int    `yaml:"l1_capacity"`
	L1TTLSec   int    `yaml:"l1_ttl_sec"`
	L2TTLSec   int    `yaml:"l2_ttl_sec"`
	KeyPrefix  string `yaml:"key_prefix"`
}

// SearchConfig holds retrieval defaults.
type SearchConfig struct {
	TopK  int     `yaml:"top_k"`
	Alpha float64 `yaml:"alpha"`
	RRFK  int     `yaml:"rrf_k"`
}

// IngestConfig holds document chunking settings.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// AnalysisConfig holds analysis worker settings.
type AnalysisConfig struct {
	Workers  int `yaml:"workers"`
	MaxSteps int `yaml:"max_steps"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Provider.EmbeddingModel == "" {
		c.Provider.EmbeddingModel = "text-embedding-3-small"
	}
	if c.Provider.CompletionModel == "" {
		c.Provider.CompletionModel = "gpt-4o-mini"
	}
	if c.Resilience.MaxAttempts <= 0 {
		c.Resilience.MaxAttempts = 3
	}
	if c.Resilience.InitialDelayMs <= 0 {
		c.Resilience.InitialDelayMs = 1000
	}
	if c.Resilience.MaxDelayMs <= 0 {
		c.Resilience.MaxDelayMs = 30000
	}
	if c.Resilience.FailureThreshold <= 0 {
		c.Resilience.FailureThreshold = 5
	}
	if c.Resilience.OpenTimeoutSec <= 0 {
		c.Resilience.OpenTimeoutSec = 30
	}
	if c.Resilience.SuccessesToClose <= 0 {
		c.Resilience.SuccessesToClose = 3
	}
	if c.Cache.L1Capacity <= 0 {
		c.Cache.L1Capacity = 1024
	}
	if c.Cache.L1TTLSec <= 0 {
		c.Cache.L1TTLSec = 3600
	}
	if c.Cache.L2TTLSec <= 0 {
		c.Cache.L2TTLSec = 604800
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "retriever:emb_cache:"
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = 5
	}
	if c.Search.Alpha <= 0 || c.Search.Alpha > 1 {
		c.Search.Alpha = 0.5
	}
	if c.Search.RRFK <= 0 {
		c.Search.RRFK = 60
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 500
	}
	if c.Ingest.ChunkOverlap <= 0 {
		c.Ingest.ChunkOverlap = 50
	}
	if c.Analysis.Workers <= 0 {
		c.Analysis.Workers = 4
	}
	if c.Analysis.MaxSteps <= 0 {
		c.Analysis.MaxSteps = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider.api_key is required")
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be smaller than chunk_size, got %d >= %d",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
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
