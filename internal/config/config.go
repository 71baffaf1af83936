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

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Embedding runtimes.
const (
	ProviderOpenAI  = "openai"
	ProviderHashing = "hashing"
)

// CacheArea is the storage area holding the embedding cache.
const CacheArea = "cache"

// Config holds the snipdex configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
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

// StorageConfig holds the storage areas and the ordered item domains.
type StorageConfig struct {
	Areas            map[string]AreaConfig `yaml:"areas"`
	Domains          []string              `yaml:"domains"`
	ReadinessTimeout int                   `yaml:"readiness_timeout_sec"`
}

// AreaConfig holds one storage area's backend settings.
type AreaConfig struct {
	Driver            string   `yaml:"driver"` // memory, sqlite, redis
	Path              string   `yaml:"path"`   // sqlite file
	Addrs             []string `yaml:"addrs"`  // redis
	Password          string   `yaml:"password"`
	DB                int      `yaml:"db"`
	QuotaBytesPerItem int      `yaml:"quota_bytes_per_item"` // 0 = unlimited
}

// EmbeddingConfig holds embedding runtime settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // openai, hashing
	BaseURL             string `yaml:"base_url"`
	APIKey              string `yaml:"api_key"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultLimit int     `yaml:"default_limit"`
	MinScore     float64 `yaml:"min_score"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
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
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8765
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Queries wait for embeddings of every unembedded snippet.
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Storage.ReadinessTimeout <= 0 {
		c.Storage.ReadinessTimeout = 10
	}
	if len(c.Storage.Domains) == 0 {
		c.Storage.Domains = []string{"local", "sync"}
	}
	if c.Storage.Areas == nil {
		c.Storage.Areas = make(map[string]AreaConfig)
	}
	for _, name := range c.AreaNames() {
		a := c.Storage.Areas[name]
		if a.Driver == "" {
			a.Driver = DriverMemory
		}
		c.Storage.Areas[name] = a
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderHashing
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 20
	}
}

// AreaNames returns the item domains followed by the cache area.
func (c *Config) AreaNames() []string {
	names := make([]string, 0, len(c.Storage.Domains)+1)
	names = append(names, c.Storage.Domains...)
	return append(names, CacheArea)
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	seen := make(map[string]struct{}, len(c.Storage.Domains))
	for _, d := range c.Storage.Domains {
		if d == CacheArea {
			return fmt.Errorf("storage.domains must not include the %q area", CacheArea)
		}
		if _, dup := seen[d]; dup {
			return fmt.Errorf("storage.domains lists %q twice", d)
		}
		seen[d] = struct{}{}
	}

	for _, name := range c.AreaNames() {
		a := c.Storage.Areas[name]
		switch a.Driver {
		case DriverMemory:
		case DriverSQLite:
			if a.Path == "" {
				return fmt.Errorf("storage.areas.%s.path is required for sqlite", name)
			}
		case DriverRedis:
			if len(a.Addrs) == 0 {
				return fmt.Errorf("storage.areas.%s.addrs is required for redis", name)
			}
		default:
			return fmt.Errorf("storage.areas.%s.driver must be memory, sqlite or redis, got %q", name, a.Driver)
		}
		if a.QuotaBytesPerItem < 0 {
			return fmt.Errorf("storage.areas.%s.quota_bytes_per_item must not be negative", name)
		}
	}

	switch c.Embedding.Provider {
	case ProviderHashing:
	case ProviderOpenAI:
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for the openai provider")
		}
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"hashing\", got %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}

	if c.Search.MinScore < 0 || c.Search.MinScore > 1 {
		return fmt.Errorf("search.min_score must be between 0 and 1, got %g", c.Search.MinScore)
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
