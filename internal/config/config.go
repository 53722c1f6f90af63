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

// Config holds the logdex gateway configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Logpoint LogpointConfig `yaml:"logpoint"`
	Poll     PollConfig     `yaml:"poll"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	APIKeys         []string `yaml:"api_keys"` // empty disables auth
}

// LogpointConfig holds the upstream service connection settings.
// secret_key normally comes in via ${LOGPOINT_SECRET_KEY}.
type LogpointConfig struct {
	BaseURL    string `yaml:"base_url"`
	Account    string `yaml:"account"`
	SecretKey  string `yaml:"secret_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// PollConfig bounds the poll loop.
type PollConfig struct {
	IntervalMS  int `yaml:"interval_ms"`
	TimeoutSec  int `yaml:"timeout_sec"`
	RetryBudget int `yaml:"retry_budget"`
}

// CacheConfig holds optional repository-listing cache settings.
// An empty addr disables the cache.
type CacheConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	TTLSec   int    `yaml:"ttl_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
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
		// Write timeout must cover a full poll loop, not one upstream call.
		c.HTTP.WriteTimeoutSec = 330
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Logpoint.TimeoutSec <= 0 {
		c.Logpoint.TimeoutSec = 100
	}
	if c.Poll.IntervalMS <= 0 {
		c.Poll.IntervalMS = 1000
	}
	if c.Poll.TimeoutSec <= 0 {
		c.Poll.TimeoutSec = 300
	}
	if c.Poll.RetryBudget < 0 {
		c.Poll.RetryBudget = 3
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Logpoint.BaseURL == "" {
		return fmt.Errorf("logpoint.base_url is required")
	}
	if c.Logpoint.Account == "" {
		return fmt.Errorf("logpoint.account is required")
	}
	if c.Logpoint.SecretKey == "" {
		return fmt.Errorf("logpoint.secret_key is required")
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
