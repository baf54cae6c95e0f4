package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"readinglist/internal/logger"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML
// config file
const ConfigFileEnv = "READINGLIST_CONFIG"

// Config holds all configuration for the application
type Config struct {
	Port         int    `json:"port" yaml:"port"`
	DatabasePath string `json:"database_path" yaml:"database_path"`
	BaseURL      string `json:"base_url" yaml:"base_url"`
	Environment  string `json:"environment" yaml:"environment"`

	Logging logger.Config `json:"logging" yaml:"logging"`

	MetadataTimeout time.Duration `json:"metadata_timeout" yaml:"metadata_timeout"`
	UserAgent       string        `json:"user_agent" yaml:"user_agent"`

	// ConnectivityURL is probed to detect connectivity; "off" disables probing
	ConnectivityURL      string        `json:"connectivity_url" yaml:"connectivity_url"`
	ConnectivityInterval time.Duration `json:"connectivity_interval" yaml:"connectivity_interval"`
	// QueueDir holds the offline job queue; ":memory:" keeps it in memory
	QueueDir string `json:"queue_dir" yaml:"queue_dir"`

	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Port:                 8080,
		DatabasePath:         "readinglist.db",
		BaseURL:              "http://localhost:8080",
		Environment:          "development",
		Logging:              logger.Config{Level: "info", Format: "text"},
		MetadataTimeout:      10 * time.Second,
		UserAgent:            "ReadingList/1.0",
		ConnectivityURL:      "https://www.google.com/generate_204",
		ConnectivityInterval: 30 * time.Second,
		QueueDir:             "readinglist-queue",
		CORSOrigins:          []string{"*"},
	}
}

// IsDevelopment reports whether the app runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load builds the configuration from the defaults, an optional YAML file
// named by READINGLIST_CONFIG and the environment, in increasing order of
// precedence. A .env file in the working directory is loaded first.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(cfg, fileCfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnvAsInt("PORT", cfg.Port)
	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.BaseURL = getEnv("BASE_URL", cfg.BaseURL)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)
	cfg.MetadataTimeout = getEnvAsDuration("METADATA_TIMEOUT", cfg.MetadataTimeout)
	cfg.UserAgent = getEnv("USER_AGENT", cfg.UserAgent)
	cfg.ConnectivityURL = getEnv("CONNECTIVITY_URL", cfg.ConnectivityURL)
	cfg.ConnectivityInterval = getEnvAsDuration("CONNECTIVITY_INTERVAL", cfg.ConnectivityInterval)
	cfg.QueueDir = getEnv("QUEUE_DIR", cfg.QueueDir)
	cfg.CORSOrigins = getEnvAsList("CORS_ORIGINS", cfg.CORSOrigins)

	if strings.EqualFold(cfg.ConnectivityURL, "off") {
		cfg.ConnectivityURL = ""
	}
	if cfg.QueueDir == ":memory:" {
		cfg.QueueDir = ""
	}
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt gets an environment variable as integer with a fallback value
func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvAsDuration parses values such as "10s" or "1m30s"
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// getEnvAsList splits a comma separated variable, dropping empty entries
func getEnvAsList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
