// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Per-client reconciliation settings live in INI profile files, see Profile.
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	server := cfg.D1g1t.Server
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	D1g1t         D1g1tConfig         `yaml:"d1g1t"`
	S3            S3Config            `yaml:"s3"`
	Recon         ReconConfig         `yaml:"recon"`
	Storage       StorageConfig       `yaml:"storage"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// D1g1tConfig holds the platform API settings
type D1g1tConfig struct {
	Server            string        `yaml:"server"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	APIPrefix         string        `yaml:"api_prefix"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	PollLimit         int           `yaml:"poll_limit" validate:"gte=0"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	Workers           int           `yaml:"workers" validate:"gte=0,lte=64"`
}

// S3Config holds object storage settings
type S3Config struct {
	Region          string `yaml:"region"`
	CustodianBucket string `yaml:"custodian_bucket"`
}

// ReconConfig holds defaults shared by the reconciliation tools
type ReconConfig struct {
	Tolerance   float64 `yaml:"tolerance" validate:"gte=0"`
	InputDir    string  `yaml:"input_dir"`
	OutputDir   string  `yaml:"output_dir" validate:"required"`
	ProfileFile string  `yaml:"profile_file"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" validate:"required"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json maven"`
	// Dir, when set, also writes a timestamped log file there.
	Dir string `yaml:"dir"`
}

var validate = validator.New()

// Validate checks value ranges and required fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${D1G1T_PASSWORD})
	expanded := os.ExpandEnv(string(data))

	cfg := defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		D1g1t: D1g1tConfig{
			APIPrefix: "api/v1",
			PollLimit: 100,
			Workers:   4,
		},
		Recon:   ReconConfig{Tolerance: 0.01, OutputDir: "outputs", InputDir: "inputs"},
		Storage: StorageConfig{DatabasePath: "recon.db"},
		Server:  ServerConfig{Port: 8085},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "maven"},
		},
	}
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	d := defaults()
	return &Config{
		D1g1t: D1g1tConfig{
			Server:            os.Getenv("D1G1T_SERVER"),
			Username:          os.Getenv("D1G1T_USERNAME"),
			Password:          os.Getenv("D1G1T_PASSWORD"),
			APIPrefix:         getEnv("D1G1T_API_PREFIX", d.D1g1t.APIPrefix),
			RequestsPerSecond: getEnvFloat("D1G1T_REQUESTS_PER_SECOND", 0),
			PollLimit:         getEnvInt("D1G1T_POLL_LIMIT", d.D1g1t.PollLimit),
			PollInterval:      getEnvDuration("D1G1T_POLL_INTERVAL", 0),
			Workers:           getEnvInt("D1G1T_WORKERS", d.D1g1t.Workers),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", ""),
			CustodianBucket: getEnv("CUSTODIAN_BUCKET", ""),
		},
		Recon: ReconConfig{
			Tolerance:   getEnvFloat("RECON_TOLERANCE", d.Recon.Tolerance),
			InputDir:    getEnv("RECON_INPUT_DIR", d.Recon.InputDir),
			OutputDir:   getEnv("RECON_OUTPUT_DIR", d.Recon.OutputDir),
			ProfileFile: getEnv("RECON_PROFILE_FILE", ""),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("RECON_DB_PATH", d.Storage.DatabasePath),
		},
		Server: ServerConfig{
			Port: getEnvInt("RECON_API_PORT", d.Server.Port),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", d.Observability.Logging.Level),
				Format: getEnv("LOG_FORMAT", d.Observability.Logging.Format),
				Dir:    getEnv("LOG_DIR", ""),
			},
		},
	}
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.Atoi(val); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseFloat(val, 64); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if result, err := time.ParseDuration(val); err == nil {
			return result
		}
	}
	return fallback
}

// GetSecret retrieves a value from config first, then tries multiple environment variable names
// Usage: GetSecret(cfg.D1g1t.Password, "D1G1T_PASSWORD", "PASSWORD")
func (c *Config) GetSecret(configValue string, envVarNames ...string) string {
	if configValue != "" {
		return configValue
	}
	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}
	return ""
}
