// Package config loads the application configuration from environment
// variables (RETAILKPI_ prefix) layered over an optional YAML file.
// Calculator thresholds live here so they are configuration, never
// hardcoded constants.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"retailkpi/internal/kpi"
)

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	KPI      KPIConfig      `yaml:"kpi" envconfig:"KPI"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ServerConfig configures the report HTTP server.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"50" validate:"gt=0"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"25" validate:"min=1"`
}

// LoggingConfig configures the slog JSON logger.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/retailkpi.log"`
}

// PathsConfig holds the extract and output locations.
type PathsConfig struct {
	CustomersFile string `yaml:"customers_file" envconfig:"CUSTOMERS_FILE" default:"data/customers.csv"`
	OrdersFile    string `yaml:"orders_file" envconfig:"ORDERS_FILE" default:"data/orders.xml"`
	OutputDir     string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"data/outputs"`
}

// KPIConfig carries the calculator thresholds. Defaults match the
// documented business rules; all of them can be overridden per deployment.
type KPIConfig struct {
	TopN               int     `yaml:"top_n" envconfig:"TOP_N" default:"10"`
	VIPThreshold       float64 `yaml:"vip_threshold" envconfig:"VIP_THRESHOLD" default:"800"`
	HighValueThreshold float64 `yaml:"high_value_threshold" envconfig:"HIGH_VALUE_THRESHOLD" default:"500"`
	WindowDays         int     `yaml:"window_days" envconfig:"WINDOW_DAYS" default:"30"`
}

// PipelineConfig configures run behavior.
type PipelineConfig struct {
	Engine     string        `yaml:"engine" envconfig:"ENGINE" default:"memory" validate:"oneof=memory table"`
	RunTimeout time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" default:"5m"`
}

// Load reads configuration from the optional YAML file, then overlays
// environment variables, then validates the result.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if configFile != "" {
		if err := loadFromFile(configFile, &cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := envconfig.Process("RETAILKPI", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFromFile fills cfg from a YAML file.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the structural constraints and the KPI thresholds.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	// KPI thresholds get the domain-specific check so callers see the
	// ConfigurationError taxonomy, not a generic struct error.
	return c.KPIConfig().Validate()
}

// KPIConfig converts the file/env-level thresholds into the immutable
// calculator configuration.
func (c *Config) KPIConfig() kpi.Config {
	return kpi.Config{
		TopN:               c.KPI.TopN,
		VIPThreshold:       decimal.NewFromFloat(c.KPI.VIPThreshold),
		HighValueThreshold: decimal.NewFromFloat(c.KPI.HighValueThreshold),
		WindowDays:         c.KPI.WindowDays,
	}
}

// Default returns the built-in configuration used when no file or
// environment overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  25,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/retailkpi.log",
		},
		Paths: PathsConfig{
			CustomersFile: "data/customers.csv",
			OrdersFile:    "data/orders.xml",
			OutputDir:     "data/outputs",
		},
		KPI: KPIConfig{
			TopN:               10,
			VIPThreshold:       800,
			HighValueThreshold: 500,
			WindowDays:         30,
		},
		Pipeline: PipelineConfig{
			Engine:     "memory",
			RunTimeout: 5 * time.Minute,
		},
	}
}
