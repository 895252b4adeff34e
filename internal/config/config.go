package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080" validate:"min=1"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100" validate:"min=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50" validate:"min=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"true"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	InputDir      string `yaml:"input_dir" envconfig:"INPUT_DIR" default:"data/input"`
	ReportsDir    string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"data/reports"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// PipelineConfig contains the analytical tunables of the feature pipeline.
// These change HOW MUCH, never WHAT: environment and config may adjust
// verbosity, windows and weights, but no behavioural branching in the
// analytical logic hangs off them.
type PipelineConfig struct {
	RollingWindow   int             `yaml:"rolling_window" envconfig:"ROLLING_WINDOW" default:"3" validate:"min=1"`
	OutlierStdDevs  float64         `yaml:"outlier_std_devs" envconfig:"OUTLIER_STD_DEVS" default:"3" validate:"gt=0"`
	ProjectionYears int             `yaml:"projection_years" envconfig:"PROJECTION_YEARS" default:"5" validate:"min=1,max=30"`
	InsightTopN     int             `yaml:"insight_top_n" envconfig:"INSIGHT_TOP_N" default:"10" validate:"min=1"`
	ExcelEnabled    bool            `yaml:"excel_enabled" envconfig:"EXCEL_ENABLED" default:"true"`
	CSVBOMPrefix    bool            `yaml:"csv_bom_prefix" envconfig:"CSV_BOM_PREFIX" default:"false"`
	Maturity        MaturityWeights `yaml:"maturity" envconfig:"MATURITY"`
}

// MaturityWeights weights the three components of the market maturity
// score. The triple must sum to 1.
type MaturityWeights struct {
	Penetration float64 `yaml:"penetration" envconfig:"PENETRATION" default:"0.5" validate:"min=0,max=1"`
	Consistency float64 `yaml:"consistency" envconfig:"CONSISTENCY" default:"0.3" validate:"min=0,max=1"`
	MarketAge   float64 `yaml:"market_age" envconfig:"MARKET_AGE" default:"0.2" validate:"min=0,max=1"`
}

// Sum returns the total of the weight triple.
func (w MaturityWeights) Sum() float64 {
	return w.Penetration + w.Consistency + w.MarketAge
}

// IsValid reports whether the weights are non-negative and sum to 1
// within floating point tolerance.
func (w MaturityWeights) IsValid() bool {
	if w.Penetration < 0 || w.Consistency < 0 || w.MarketAge < 0 {
		return false
	}
	return math.Abs(w.Sum()-1.0) < 1e-9
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("EVI", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// Resolve relative paths
	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Validate paths
	if err := cfg.ValidatePaths(); err != nil {
		return nil, fmt.Errorf("path validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file, applying
// the same resolution and validation as Load. Used by the CLIs when an
// explicit -config flag is given.
func LoadFromFile(path string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("EVI", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	fileConfig, err := loadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}
	cfg = mergeConfigs(*fileConfig, cfg)

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	// Server config
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Server.ReadTimeout == 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if envConfig.Server.WriteTimeout == 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}

	// Pipeline config
	if envConfig.Pipeline.RollingWindow == 0 {
		envConfig.Pipeline.RollingWindow = fileConfig.Pipeline.RollingWindow
	}
	if envConfig.Pipeline.OutlierStdDevs == 0 {
		envConfig.Pipeline.OutlierStdDevs = fileConfig.Pipeline.OutlierStdDevs
	}
	if envConfig.Pipeline.Maturity.Sum() == 0 {
		envConfig.Pipeline.Maturity = fileConfig.Pipeline.Maturity
	}

	return envConfig
}

// resolvePaths sets up the executable directory and validates paths
func (c *Config) resolvePaths() error {
	// Use centralized paths system to get all paths
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	// Update config with resolved paths from centralized system
	c.Paths.ExecutableDir = paths.ExecutableDir

	return nil
}

// ValidatePaths validates that critical paths exist or can be created
func (c *Config) ValidatePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}

	// Ensure all required directories exist
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	// Log path resolution for debugging
	paths.LogPathResolution()

	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The weight triple is a cross-field constraint the tag validator
	// cannot express.
	if !c.Pipeline.Maturity.IsValid() {
		return fmt.Errorf("maturity weights must be non-negative and sum to 1, got %.4f", c.Pipeline.Maturity.Sum())
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	// Structured JSON logs only; console pretty-printing is a slog
	// handler concern, not a config one.
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "console" {
		c.Logging.Output = "both"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "both",
			FilePath:    "logs/app.log",
			Development: true,
		},
		Paths: PathsConfig{
			DataDir:    "data",
			InputDir:   "data/input",
			ReportsDir: "data/reports",
			LogsDir:    "logs",
		},
		Pipeline: PipelineConfig{
			RollingWindow:   DefaultRollingWindow,
			OutlierStdDevs:  DefaultOutlierStdDevs,
			ProjectionYears: DefaultProjectionYears,
			InsightTopN:     DefaultInsightTopN,
			ExcelEnabled:    true,
			CSVBOMPrefix:    false,
			Maturity: MaturityWeights{
				Penetration: 0.5,
				Consistency: 0.3,
				MarketAge:   0.2,
			},
		},
	}
}
