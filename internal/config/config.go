// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Database() DatabaseConfig
	Provider() ProviderConfig
	Poller() PollerConfig
	Reports() ReportsConfig
	Enhancer() EnhancerConfig
	Engine() EngineConfig

	// Flag-driven setters.
	SetReportsOutputDir(string)
	SetPollerInterval(time.Duration)
	SetPollerMaxAttempts(int)
}

// Config holds the entire application configuration. It uses private fields
// to enforce access through the Interface's getter methods.
type Config struct {
	logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	database DatabaseConfig `mapstructure:"database" yaml:"database"`
	provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
	poller   PollerConfig   `mapstructure:"poller" yaml:"poller"`
	reports  ReportsConfig  `mapstructure:"reports" yaml:"reports"`
	enhancer EnhancerConfig `mapstructure:"enhancer" yaml:"enhancer"`
	engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.logger }
func (c *Config) Database() DatabaseConfig { return c.database }
func (c *Config) Provider() ProviderConfig { return c.provider }
func (c *Config) Poller() PollerConfig     { return c.poller }
func (c *Config) Reports() ReportsConfig   { return c.reports }
func (c *Config) Enhancer() EnhancerConfig { return c.enhancer }
func (c *Config) Engine() EngineConfig     { return c.engine }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetReportsOutputDir(dir string)        { c.reports.OutputDir = dir }
func (c *Config) SetPollerInterval(d time.Duration)     { c.poller.Interval = d }
func (c *Config) SetPollerMaxAttempts(n int)            { c.poller.MaxAttempts = n }

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the database connection details.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// ProviderName identifies a text-generation provider implementation.
type ProviderName string

// Supported provider backends.
const (
	ProviderGemini ProviderName = "gemini"
)

// ProviderConfig defines the enhancement provider. An empty Name means no
// provider is configured, which the capability probe reports as a normal
// state rather than an error.
type ProviderConfig struct {
	Name        ProviderName  `mapstructure:"name" yaml:"name"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`

	// VisionModels lists configured model names known to accept image input.
	// Vision support is decided from this list, never from a network call.
	VisionModels []string `mapstructure:"vision_models" yaml:"vision_models"`
}

// Configured reports whether an active provider is set up.
func (p ProviderConfig) Configured() bool {
	return p.Name != "" && p.APIKey != ""
}

// EngineConfig locates the external analysis engine's status endpoint.
type EngineConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// PollerConfig bounds the scan-status tracking loop.
type PollerConfig struct {
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// ReportsConfig controls artifact storage.
type ReportsConfig struct {
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// EnhancerConfig bounds the enhancement pipeline's provider usage.
type EnhancerConfig struct {
	// MaxConcurrent caps in-flight provider calls per batch.
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	// RequestsPerSecond rate-limits provider calls across a pipeline run.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "vantage")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "red")
	v.SetDefault("logger.colors.panic", "red")
	v.SetDefault("logger.colors.fatal", "red")

	// -- Database --
	v.SetDefault("database.url", "")

	// -- Provider --
	v.SetDefault("provider.name", "")
	v.SetDefault("provider.model", "gemini-2.0-flash")
	v.SetDefault("provider.api_timeout", 60*time.Second)
	v.SetDefault("provider.temperature", 0.2)
	v.SetDefault("provider.max_tokens", 2048)
	v.SetDefault("provider.vision_models", []string{"gemini-2.0-flash", "gemini-2.5-pro"})

	// -- Engine --
	v.SetDefault("engine.base_url", "")
	v.SetDefault("engine.timeout", 10*time.Second)

	// -- Poller --
	v.SetDefault("poller.interval", 5*time.Second)
	v.SetDefault("poller.max_attempts", 60)

	// -- Reports --
	v.SetDefault("reports.output_dir", "reports")

	// -- Enhancer --
	v.SetDefault("enhancer.max_concurrent", 4)
	v.SetDefault("enhancer.requests_per_second", 2.0)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := unmarshalExported(v, &cfg); err != nil {
		// Cannot happen with code-supplied defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Load reads configuration out of an initialized viper instance into a
// Config. Viper cannot populate unexported fields directly, so values are
// decoded through an exported shadow struct first.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := unmarshalExported(v, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// exported mirrors Config with exported fields for viper decoding.
type exported struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Database DatabaseConfig `mapstructure:"database"`
	Provider ProviderConfig `mapstructure:"provider"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Reports  ReportsConfig  `mapstructure:"reports"`
	Enhancer EnhancerConfig `mapstructure:"enhancer"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

func unmarshalExported(v *viper.Viper, cfg *Config) error {
	var e exported
	if err := v.Unmarshal(&e); err != nil {
		return err
	}
	cfg.logger = e.Logger
	cfg.database = e.Database
	cfg.provider = e.Provider
	cfg.poller = e.Poller
	cfg.reports = e.Reports
	cfg.enhancer = e.Enhancer
	cfg.engine = e.Engine
	return nil
}

func (c *Config) validate() error {
	if c.poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be positive, got %s", c.poller.Interval)
	}
	if c.poller.MaxAttempts <= 0 {
		return fmt.Errorf("poller.max_attempts must be positive, got %d", c.poller.MaxAttempts)
	}
	if c.enhancer.MaxConcurrent <= 0 {
		return fmt.Errorf("enhancer.max_concurrent must be positive, got %d", c.enhancer.MaxConcurrent)
	}
	return nil
}
