// Package config loads application configuration from file and environment
// and wires the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Oracle OracleConfig `yaml:"oracle" mapstructure:"oracle"`
	Clean  CleanConfig  `yaml:"clean" mapstructure:"clean"`
	Retry  RetryConfig  `yaml:"retry" mapstructure:"retry"`
	Audit  AuditConfig  `yaml:"audit" mapstructure:"audit"`
	Ingest IngestConfig `yaml:"ingest" mapstructure:"ingest"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// OracleConfig selects and configures the inference provider.
type OracleConfig struct {
	Provider       string  `yaml:"provider" mapstructure:"provider"` // "gemini" or "anthropic"
	GeminiKey      string  `yaml:"gemini_key" mapstructure:"gemini_key"`
	GeminiBaseURL  string  `yaml:"gemini_base_url" mapstructure:"gemini_base_url"`
	GeminiModel    string  `yaml:"gemini_model" mapstructure:"gemini_model"`
	AnthropicKey   string  `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	AnthropicModel string  `yaml:"anthropic_model" mapstructure:"anthropic_model"`
	Temperature    float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens      int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// CleanConfig holds the correction-pipeline tunables. The urea constants are
// empirically tuned to the observed fleet, not general principles.
type CleanConfig struct {
	BatchSize      int       `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency    int       `yaml:"concurrency" mapstructure:"concurrency"`
	FuelTolerance  float64   `yaml:"fuel_tolerance" mapstructure:"fuel_tolerance"`
	PhysTolerance  float64   `yaml:"phys_tolerance" mapstructure:"phys_tolerance"`
	MaxHoursPerDay int       `yaml:"max_hours_per_day" mapstructure:"max_hours_per_day"`
	MaxSpeed       float64   `yaml:"max_speed" mapstructure:"max_speed"`
	MaxDistance    float64   `yaml:"max_distance" mapstructure:"max_distance"`
	UreaEventVals  []float64 `yaml:"urea_event_values" mapstructure:"urea_event_values"`
	UreaPreciseMin float64   `yaml:"urea_precise_min" mapstructure:"urea_precise_min"`
	UreaMaxDiff    float64   `yaml:"urea_max_diff" mapstructure:"urea_max_diff"`
}

// RetryConfig holds the per-batch retry schedule.
type RetryConfig struct {
	MaxAttempts        int `yaml:"max_attempts" mapstructure:"max_attempts"`
	TransientDelaySecs int `yaml:"transient_delay_secs" mapstructure:"transient_delay_secs"`
	RateLimitStepSecs  int `yaml:"rate_limit_step_secs" mapstructure:"rate_limit_step_secs"`
}

// AuditConfig holds the static-rule report thresholds.
type AuditConfig struct {
	MaxSpeed      float64 `yaml:"max_speed" mapstructure:"max_speed"`
	EffMin        float64 `yaml:"eff_min" mapstructure:"eff_min"`
	EffMax        float64 `yaml:"eff_max" mapstructure:"eff_max"`
	MaxHours      float64 `yaml:"max_hours" mapstructure:"max_hours"`
	PhysTolerance float64 `yaml:"phys_tolerance" mapstructure:"phys_tolerance"`
}

// IngestConfig configures spreadsheet ingestion.
type IngestConfig struct {
	AliasFile string `yaml:"alias_file" mapstructure:"alias_file"`
}

// StoreConfig configures the relational loader backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the read-only artifact API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FLEETQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "fleetqa.db")
	v.SetDefault("oracle.provider", "gemini")
	v.SetDefault("oracle.gemini_base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("oracle.gemini_model", "gemini-2.5-flash")
	v.SetDefault("oracle.anthropic_model", "claude-haiku-4-5-20251001")
	v.SetDefault("oracle.temperature", 0.1)
	v.SetDefault("oracle.max_tokens", 8192)
	v.SetDefault("oracle.requests_per_sec", 2.0)
	v.SetDefault("clean.batch_size", 15)
	v.SetDefault("clean.concurrency", 5)
	v.SetDefault("clean.fuel_tolerance", 0.01)
	v.SetDefault("clean.phys_tolerance", 0.20)
	v.SetDefault("clean.max_hours_per_day", 16)
	v.SetDefault("clean.max_speed", 110)
	v.SetDefault("clean.max_distance", 1000)
	v.SetDefault("clean.urea_event_values", []float64{1, 2, 6})
	v.SetDefault("clean.urea_precise_min", 10)
	v.SetDefault("clean.urea_max_diff", 5)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.transient_delay_secs", 3)
	v.SetDefault("retry.rate_limit_step_secs", 5)
	v.SetDefault("audit.max_speed", 110)
	v.SetDefault("audit.eff_min", 1.5)
	v.SetDefault("audit.eff_max", 5.5)
	v.SetDefault("audit.max_hours", 20)
	v.SetDefault("audit.phys_tolerance", 0.20)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
