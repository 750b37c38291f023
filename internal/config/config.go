package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rewired-gh/smartbin/internal/engine"
	"github.com/rewired-gh/smartbin/internal/models"
	"github.com/rewired-gh/smartbin/internal/storage"
)

// Config represents the complete application configuration
type Config struct {
	Bin      BinConfig      `mapstructure:"bin"`
	Sensor   SensorConfig   `mapstructure:"sensor"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Fill     FillConfig     `mapstructure:"fill"`
	Dedup    DedupConfig    `mapstructure:"dedup"`
	API      APIConfig      `mapstructure:"api"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// BinConfig describes the monitored bin. It is also the state a reset
// returns to.
type BinConfig struct {
	ID             string       `mapstructure:"id"`
	Name           string       `mapstructure:"name"`
	Location       string       `mapstructure:"location"`
	TargetCategory string       `mapstructure:"target_category"`
	FillLevel      float64      `mapstructure:"fill_level"`
	Weight         float64      `mapstructure:"weight"`
	Categories     CountsConfig `mapstructure:"categories"`
}

// CountsConfig holds initial per-category item counts
type CountsConfig struct {
	Recyclable int `mapstructure:"recyclable"`
	Organic    int `mapstructure:"organic"`
	General    int `mapstructure:"general"`
}

// SensorConfig holds detection backend configuration
type SensorConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// EngineConfig holds poll cycle configuration
type EngineConfig struct {
	PollInterval           time.Duration `mapstructure:"poll_interval"`
	MaxEvents              int           `mapstructure:"max_events"`
	AlertThreshold         float64       `mapstructure:"alert_threshold"`
	HealthFailureThreshold int           `mapstructure:"health_failure_threshold"`
}

// FillConfig selects the fill reading source
type FillConfig struct {
	Mode     string `mapstructure:"mode"`
	Capacity int    `mapstructure:"capacity"`
}

// DedupConfig bounds the seen-signature set. 0 means unbounded.
type DedupConfig struct {
	MaxSignatures int `mapstructure:"max_signatures"`
}

// APIConfig holds HTTP API configuration
type APIConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	ListenAddr     string   `mapstructure:"listen_addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. An empty
// path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// SMARTBIN_TELEGRAM_BOT_TOKEN overrides telegram.bot_token
	v.SetEnvPrefix("SMARTBIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Bin defaults
	v.SetDefault("bin.id", "TC001")
	v.SetDefault("bin.name", "Main Entrance")
	v.SetDefault("bin.location", "Building A")
	v.SetDefault("bin.target_category", string(models.CategoryRecyclable))
	v.SetDefault("bin.fill_level", 0)
	v.SetDefault("bin.weight", 0)
	v.SetDefault("bin.categories.recyclable", 0)
	v.SetDefault("bin.categories.organic", 0)
	v.SetDefault("bin.categories.general", 0)

	// Sensor defaults
	v.SetDefault("sensor.base_url", "http://localhost:8000")
	v.SetDefault("sensor.timeout", "10s")
	v.SetDefault("sensor.max_retries", 3)
	v.SetDefault("sensor.retry_delay_base", "1s")

	// Engine defaults
	v.SetDefault("engine.poll_interval", "5s")
	v.SetDefault("engine.max_events", 50)
	v.SetDefault("engine.alert_threshold", 80)
	v.SetDefault("engine.health_failure_threshold", 1)

	// Fill defaults
	v.SetDefault("fill.mode", string(engine.FillGauge))
	v.SetDefault("fill.capacity", 50)

	v.SetDefault("dedup.max_signatures", 0)

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.allowed_origins", []string{"http://localhost:5173"})

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Bin config
	if c.Bin.ID == "" {
		return fmt.Errorf("bin.id is required")
	}
	if _, err := models.ParseCategory(c.Bin.TargetCategory); err != nil {
		return fmt.Errorf("bin.target_category: %w", err)
	}
	if c.Bin.FillLevel < 0 || c.Bin.FillLevel > 100 {
		return fmt.Errorf("bin.fill_level must be between 0 and 100")
	}
	if c.Bin.Weight < 0 {
		return fmt.Errorf("bin.weight must not be negative")
	}
	if c.Bin.Categories.Recyclable < 0 || c.Bin.Categories.Organic < 0 || c.Bin.Categories.General < 0 {
		return fmt.Errorf("bin.categories counts must not be negative")
	}

	// Validate Sensor config
	if c.Sensor.BaseURL == "" {
		return fmt.Errorf("sensor.base_url is required")
	}
	if c.Sensor.Timeout <= 0 {
		return fmt.Errorf("sensor.timeout must be positive")
	}
	if c.Sensor.MaxRetries < 0 {
		return fmt.Errorf("sensor.max_retries must not be negative")
	}

	// Validate Engine config
	if c.Engine.PollInterval < time.Second {
		return fmt.Errorf("engine.poll_interval must be at least 1 second")
	}
	if c.Engine.MaxEvents < 1 || c.Engine.MaxEvents > storage.DefaultMaxEvents {
		return fmt.Errorf("engine.max_events must be between 1 and %d", storage.DefaultMaxEvents)
	}
	if c.Engine.AlertThreshold <= 0 || c.Engine.AlertThreshold > 100 {
		return fmt.Errorf("engine.alert_threshold must be in (0, 100]")
	}
	if c.Engine.HealthFailureThreshold < 1 {
		return fmt.Errorf("engine.health_failure_threshold must be at least 1")
	}

	// Validate Fill config
	switch engine.FillMode(c.Fill.Mode) {
	case engine.FillGauge, engine.FillDerived:
	default:
		return fmt.Errorf("fill.mode must be one of: gauge, derived")
	}
	if c.Fill.Capacity < 1 {
		return fmt.Errorf("fill.capacity must be at least 1")
	}

	if c.Dedup.MaxSignatures < 0 {
		return fmt.Errorf("dedup.max_signatures must not be negative")
	}

	// Validate API config
	if c.API.Enabled && c.API.ListenAddr == "" {
		return fmt.Errorf("api.listen_addr is required when api is enabled")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// InitialState builds the bin's starting (and reset) state.
func (c *Config) InitialState() models.BinState {
	target, _ := models.ParseCategory(c.Bin.TargetCategory)
	return models.BinState{
		ID:             c.Bin.ID,
		Name:           c.Bin.Name,
		Location:       c.Bin.Location,
		TargetCategory: target,
		FillLevel:      c.Bin.FillLevel,
		Weight:         c.Bin.Weight,
		Categories: models.CategoryCounts{
			Recyclable: c.Bin.Categories.Recyclable,
			Organic:    c.Bin.Categories.Organic,
			General:    c.Bin.Categories.General,
		},
	}
}

// EngineOptions maps the engine, fill and dedup sections onto engine.Options.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		PollInterval:           c.Engine.PollInterval,
		MaxEvents:              c.Engine.MaxEvents,
		AlertThreshold:         c.Engine.AlertThreshold,
		HealthFailureThreshold: c.Engine.HealthFailureThreshold,
		FillMode:               engine.FillMode(c.Fill.Mode),
		Capacity:               c.Fill.Capacity,
		DedupLimit:             c.Dedup.MaxSignatures,
	}
}
