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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	RateLimit RateLimitConfig `yaml:"ratelimit" mapstructure:"ratelimit"`
	Geocoder  GeocoderConfig  `yaml:"geocoder" mapstructure:"geocoder"`
	Notifier  NotifierConfig  `yaml:"notifier" mapstructure:"notifier"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the intake HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	OperatorToken  string   `yaml:"operator_token" mapstructure:"operator_token"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// RateLimitConfig configures the public intake abuse gate.
type RateLimitConfig struct {
	WindowSecs  int `yaml:"window_secs" mapstructure:"window_secs"`
	MaxRequests int `yaml:"max_requests" mapstructure:"max_requests"`
}

// GeocoderConfig configures the external geocoding client and the
// enrichment job that drives it.
type GeocoderConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MinIntervalMS  int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`
	DefaultCity    string `yaml:"default_city" mapstructure:"default_city"`
	Region         string `yaml:"region" mapstructure:"region"`
	Country        string `yaml:"country" mapstructure:"country"`
}

// NotifierConfig configures outbound webhook notifications.
type NotifierConfig struct {
	WebhookURL  string `yaml:"webhook_url" mapstructure:"webhook_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
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
	v.SetEnvPrefix("INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("ratelimit.window_secs", 60)
	v.SetDefault("ratelimit.max_requests", 5)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "altozano-intake/1.0 (ops@altozano-realty.com)")
	v.SetDefault("geocoder.timeout_secs", 8)
	v.SetDefault("geocoder.min_interval_ms", 1150)
	v.SetDefault("geocoder.batch_size", 25)
	v.SetDefault("geocoder.default_city", "Córdoba")
	v.SetDefault("geocoder.region", "Córdoba")
	v.SetDefault("geocoder.country", "Argentina")
	v.SetDefault("notifier.timeout_secs", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
