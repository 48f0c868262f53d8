package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Session    SessionConfig    `mapstructure:"session"`
	Students   StudentsConfig   `mapstructure:"students"`
	YouTube    YouTubeConfig    `mapstructure:"youtube"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Production   bool          `mapstructure:"production"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type ProviderConfig struct {
	APIKeys         []string `mapstructure:"api_keys"`
	PrimaryModel    string   `mapstructure:"primary_model"`
	FallbackModels  []string `mapstructure:"fallback_models"`
	MaxOutputTokens int      `mapstructure:"max_output_tokens"`
	OutboundRPS     float64  `mapstructure:"outbound_rps"`
	OutboundBurst   int      `mapstructure:"outbound_burst"`
}

type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	UserLimit       int           `mapstructure:"user_limit"`
	Interval        time.Duration `mapstructure:"interval"`
	CredentialLimit int           `mapstructure:"credential_limit"`
}

type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	ContentTTL time.Duration `mapstructure:"content_ttl"`
	MaxSize    int           `mapstructure:"max_size"`
}

type SessionConfig struct {
	Type   string       `mapstructure:"type"` // "memory" or "redis"
	Redis  RedisConfig  `mapstructure:"redis"`
	Memory MemoryConfig `mapstructure:"memory"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MemoryConfig struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type StudentsConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "memory"
	Path   string `mapstructure:"path"`
}

type YouTubeConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	viper.BindEnv("youtube.api_key", "YOUTUBE_API_KEY")
	viper.BindEnv("session.redis.password", "REDIS_PASSWORD")
	viper.BindEnv("session.redis.db", "REDIS_DB")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// GEMINI_API_KEYS is a comma separated pool; GEMINI_API_KEY is the
	// single-key fallback.
	if keys := os.Getenv("GEMINI_API_KEYS"); keys != "" {
		config.Provider.APIKeys = splitKeys(keys)
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Provider.APIKeys = []string{key}
	}

	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		redisPort := os.Getenv("REDIS_PORT")
		if redisPort == "" {
			redisPort = "6379"
		}
		config.Session.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 180*time.Second)
	viper.SetDefault("provider.primary_model", "gemini-1.5-flash")
	viper.SetDefault("provider.fallback_models", []string{"gemini-pro", "gemini-pro-latest"})
	viper.SetDefault("provider.max_output_tokens", 2048)
	viper.SetDefault("provider.outbound_rps", 5.0)
	viper.SetDefault("provider.outbound_burst", 5)
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.user_limit", 10)
	viper.SetDefault("rate_limit.interval", time.Minute)
	viper.SetDefault("rate_limit.credential_limit", 50)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.default_ttl", time.Hour)
	viper.SetDefault("cache.content_ttl", 24*time.Hour)
	viper.SetDefault("cache.max_size", 10000)
	viper.SetDefault("session.type", "memory")
	viper.SetDefault("session.memory.default_expiration", 24*time.Hour)
	viper.SetDefault("session.memory.cleanup_interval", 10*time.Minute)
	viper.SetDefault("students.driver", "sqlite")
	viper.SetDefault("students.path", "data/students.db")
	viper.SetDefault("i18n.default_language", "es")
	viper.SetDefault("i18n.languages", []string{"es", "en"})
}

func splitKeys(raw string) []string {
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}

func validateConfig(cfg *Config) error {
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if len(cfg.Provider.APIKeys) == 0 {
		return fmt.Errorf("at least one provider API key is required")
	}
	if cfg.Provider.PrimaryModel == "" {
		return fmt.Errorf("primary model is required")
	}
	return nil
}
