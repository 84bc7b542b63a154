package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Email    EmailConfig    `mapstructure:"email"`
	Demo     DemoConfig     `mapstructure:"demo"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	HTTPPort string `mapstructure:"http_port"`
	BaseURL  string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EmailConfig configures invitation delivery. An empty APIKey is not a
// startup error; sends fail at request time instead.
type EmailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	FromAddress  string `mapstructure:"from_address"`
}

type DemoConfig struct {
	DailyLimit int64 `mapstructure:"daily_limit"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads config.yaml (optional) with environment overrides, e.g.
// DATABASE_URL, REDIS_ADDRESS, EMAIL_RESEND_API_KEY, DEMO_DAILY_LIMIT.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("app.name", "kioskhub")
	viper.SetDefault("app.http_port", "8080")
	viper.SetDefault("app.base_url", "http://localhost:8080")
	viper.SetDefault("database.url", "")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("email.resend_api_key", "")
	viper.SetDefault("email.from_address", "noreply@kioskhub.local")
	viper.SetDefault("demo.daily_limit", 5)
	viper.SetDefault("logging.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Bare env names win when set, matching how the service is deployed.
	if v := viper.GetString("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := viper.GetString("HTTP_PORT"); v != "" {
		cfg.App.HTTPPort = v
	}
	if v := viper.GetString("REDIS_ADDRESS"); v != "" {
		cfg.Redis.Address = v
	}
	if v := viper.GetString("RESEND_API_KEY"); v != "" {
		cfg.Email.ResendAPIKey = v
	}
	return &cfg, nil
}
