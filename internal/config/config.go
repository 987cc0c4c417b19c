package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Flex     Flex     `mapstructure:"flex"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Flex holds the configuration for downloading broker statements
// from the IBKR Flex Web Service.
type Flex struct {
	Enabled        bool    `mapstructure:"enabled"`
	BaseURL        string  `mapstructure:"base_url"`
	Token          string  `mapstructure:"token"`
	QueryID        string  `mapstructure:"query_id"`
	AccountID      uint    `mapstructure:"account_id"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	SyncInterval   int     `mapstructure:"sync_interval"` // seconds
	PollAttempts   int     `mapstructure:"poll_attempts"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
// An optional .env file in the config directory is loaded first so that
// secrets can be supplied through the environment.
func LoadConfig(path string) (config Config, err error) {
	if err = godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("database.dsn", "journal.db")
	v.SetDefault("flex.base_url", "https://ndcdyn.interactivebrokers.com/AccountManagement/FlexWebService")
	v.SetDefault("flex.rate_limit", 1)       // requests per second
	v.SetDefault("flex.rate_limit_burst", 1) // burst size
	v.SetDefault("flex.sync_interval", 3600)
	v.SetDefault("flex.poll_attempts", 5)
	// Registered so AutomaticEnv can override keys absent from the file.
	v.SetDefault("flex.enabled", false)
	v.SetDefault("flex.token", "")
	v.SetDefault("flex.query_id", "")
	v.SetDefault("flex.account_id", 0)

	err = v.ReadInConfig()
	if err != nil {
		return
	}

	err = v.Unmarshal(&config)
	return
}
