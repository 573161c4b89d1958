package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the runtime settings for the auction house server
type Config struct {
	Port       string
	LedgerPath string // empty means in-memory ledger
	JWTSecret  string
	LogLevel   string
}

// Load reads configuration from an optional .env file with environment
// variable overrides.
func Load() Config {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv() // allow environment variables to override .env
	_ = viper.ReadInConfig()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("LEDGER_PATH", "")
	viper.SetDefault("JWT_SECRET", "dev-secret-change-in-production")
	viper.SetDefault("LOG_LEVEL", "info")

	return Config{
		Port:       viper.GetString("PORT"),
		LedgerPath: viper.GetString("LEDGER_PATH"),
		JWTSecret:  viper.GetString("JWT_SECRET"),
		LogLevel:   viper.GetString("LOG_LEVEL"),
	}
}

// Addr returns the listen address for the HTTP server
func (c Config) Addr() string {
	return fmt.Sprintf(":%s", c.Port)
}
