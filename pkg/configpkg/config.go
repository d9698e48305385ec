// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
type Config struct {
	DBDriver             string        `mapstructure:"DB_DRIVER"`
	DBSource             string        `mapstructure:"DB_SOURCE"`
	ServerAddress        string        `mapstructure:"SERVER_ADDRESS"`
	TokenType            string        `mapstructure:"TOKEN_TYPE"`
	TokenSymmetricKey    string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	Environement         string        `mapstructure:"GO_ENV"`
	LedgerTimeout        time.Duration `mapstructure:"LEDGER_TIMEOUT"`
	NotifyTimeout        time.Duration `mapstructure:"NOTIFY_TIMEOUT"`
	CompensationAttempts int           `mapstructure:"COMPENSATION_ATTEMPTS"`
	CompensationBackoff  time.Duration `mapstructure:"COMPENSATION_BACKOFF"`
	Notifier             string        `mapstructure:"NOTIFIER"`
	NotificationURL      string        `mapstructure:"NOTIFICATION_SERVICE_URL"`
	RedisAddress         string        `mapstructure:"REDIS_ADDRESS"`
	RateLimitRPS         float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst       int           `mapstructure:"RATE_LIMIT_BURST"`
	ReconcileSchedule    string        `mapstructure:"RECONCILE_SCHEDULE"`
}

// Storage drivers understood by DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

var defaults = map[string]any{
	"DB_DRIVER":                DriverMemory,
	"DB_SOURCE":                "",
	"SERVER_ADDRESS":           "0.0.0.0:8080",
	"TOKEN_TYPE":               "paseto",
	"TOKEN_SYMMETRIC_KEY":      "",
	"GO_ENV":                   "production",
	"LEDGER_TIMEOUT":           3 * time.Second,
	"NOTIFY_TIMEOUT":           3 * time.Second,
	"COMPENSATION_ATTEMPTS":    3,
	"COMPENSATION_BACKOFF":     100 * time.Millisecond,
	"NOTIFIER":                 "log",
	"NOTIFICATION_SERVICE_URL": "",
	"REDIS_ADDRESS":            "",
	"RATE_LIMIT_RPS":           20.0,
	"RATE_LIMIT_BURST":         40,
	"RECONCILE_SCHEDULE":       "@every 1m",
}

// Load read configuration from file or environment variables.
//
// A missing app.env is not an error, the defaults and the environment are used instead.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, nil
}
