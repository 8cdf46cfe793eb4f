// Package config loads runtime settings for the generator and the mock
// backend from an optional JSON file overlaid with environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const DefaultFile = "datagen.json"

type Config struct {
	BackendURL     string        `mapstructure:"backend-url"`
	StatusPort     string        `mapstructure:"status-port"`
	MinRecords     int           `mapstructure:"min-records"`
	CacheTTL       time.Duration `mapstructure:"cache-ttl"`
	CreateDelay    time.Duration `mapstructure:"create-delay"`
	CustomerDelay  time.Duration `mapstructure:"customer-create-delay"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`

	OrderInterval        time.Duration `mapstructure:"order-interval"`
	UserInterval         time.Duration `mapstructure:"user-interval"`
	CustomerCareInterval time.Duration `mapstructure:"customer-care-interval"`
	RestaurantInterval   time.Duration `mapstructure:"restaurant-interval"`

	BreakerMaxFailures int           `mapstructure:"breaker-max-failures"`
	BreakerTimeout     time.Duration `mapstructure:"breaker-timeout"`

	KafkaBrokers string `mapstructure:"kafka-brokers"`
	DatabaseURL  string `mapstructure:"database-url"`
	LogLevel     string `mapstructure:"log-level"`
	FakerSeed    int64  `mapstructure:"faker-seed"`

	Mock `mapstructure:",squash"`
}

// Mock holds the settings read by cmd/backend-mock.
type Mock struct {
	Port     string        `mapstructure:"mock-port"`
	DBPath   string        `mapstructure:"mock-db-path"`
	Latency  time.Duration `mapstructure:"mock-latency"`
	FailRate float64       `mapstructure:"mock-fail-rate"`
}

var defaults = map[string]interface{}{
	"backend-url":            "http://localhost:1310",
	"status-port":            "8090",
	"min-records":            10,
	"cache-ttl":              "5m",
	"create-delay":           "100ms",
	"customer-create-delay":  "200ms",
	"request-timeout":        "10s",
	"order-interval":         "30s",
	"user-interval":          "60s",
	"customer-care-interval": "90s",
	"restaurant-interval":    "120s",
	"breaker-max-failures":   5,
	"breaker-timeout":        "30s",
	"kafka-brokers":          "",
	"database-url":           "",
	"log-level":              "info",
	"faker-seed":             0,
	"mock-port":              "1310",
	"mock-db-path":           "backend-mock.db",
	"mock-latency":           "0s",
	"mock-fail-rate":         0.0,
}

// Load reads path when it exists (an empty path means DefaultFile) and lets
// environment variables such as BACKEND_URL or MOCK_FAIL_RATE override any
// key.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultFile
	}

	v := viper.New()
	v.SetConfigType("json")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("stat config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.BackendURL == "":
		return errors.New("backend-url is required")
	case c.MinRecords < 1:
		return fmt.Errorf("min-records must be at least 1, got %d", c.MinRecords)
	case c.CacheTTL <= 0:
		return fmt.Errorf("cache-ttl must be positive, got %s", c.CacheTTL)
	case c.OrderInterval <= 0 || c.UserInterval <= 0 || c.CustomerCareInterval <= 0 || c.RestaurantInterval <= 0:
		return errors.New("job intervals must be positive")
	case c.Mock.FailRate < 0 || c.Mock.FailRate > 1:
		return fmt.Errorf("mock-fail-rate must be within [0,1], got %v", c.Mock.FailRate)
	}
	return nil
}

// Logger builds the JSON logrus logger used by every binary. An unknown
// level falls back to info.
func (c Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logger.WithField("log_level", c.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
