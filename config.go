package main

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL     string
	Port            string
	DBMaxConns      int
	LogLevel        string
	LogFormat       string
	TracingEnabled  bool
	MetricsEnabled  bool
	Region          string
	ServiceName     string
	ShutdownTimeout time.Duration
}

const (
	keyDatabaseURL     = "database_url"
	keyPort            = "port"
	keyDBMaxConns      = "db_max_conns"
	keyLogLevel        = "log_level"
	keyLogFormat       = "log_format"
	keyTracingEnabled  = "tracing_enabled"
	keyMetricsEnabled  = "metrics_enabled"
	keyRegion          = "aws_region"
	keyServiceName     = "service_name"
	keyShutdownTimeout = "shutdown_timeout"
)

// newViper returns a viper instance with defaults set that reads the
// upper-cased key names from the environment.
func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(keyDatabaseURL, "postgres://localhost/the_acme_flavors_db")
	v.SetDefault(keyPort, "3000")
	v.SetDefault(keyDBMaxConns, 1)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "json")
	v.SetDefault(keyTracingEnabled, false)
	v.SetDefault(keyMetricsEnabled, false)
	v.SetDefault(keyRegion, "eu-central-1")
	v.SetDefault(keyServiceName, "flavors-api")
	v.SetDefault(keyShutdownTimeout, 5*time.Second)

	v.AutomaticEnv()
	return v
}

// LoadConfig reads configuration from v and validates it
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:     v.GetString(keyDatabaseURL),
		Port:            v.GetString(keyPort),
		DBMaxConns:      v.GetInt(keyDBMaxConns),
		LogLevel:        v.GetString(keyLogLevel),
		LogFormat:       v.GetString(keyLogFormat),
		TracingEnabled:  v.GetBool(keyTracingEnabled),
		MetricsEnabled:  v.GetBool(keyMetricsEnabled),
		Region:          v.GetString(keyRegion),
		ServiceName:     v.GetString(keyServiceName),
		ShutdownTimeout: v.GetDuration(keyShutdownTimeout),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL must not be empty")
	}
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	if c.DBMaxConns < 1 || c.DBMaxConns > math.MaxInt32 {
		return fmt.Errorf("DB_MAX_CONNS must be between 1 and %d, got %d", math.MaxInt32, c.DBMaxConns)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q; use json|console", c.LogFormat)
	}
	return nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Port
}

// loadDotEnv loads variables from path into the process environment without
// overriding ones already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
