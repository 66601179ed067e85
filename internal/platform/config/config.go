// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/janisto/hello-devops/internal/platform/logging"
)

// DefaultEnvFile is read before parsing when Load is called without files.
const DefaultEnvFile = ".env"

// Config holds all runtime settings.
type Config struct {
	Host     string `env:"HOST"      envDefault:"0.0.0.0"`
	Port     int    `env:"PORT"      envDefault:"5000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// ProjectID enables Cloud Trace log correlation.
	ProjectID string `env:"GOOGLE_CLOUD_PROJECT"`

	// MetricsAddr is the listen address for /metrics; empty disables it.
	MetricsAddr string `env:"METRICS_ADDR"`
	DocsEnabled bool   `env:"DOCS_ENABLED" envDefault:"false"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	HTTP HTTPConfig
}

// HTTPConfig holds http.Server timeouts.
type HTTPConfig struct {
	ReadTimeout       time.Duration `env:"READ_TIMEOUT"        envDefault:"5s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"2s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT"       envDefault:"10s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT"        envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"    envDefault:"10s"`
}

// Load reads optional dotenv files and then the process environment. Values
// already present in the environment win over dotenv entries. Missing
// dotenv files are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
	}
	return parse(env.Options{})
}

// FromMap builds a Config from environ only, ignoring the process environment.
func FromMap(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Port))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			errs = append(errs, fmt.Errorf("invalid metrics address %q: %w", c.MetricsAddr, err))
		} else if c.MetricsAddr == c.Addr() {
			errs = append(errs, fmt.Errorf("metrics address %q collides with the main listener", c.MetricsAddr))
		}
	}
	if len(c.CORSAllowedOrigins) == 0 {
		errs = append(errs, errors.New("at least one CORS origin is required"))
	}
	for name, d := range map[string]time.Duration{
		"READ_TIMEOUT":        c.HTTP.ReadTimeout,
		"READ_HEADER_TIMEOUT": c.HTTP.ReadHeaderTimeout,
		"WRITE_TIMEOUT":       c.HTTP.WriteTimeout,
		"IDLE_TIMEOUT":        c.HTTP.IdleTimeout,
		"SHUTDOWN_TIMEOUT":    c.HTTP.ShutdownTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	return errors.Join(errs...)
}

// Addr is the main listener address in host:port form.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
