// Package config loads the engine's settings from the environment, with
// optional .env and .env.local files for local development.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/generic"
)

// DefaultEnvFiles are loaded in order when present. Variables already set in
// the process environment win.
var DefaultEnvFiles = []string{".env", ".env.local"}

type HTTPOptions struct {
	Addr         string        `env:"ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

type DatabaseOptions struct {
	Driver string `env:"DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DSN" envDefault:"./data/leave.db"`
}

type RedisOptions struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type CalendarOptions struct {
	Enabled         bool   `env:"ENABLED" envDefault:"false"`
	CredentialsFile string `env:"CREDENTIALS_FILE"`
	SharedID        string `env:"SHARED_ID"`
	Endpoint        string `env:"ENDPOINT"`
}

type OutboxOptions struct {
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	BatchSize    int           `env:"BATCH_SIZE" envDefault:"50"`
	MaxAttempts  int           `env:"MAX_ATTEMPTS" envDefault:"10"`
}

type LogOptions struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

type TelemetryOptions struct {
	Endpoint    string `env:"EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"leave-engine"`
}

type Config struct {
	HTTP      HTTPOptions      `envPrefix:"HTTP_"`
	Database  DatabaseOptions  `envPrefix:"DB_"`
	Redis     RedisOptions     `envPrefix:"REDIS_"`
	Calendar  CalendarOptions  `envPrefix:"CALENDAR_"`
	Outbox    OutboxOptions    `envPrefix:"OUTBOX_"`
	Log       LogOptions       `envPrefix:"LOG_"`
	Telemetry TelemetryOptions `envPrefix:"OTEL_"`

	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"10m"`
	Holidays []string      `env:"LEAVE_HOLIDAYS" envSeparator:","`
}

// Load reads the env files that exist, parses the environment and validates.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite3 or pgx, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", c.Outbox.BatchSize)
	}
	if c.Outbox.MaxAttempts <= 0 {
		return fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be positive, got %d", c.Outbox.MaxAttempts)
	}
	if c.Outbox.PollInterval <= 0 {
		return fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive")
	}
	if c.Calendar.Enabled && c.Calendar.SharedID == "" {
		return fmt.Errorf("CALENDAR_SHARED_ID is required when CALENDAR_ENABLED is set")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}
	if _, err := c.HolidayCalendar(); err != nil {
		return err
	}
	return nil
}

// HolidayCalendar builds the configured public holidays. No dates means no
// holidays.
func (c *Config) HolidayCalendar() (generic.HolidayCalendar, error) {
	dates := make([]string, 0, len(c.Holidays))
	for _, raw := range c.Holidays {
		if raw = strings.TrimSpace(raw); raw != "" {
			dates = append(dates, raw)
		}
	}
	if len(dates) == 0 {
		return generic.NoHolidays{}, nil
	}
	cal, err := generic.NewFixedHolidays(dates...)
	if err != nil {
		return nil, fmt.Errorf("LEAVE_HOLIDAYS: %w", err)
	}
	return cal, nil
}
