package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Auth      AuthConfig      `koanf:"auth"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Worker    WorkerConfig    `koanf:"worker"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Port            string        `koanf:"port" validate:"required,numeric"`
	Environment     string        `koanf:"environment" validate:"oneof=development production test"`
	Timezone        string        `koanf:"timezone" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver     string `koanf:"driver" validate:"oneof=postgres sqlite memory"`
	SQLitePath string `koanf:"sqlite_path" validate:"required_if=Driver sqlite"`
}

type DatabaseConfig struct {
	// Driver picks the database/sql driver for Postgres: "pgx" or "postgres" (lib/pq).
	Driver          string        `koanf:"driver" validate:"oneof=pgx postgres"`
	Host            string        `koanf:"host"`
	Port            string        `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Host      string        `koanf:"host" validate:"required_if=Enabled true"`
	Port      string        `koanf:"port"`
	Password  string        `koanf:"password"`
	DB        int           `koanf:"db" validate:"gte=0,lte=15"`
	HabitTTL  time.Duration `koanf:"habit_ttl"`
	ReportTTL time.Duration `koanf:"report_ttl"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret" validate:"required,min=16"`
	Issuer    string        `koanf:"issuer" validate:"required"`
	TokenTTL  time.Duration `koanf:"token_ttl" validate:"gt=0"`
}

type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests" validate:"gte=1"`
	Window   time.Duration `koanf:"window" validate:"gt=0"`
}

type WorkerConfig struct {
	QueueSize int `koanf:"queue_size" validate:"gte=1"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
	File   string `koanf:"file"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Environment:     "development",
			Timezone:        "UTC",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			Driver:     DriverPostgres,
			SQLitePath: "kanso.db",
		},
		Database: DatabaseConfig{
			Driver:          "pgx",
			Host:            "localhost",
			Port:            "5432",
			User:            "user",
			Password:        "password",
			Name:            "kanso_db",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:   true,
			Host:      "localhost",
			Port:      "6379",
			HabitTTL:  30 * time.Minute,
			ReportTTL: 10 * time.Minute,
		},
		Auth: AuthConfig{
			Issuer:   "kanso-tracker",
			TokenTTL: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 100,
			Window:   time.Minute,
		},
		Worker: WorkerConfig{
			QueueSize: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("server.timezone: %w", err)
	}
	return nil
}

// Location returns the configured default time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
