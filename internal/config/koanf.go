package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/kanso/config.yaml",
}

const ConfigPathEnvVar = "CONFIG_PATH"

// envMappings keeps the flat variable names used by docker-compose and CI.
var envMappings = map[string]string{
	"port":                "server.port",
	"environment":         "server.environment",
	"timezone":            "server.timezone",
	"tz_default":          "server.timezone",
	"shutdown_timeout":    "server.shutdown_timeout",
	"storage_driver":      "storage.driver",
	"sqlite_path":         "storage.sqlite_path",
	"db_driver":           "database.driver",
	"db_host":             "database.host",
	"db_port":             "database.port",
	"db_user":             "database.user",
	"db_password":         "database.password",
	"db_name":             "database.name",
	"db_sslmode":          "database.ssl_mode",
	"db_max_open_conns":   "database.max_open_conns",
	"db_max_idle_conns":   "database.max_idle_conns",
	"redis_enabled":       "redis.enabled",
	"redis_host":          "redis.host",
	"redis_port":          "redis.port",
	"redis_password":      "redis.password",
	"redis_db":            "redis.db",
	"redis_habit_ttl":     "redis.habit_ttl",
	"redis_report_ttl":    "redis.report_ttl",
	"jwt_secret":          "auth.jwt_secret",
	"jwt_issuer":          "auth.issuer",
	"jwt_ttl":             "auth.token_ttl",
	"rate_limit_enabled":  "rate_limit.enabled",
	"rate_limit_requests": "rate_limit.requests",
	"rate_limit_window":   "rate_limit.window",
	"worker_queue_size":   "worker.queue_size",
	"log_level":           "logging.level",
	"log_format":          "logging.format",
	"log_file":            "logging.file",
}

// Load layers struct defaults, an optional YAML file and the environment,
// in that order. A .env file in the working directory is read first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// unmapped variables are skipped
	return ""
}
