package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/sirupsen/logrus"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"

	FeedLocal    = "local"
	FeedPostgres = "postgres"
	FeedAMQP     = "amqp"

	AuthAnonymous = "anonymous"
	AuthJWT       = "jwt"
)

type Config struct {
	Port     string `koanf:"port"`
	LogLevel string `koanf:"log_level"`

	DataBackend   string `koanf:"data_backend"`
	FeedTransport string `koanf:"feed_transport"`

	PostgresAddress  string `koanf:"postgres_address"`
	PostgresPort     string `koanf:"postgres_port"`
	PostgresDB       string `koanf:"postgres_db"`
	PostgresUsername string `koanf:"postgres_username"`
	PostgresPassword string `koanf:"postgres_password"`

	AMQPURL      string `koanf:"amqp_url"`
	AMQPExchange string `koanf:"amqp_exchange"`

	AuthMode  string `koanf:"auth_mode"`
	JWTSecret string `koanf:"jwt_secret"`
	JWTIssuer string `koanf:"jwt_issuer"`

	OperatorWorkers int `koanf:"operator_workers"`
}

// defaults mirror the docker compose setup.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"port":              "9446",
		"log_level":         "info",
		"data_backend":      BackendPostgres,
		"feed_transport":    FeedPostgres,
		"postgres_address":  "localhost",
		"postgres_port":     "5433",
		"postgres_db":       "postgres",
		"postgres_username": "postgres",
		"postgres_password": "testpassword",
		"amqp_url":          "",
		"amqp_exchange":     "budget.transactions",
		"auth_mode":         AuthAnonymous,
		"jwt_secret":        "",
		"jwt_issuer":        "budget-server",
		"operator_workers":  2,
	}
}

// ProcessEnvironmentVariables loads the configuration from defaults and the
// environment only.
func ProcessEnvironmentVariables() (*Config, error) {
	return Load("")
}

// Load layers defaults, an optional YAML file and the environment, in that
// order. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			logrus.WithField("path", path).Warn("config.Load.file not found, skipping")
		} else if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// PostgresDSN builds the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUsername, c.PostgresPassword),
		Host:     c.PostgresAddress + ":" + c.PostgresPort,
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Validate returns every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.PostgresAddress == "" || c.PostgresPort == "" || c.PostgresDB == "" {
			problems = append(problems, "postgres address, port and db are required when using postgres backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [memory postgres]", c.DataBackend))
	}

	switch c.FeedTransport {
	case FeedLocal:
	case FeedPostgres:
		if c.DataBackend != BackendPostgres {
			problems = append(problems, "postgres feed transport requires the postgres data backend")
		}
	case FeedAMQP:
		if c.AMQPURL == "" {
			problems = append(problems, "AMQP URL is required when using amqp feed transport")
		} else if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when using amqp feed transport")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid feed transport '%s': must be one of [local postgres amqp]", c.FeedTransport))
	}

	switch c.AuthMode {
	case AuthAnonymous:
	case AuthJWT:
		if len(c.JWTSecret) < 32 {
			problems = append(problems, "JWT secret must be at least 32 bytes when using jwt auth")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid auth mode '%s': must be one of [anonymous jwt]", c.AuthMode))
	}

	if c.OperatorWorkers < 1 || c.OperatorWorkers > 64 {
		problems = append(problems, fmt.Sprintf("invalid operator workers %d: must be between 1 and 64", c.OperatorWorkers))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}
