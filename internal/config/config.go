// Package config loads Rollcall's configuration.
//
// Configuration comes from, in increasing priority:
//   - built-in defaults
//   - a YAML file named by --config or ROLLCALL_CONFIG
//   - environment variables (optionally seeded from a .env file)
//   - command-line flags for the few values operators change per run
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the complete process configuration.
type Config struct {
	// Environment names the deployment (development, production).
	Environment string `yaml:"environment"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Timezone is the IANA zone that defines calendar days for check-ins.
	Timezone string `yaml:"timezone"`

	Telegram  TelegramConfig  `yaml:"telegram"`
	Database  DatabaseConfig  `yaml:"database"`
	HTTP      HTTPConfig      `yaml:"http"`
	Admin     AdminConfig     `yaml:"admin"`
	Commands  CommandsConfig  `yaml:"commands"`
	Messages  MessagesConfig  `yaml:"messages"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// TelegramConfig configures the Bot API connection.
type TelegramConfig struct {
	Token string `yaml:"token"`

	// PollTimeout is the long-poll timeout in seconds.
	PollTimeout int `yaml:"poll_timeout"`
}

// DatabaseConfig configures the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig configures the admin RPC and metrics listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// AdminConfig configures who may use the admin RPC.
type AdminConfig struct {
	// IDs are the chat-platform user IDs allowed to log in.
	IDs []string `yaml:"ids"`

	// PasswordHash is a bcrypt hash of the shared admin password.
	PasswordHash string `yaml:"password_hash"`

	// JWTSecret signs admin session tokens.
	JWTSecret string `yaml:"jwt_secret"`

	// TokenTTL is how long an admin token stays valid.
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// CommandsConfig lists the chat texts that trigger each command.
type CommandsConfig struct {
	Checkin []string `yaml:"checkin"`
	Roster  []string `yaml:"roster"`
}

// MessagesConfig overrides the bot's fixed reply texts. Empty fields keep
// the built-in text.
type MessagesConfig struct {
	AlreadyCheckedIn string `yaml:"already_checked_in"`
	NobodyOnline     string `yaml:"nobody_online"`
	RosterHeader     string `yaml:"roster_header"`
	Expired          string `yaml:"expired"`
	DefaultCheckin   string `yaml:"default_checkin"`
	DefaultRosterRow string `yaml:"default_roster_row"`
	CaptchaPrompt    string `yaml:"captcha_prompt"`
	CaptchaPassed    string `yaml:"captcha_passed"`
}

// RedisConfig enables shared duplicate-update suppression.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	DB       int           `yaml:"db"`
	DedupTTL time.Duration `yaml:"dedup_ttl"`
}

// KafkaConfig enables the check-in event stream.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// TelemetryConfig enables OTLP trace export.
type TelemetryConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Timezone:    "UTC",
		Telegram:    TelegramConfig{PollTimeout: 60},
		Database:    DatabaseConfig{Path: "./data/rollcall.db"},
		HTTP:        HTTPConfig{Addr: ":8080"},
		Admin:       AdminConfig{TokenTTL: 12 * time.Hour},
		Commands: CommandsConfig{
			Checkin: []string{"打卡", "签到", "/checkin", "check in"},
			Roster:  []string{"在线用户", "/online", "online"},
		},
		Redis:     RedisConfig{DedupTTL: 24 * time.Hour},
		Kafka:     KafkaConfig{Topic: "rollcall.checkins"},
		Telemetry: TelemetryConfig{ServiceName: "rollcall", SampleRatio: 1},
	}
}

// Load reads the YAML file at path (if non-empty) over the defaults and
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse handles command-line flags, loads the .env file and the config
// file they point at, and validates the result.
func Parse(name string, args []string) (*Config, error) {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	configPath := flagSet.String("config", os.Getenv("ROLLCALL_CONFIG"), "path to YAML config file")
	envFile := flagSet.String("env-file", ".env", "dotenv file to load before reading the environment")
	dbPath := flagSet.String("db", "", "SQLite database path (overrides config)")
	addr := flagSet.String("addr", "", "HTTP listen address (overrides config)")
	logLevel := flagSet.String("log-level", "", "log level: debug, info, warn, error")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", *envFile, err)
		}
		if *configPath == "" {
			*configPath = os.Getenv("ROLLCALL_CONFIG")
		}
	}

	cfg, err := Load(*configPath)
	if err != nil {
		return nil, err
	}

	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required settings are present and well formed.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	if c.Admin.JWTSecret == "" {
		errs = append(errs, errors.New("admin.jwt_secret is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Commands.Checkin) == 0 {
		errs = append(errs, errors.New("commands.checkin must not be empty"))
	}
	if len(c.Commands.Roster) == 0 {
		errs = append(errs, errors.New("commands.roster must not be empty"))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Telegram.Token, "TELEGRAM_TOKEN")
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Timezone, "TZ_NAME")
	setString(&c.Environment, "ENV")
	setString(&c.Admin.PasswordHash, "ADMIN_PASSWORD_HASH")
	setString(&c.Admin.JWTSecret, "JWT_SECRET")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Kafka.Topic, "KAFKA_TOPIC")
	setString(&c.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&c.Telemetry.ServiceName, "OTEL_SERVICE_NAME")
	setList(&c.Admin.IDs, "ADMIN_IDS")
	setList(&c.Kafka.Brokers, "KAFKA_BROKERS")

	if v := os.Getenv("OTEL_TRACES_SAMPLER_ARG"); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid OTEL_TRACES_SAMPLER_ARG %q: %w", v, err)
		}
		c.Telemetry.SampleRatio = ratio
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}
