// Package config loads settings for the desktop client and the chat server.
//
// Values come from, in order of precedence: the process environment, a .env
// file at the project root, an optional TOML file named by MEGBOT_CONFIG_FILE,
// and built-in defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"megbot/internal/utils"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

type Config struct {
	Environment string

	// Desktop client
	APIURL      string
	DBPath      string
	LogFile     string
	LogLevel    string
	ReplyTarget string

	RequestTimeout time.Duration

	// Chat server
	ServerAddr      string
	CORSOrigins     []string
	KeyringBackend  string
	KeyringDir      string
	KeyringPassword string
	MaxTokens       int
	RateLimit       float64
	RateBurst       int
}

// fileConfig mirrors Config for the TOML layer. Durations are strings such
// as "30s".
type fileConfig struct {
	Environment     string   `toml:"environment"`
	APIURL          string   `toml:"api_url"`
	DBPath          string   `toml:"db_path"`
	LogFile         string   `toml:"log_file"`
	LogLevel        string   `toml:"log_level"`
	ReplyTarget     string   `toml:"reply_target"`
	RequestTimeout  string   `toml:"request_timeout"`
	ServerAddr      string   `toml:"server_addr"`
	CORSOrigins     []string `toml:"cors_origins"`
	KeyringBackend  string   `toml:"keyring_backend"`
	KeyringDir      string   `toml:"keyring_dir"`
	KeyringPassword string   `toml:"keyring_password"`
	MaxTokens       int      `toml:"max_tokens"`
	RateLimit       float64  `toml:"rate_limit"`
	RateBurst       int      `toml:"rate_burst"`
}

func defaults() fileConfig {
	return fileConfig{
		Environment:    EnvDev,
		APIURL:         "http://127.0.0.1:8765",
		LogLevel:       "info",
		ReplyTarget:    "reply-to-current",
		RequestTimeout: "60s",
		ServerAddr:     "127.0.0.1:8765",
		CORSOrigins:    []string{"wails://wails", "http://wails.localhost", "http://localhost:34115"},
		KeyringDir:     "~/.megbot/keyring",
		MaxTokens:      500,
		RateLimit:      2,
		RateBurst:      10,
	}
}

// Load reads .env and the optional config file, then applies environment
// overrides.
func Load() (*Config, error) {
	if err := utils.LoadEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	base := defaults()
	if path := os.Getenv("MEGBOT_CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &base); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	return fromEnv(base)
}

func fromEnv(base fileConfig) (*Config, error) {
	timeout, err := time.ParseDuration(getEnv("MEGBOT_REQUEST_TIMEOUT", base.RequestTimeout))
	if err != nil {
		return nil, fmt.Errorf("MEGBOT_REQUEST_TIMEOUT: %w", err)
	}
	maxTokens, err := getEnvInt("MEGBOT_MAX_TOKENS", base.MaxTokens)
	if err != nil {
		return nil, err
	}
	rateBurst, err := getEnvInt("MEGBOT_RATE_BURST", base.RateBurst)
	if err != nil {
		return nil, err
	}
	rateLimit := base.RateLimit
	if v := os.Getenv("MEGBOT_RATE_LIMIT"); v != "" {
		if rateLimit, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("MEGBOT_RATE_LIMIT: %w", err)
		}
	}

	cfg := &Config{
		Environment:     getEnv("MEGBOT_ENV", base.Environment),
		APIURL:          getEnv("MEGBOT_API_URL", base.APIURL),
		DBPath:          getEnv("MEGBOT_DB_PATH", base.DBPath),
		LogFile:         getEnv("MEGBOT_LOG_FILE", base.LogFile),
		LogLevel:        strings.ToLower(getEnv("MEGBOT_LOG_LEVEL", base.LogLevel)),
		ReplyTarget:     getEnv("MEGBOT_REPLY_TARGET", base.ReplyTarget),
		RequestTimeout:  timeout,
		ServerAddr:      getEnv("MEGBOT_SERVER_ADDR", base.ServerAddr),
		CORSOrigins:     splitList(getEnv("MEGBOT_CORS_ORIGINS", strings.Join(base.CORSOrigins, ","))),
		KeyringBackend:  getEnv("MEGBOT_KEYRING_BACKEND", base.KeyringBackend),
		KeyringDir:      getEnv("MEGBOT_KEYRING_DIR", base.KeyringDir),
		KeyringPassword: getEnv("MEGBOT_KEYRING_PASSWORD", base.KeyringPassword),
		MaxTokens:       maxTokens,
		RateLimit:       rateLimit,
		RateBurst:       rateBurst,
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Environment, validation.In(EnvDev, EnvProd)),
		validation.Field(&c.APIURL, validation.Required, is.URL),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warning", "error")),
		validation.Field(&c.ReplyTarget, validation.In("reply-to-current", "reply-to-origin")),
		validation.Field(&c.RequestTimeout, validation.Min(time.Second)),
		validation.Field(&c.ServerAddr, validation.Required),
		validation.Field(&c.MaxTokens, validation.Required, validation.Min(1)),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
		validation.Field(&c.RateBurst, validation.Required, validation.Min(1)),
	)
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProd
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
