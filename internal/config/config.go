// Package config loads the aegis service configuration from an optional YAML
// file, an optional .env file and the process environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"aegis/internal/logging"
)

const (
	DefaultPort            = 10000
	DefaultHost            = "0.0.0.0"
	DefaultBodyLimit       = 100 * 1024 * 1024 // 100MB
	DefaultRedirectURL     = "https://www.google.com"
	DefaultShutdownTimeout = 10 * time.Second
)

// Config is the complete service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Key    KeyConfig    `yaml:"key"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	BodyLimit       int64         `yaml:"body_limit"`
	RedirectURL     string        `yaml:"redirect_url"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORS            CORSConfig    `yaml:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// AllowsAnyOrigin reports whether the wildcard origin is configured.
func (c CORSConfig) AllowsAnyOrigin() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// KeyConfig names the signing key. PrivateKey holds a hex scalar and takes
// precedence over PrivateKeyFile.
type KeyConfig struct {
	PrivateKey     string `yaml:"private_key"`
	PrivateKeyFile string `yaml:"private_key_file"`
}

// Configured reports whether any key source is set.
func (k KeyConfig) Configured() bool {
	return k.PrivateKey != "" || k.PrivateKeyFile != ""
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			BodyLimit:       DefaultBodyLimit,
			RedirectURL:     DefaultRedirectURL,
			ShutdownTimeout: DefaultShutdownTimeout,
			CORS: CORSConfig{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"POST", "OPTIONS", "GET", "HEAD"},
				AllowedHeaders: []string{"Content-Type"},
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatJSON,
		},
	}
}

// Addr returns the host:port the server listens on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// LoadResult carries the configuration plus facts worth logging once the
// logger exists.
type LoadResult struct {
	Config     Config
	File       string
	DotEnvPath string
}

// Load builds the configuration. An empty path falls back to DefaultPath and
// tolerates its absence; an explicit path must exist. dotEnv names an
// optional .env file whose variables are added to the environment without
// overriding variables that are already set. overrides run after the
// environment overlay and before validation, so they win over both.
func Load(path, dotEnv string, overrides ...func(*Config)) (LoadResult, error) {
	var res LoadResult

	if dotEnv != "" {
		err := godotenv.Load(dotEnv)
		switch {
		case err == nil:
			res.DotEnvPath = dotEnv
		case errors.Is(err, os.ErrNotExist):
		default:
			return res, fmt.Errorf("failed to load %s: %w", dotEnv, err)
		}
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return res, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			res.File = path
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return res, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return res, err
	}

	for _, override := range overrides {
		override(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return res, err
	}

	res.Config = cfg

	return res, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}

	if v := os.Getenv("AEGIS_BODY_LIMIT"); v != "" {
		limit, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid AEGIS_BODY_LIMIT %q: %w", v, err)
		}
		cfg.Server.BodyLimit = limit
	}

	setString(&cfg.Server.Host, "AEGIS_HOST")
	setString(&cfg.Server.RedirectURL, "AEGIS_REDIRECT_URL")
	setString(&cfg.Key.PrivateKey, "AEGIS_PRIVATE_KEY")
	setString(&cfg.Key.PrivateKeyFile, "AEGIS_PRIVATE_KEY_FILE")
	setString(&cfg.Log.Level, "AEGIS_LOG_LEVEL")
	setString(&cfg.Log.Format, "AEGIS_LOG_FORMAT")

	return nil
}

func setString(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Server.Port)
	}

	if c.Server.BodyLimit <= 0 {
		return fmt.Errorf("body limit must be positive, got %d", c.Server.BodyLimit)
	}

	if c.Server.RedirectURL == "" {
		return errors.New("redirect url must not be empty")
	}

	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout must not be negative, got %s", c.Server.ShutdownTimeout)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	if !logging.ValidFormat(c.Log.Format) {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	return nil
}
