package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "HEARTH_"

type Config struct {
	Port           string
	DBPath         string
	LogLevel       string
	LogFormat      string
	JWTSecret      string
	JWTIssuer      string
	Timezone       string
	AllowedOrigins []string
}

// Load reads configuration from the environment and validates it for
// serving.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads configuration from the environment without validating it. A
// .env file in the working directory (or at HEARTH_ENV_FILE) is applied first
// without overriding variables that are already set. Offline commands that
// never verify tokens use Read directly.
func Read() (*Config, error) {
	envFile := os.Getenv(envPrefix + "ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{
		Port:           getenv("PORT", "8080"),
		DBPath:         getenv("DB_PATH", "hearthboard.db"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "text"),
		JWTSecret:      os.Getenv(envPrefix + "JWT_SECRET"),
		JWTIssuer:      os.Getenv(envPrefix + "JWT_ISSUER"),
		Timezone:       getenv("TIMEZONE", "Local"),
		AllowedOrigins: splitList(os.Getenv(envPrefix + "ALLOWED_ORIGINS")),
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New(envPrefix+"JWT_SECRET is required"))
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New(envPrefix+"JWT_SECRET must be at least 32 bytes"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("%sTIMEZONE: %w", envPrefix, err))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%sLOG_FORMAT must be text or json, got %q", envPrefix, c.LogFormat))
	}
	return errors.Join(errs...)
}

// Location returns the family-day timezone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func getenv(key, fallback string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
