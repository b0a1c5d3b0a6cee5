// Package config loads go-signpdf settings.
//
// Settings are read from an optional YAML file first and then overridden by
// environment variables. Environment files (.env and config/config.env) are
// loaded into the process environment with godotenv before the overrides are
// applied, so a deployment can use either mechanism.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// DefaultPath is used when Load is called with an empty path.
const DefaultPath = "config/config.yaml"

var envFiles = []string{".env", "config/config.env"}

type Config struct {
	Port           int      `yaml:"port"`
	PublicBaseURL  string   `yaml:"public-base-url"`
	StorageDir     string   `yaml:"storage-dir"`
	AllowedOrigins []string `yaml:"allowed-origins"`
	MaxUploadBytes int64    `yaml:"max-upload-bytes"`

	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Auth     Auth     `yaml:"auth"`
	SMTP     SMTP     `yaml:"smtp"`
}

type Database struct {
	Driver string `yaml:"driver"` // postgres, mysql or memory
	URI    string `yaml:"uri"`
}

// Redis is optional. With an empty Addr token revocation and reset tokens are
// kept in process memory.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Auth struct {
	JWTSecret    string        `yaml:"jwt-secret"`
	JWTExpire    time.Duration `yaml:"jwt-expire"`
	CookieExpire int           `yaml:"cookie-expire"` // days
	ResetExpire  time.Duration `yaml:"reset-expire"`
}

// SMTP is optional. With an empty Host outgoing mail is logged instead of sent.
type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func Default() *Config {
	return &Config{
		Port:           8080,
		PublicBaseURL:  "http://localhost:8080",
		StorageDir:     "storage",
		AllowedOrigins: []string{"http://localhost:3000"},
		MaxUploadBytes: 5 * 1024 * 1024,
		Database:       Database{Driver: DriverMemory},
		Auth: Auth{
			JWTExpire:    5 * 24 * time.Hour,
			CookieExpire: 5,
			ResetExpire:  15 * time.Minute,
		},
		SMTP: SMTP{Port: 465},
	}
}

// Load reads the YAML file at path (DefaultPath when empty; a missing file is
// not an error), loads environment files and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", f, err)
			}
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	var err error
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" && err == nil {
			if *dst, err = strconv.Atoi(v); err != nil {
				err = fmt.Errorf("invalid %s: %w", key, err)
			}
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" && err == nil {
			if *dst, err = time.ParseDuration(v); err != nil {
				err = fmt.Errorf("invalid %s: %w", key, err)
			}
		}
	}

	num("PORT", &c.Port)
	str("PUBLIC_BASE_URL", &c.PublicBaseURL)
	str("STORAGE_DIR", &c.StorageDir)
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v := getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", perr)
		}
		c.MaxUploadBytes = n
	}

	str("DB_DRIVER", &c.Database.Driver)
	str("DB_URI", &c.Database.URI)

	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	num("REDIS_DB", &c.Redis.DB)

	str("JWT_SECRET", &c.Auth.JWTSecret)
	dur("JWT_EXPIRE", &c.Auth.JWTExpire)
	num("COOKIE_EXPIRE", &c.Auth.CookieExpire)
	dur("RESET_EXPIRE", &c.Auth.ResetExpire)

	str("SMTP_HOST", &c.SMTP.Host)
	num("SMTP_PORT", &c.SMTP.Port)
	str("SMTP_USER", &c.SMTP.User)
	str("SMTP_PASSWORD", &c.SMTP.Password)
	str("SMTP_FROM", &c.SMTP.From)
	return err
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres, DriverMySQL:
		if c.Database.URI == "" {
			return fmt.Errorf("config: DB_URI is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Auth.JWTExpire <= 0 {
		return errors.New("config: JWT_EXPIRE must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("config: MAX_UPLOAD_BYTES must be positive")
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
