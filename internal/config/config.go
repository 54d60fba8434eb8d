// Package config handles loading and parsing application configuration.
// It supports three sources (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//  3. The process environment alone, after loading ./.env if it exists
//
// Values from the YAML file can always be overridden by the environment
// variables named in the env:"..." tags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Supported values for Storage.Driver. They double as the database/sql
// driver names registered by the respective driver packages.
const (
	DriverSQLite   = "sqlite3"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config is the root configuration structure.
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	Storage Storage `yaml:"storage"`

	HTTPServer `yaml:"http_server"`
}

// Storage selects and locates the relational database.
//
// DSN wins when set. Otherwise the DSN is built from the structured fields;
// for sqlite3 only Database (the file path) is used.
type Storage struct {
	Driver   string `yaml:"driver"   env:"STORAGE_DRIVER"   env-default:"sqlite3"`
	DSN      string `yaml:"dsn"      env:"STORAGE_DSN"`
	Host     string `yaml:"host"     env:"STORAGE_HOST"`
	Port     int    `yaml:"port"     env:"STORAGE_PORT"`
	User     string `yaml:"user"     env:"STORAGE_USER"`
	Password string `yaml:"password" env:"STORAGE_PASSWORD"`
	Database string `yaml:"database" env:"STORAGE_DATABASE"`
}

// HTTPServer holds settings specific to the HTTP server.
// Nested under http_server: in the YAML file.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:5000".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:"localhost:5000"`

	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"HTTP_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"HTTP_WRITE_TIMEOUT"    env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"HTTP_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`

	// MaxBodyBytes caps request bodies. Zero disables the limit.
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"HTTP_MAX_BODY_BYTES" env-default:"1048576"`

	// AllowedOrigins feeds the CORS middleware; the UI is served elsewhere.
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

// MustLoad reads, validates, and returns the application config.
//
// Functions prefixed with "Must" are allowed to terminate the process on
// failure: if this function returns, the config is valid.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %s", err.Error())
	}
	return cfg
}

// Load reads the config from path, or from the environment when path is
// empty, and validates it.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		// Missing .env is fine; the environment may already be populated.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read env: %w", err)
		}
	} else {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}

	if c.Storage.DSN == "" && c.Storage.Database == "" {
		return errors.New("storage: either dsn or database must be set")
	}
	if c.Storage.DSN == "" && c.Storage.Driver != DriverSQLite && c.Storage.Host == "" {
		return fmt.Errorf("storage: host is required for driver %q", c.Storage.Driver)
	}

	if c.HTTPServer.Addr == "" {
		return errors.New("http_server: address must be set")
	}
	if c.HTTPServer.MaxBodyBytes < 0 {
		return errors.New("http_server: max_body_bytes must not be negative")
	}
	return nil
}
