package backend

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes a database connection in YAML form:
//
//	driver: sqlite
//	dsn: file:app.db
//	dialect: sqlite
//	max_conns: 10
type Config struct {
	// Driver is the database/sql driver name.
	Driver string `yaml:"driver"`
	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn"`
	// Dialect names the SQL dialect used by the compiler.
	Dialect string `yaml:"dialect"`
	// MaxConns bounds the connection pool (0 = driver default).
	MaxConns int `yaml:"max_conns"`
}

// LoadConfig reads a YAML connection config from a file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Driver == "" {
		return nil, fmt.Errorf("config %s: driver must not be empty", path)
	}
	if cfg.Dialect == "" {
		cfg.Dialect = cfg.Driver
	}
	return &cfg, nil
}

// Open connects using the config plus any extra options.
func (c *Config) Open(opts ...Option) (*DB, error) {
	all := make([]Option, 0, len(opts)+1)
	if c.MaxConns > 0 {
		all = append(all, WithMaxConns(c.MaxConns))
	}
	all = append(all, opts...)
	return Open(c.Driver, c.DSN, all...)
}
