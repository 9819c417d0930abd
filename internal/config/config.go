package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

const (
	DefaultPort     = "8080"
	DefaultDBDriver = "sqlite3"
	DefaultDBDSN    = "cloud_storage.db"

	// PlaceholderSecret is the well-known example value, treated as unset.
	PlaceholderSecret = "change-me"
)

type Config struct {
	Port         string `yaml:"port"`
	DBDriver     string `yaml:"db_driver"`
	DBDSN        string `yaml:"db_dsn"`
	MaxIdleConns int    `yaml:"db_max_idle_conns"`
	Secret       string `yaml:"secret"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Port:      DefaultPort,
		DBDriver:  DefaultDBDriver,
		DBDSN:     DefaultDBDSN,
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load reads a YAML file on top of the defaults. Fields absent from the
// file keep their default values.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	return config, nil
}

// ApplyEnv overrides fields from the process environment.
func (c *Config) ApplyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"PORT", &c.Port},
		{"CLOUDFILES_DB_DRIVER", &c.DBDriver},
		{"CLOUDFILES_DB_DSN", &c.DBDSN},
		{"CLOUDFILES_SESSION_SECRET", &c.Secret},
		{"CLOUDFILES_LOG_LEVEL", &c.LogLevel},
		{"CLOUDFILES_LOG_FORMAT", &c.LogFormat},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}
}

// WeakSecret reports whether the session secret is unset or still the
// example placeholder.
func (c *Config) WeakSecret() bool {
	return c.Secret == "" || c.Secret == PlaceholderSecret
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported db_driver %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("db_dsn is empty")
	}
	if c.Port == "" {
		return fmt.Errorf("port is empty")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("db_max_idle_conns must not be negative")
	}
	return nil
}
