package postgres

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/storage"
)

const (
	defaultPort    = 5432
	defaultSSLMode = "prefer"
)

// Config is a parsed DATABASE_URL
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     defaultPort,
		Database: "pipeline_builder",
		Username: "postgres",
		SSLMode:  defaultSSLMode,
	}
}

// NewConfigFromURL parses postgres:// and postgresql:// URLs. A missing
// port or sslmode takes the default.
func NewConfigFromURL(connStr string) (*Config, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, fmt.Errorf("invalid PostgreSQL URL: unsupported scheme %q", u.Scheme)
	}

	c := &Config{
		Host:     u.Hostname(),
		Port:     defaultPort,
		Database: strings.TrimPrefix(u.Path, "/"),
		Username: u.User.Username(),
		SSLMode:  defaultSSLMode,
	}
	c.Password, _ = u.User.Password()
	if port, err := strconv.Atoi(u.Port()); err == nil {
		c.Port = port
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.SSLMode = mode
	}
	return c, nil
}

// Validate requires host, database and user, filling in port and sslmode
func (c *Config) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.Database == "" {
		missing = append(missing, "database")
	}
	if c.Username == "" {
		missing = append(missing, "user")
	}
	if len(missing) > 0 {
		return errors.ConfigError("PostgreSQL " + strings.Join(missing, ", ") + " required")
	}

	if c.Port <= 0 {
		c.Port = defaultPort
	}
	if c.SSLMode == "" {
		c.SSLMode = defaultSSLMode
	}
	return nil
}

func (c *Config) GetType() string { return storageType }

// GetConnectionString renders a keyword/value DSN for pgx
func (c *Config) GetConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, quote(c.Password), c.Database, c.SSLMode)
}

// quote escapes a DSN value; empty values and values with spaces, quotes or
// backslashes are single-quoted
func quote(value string) string {
	switch {
	case value == "":
		return "''"
	case !strings.ContainsAny(value, ` '\`):
		return value
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value) + "'"
}

func configFrom(config storage.Config) (*Config, error) {
	switch c := config.(type) {
	case *Config:
		return c, nil
	case storage.GenericConfig:
		return NewConfigFromURL(c.String("url"))
	default:
		return nil, errors.ConfigError(fmt.Sprintf("postgres storage cannot use %T", config))
	}
}
