package dbconfig

import (
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds Postgres connection settings shared by the server, the
// change listener and the migrate tool.
type Config struct {
	// URL, when set from DATABASE_URL, wins over the individual fields.
	URL string

	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewConfigFromEnv reads DATABASE_URL or the DB_* variables, with defaults.
func NewConfigFromEnv() Config {
	return Config{
		URL:             os.Getenv("DATABASE_URL"),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", "postgres"),
		Database:        getEnv("DB_NAME", "stagetimer"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// DSN returns the Postgres connection URL. Credentials are escaped.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Target names the database for logs without leaking the password.
func (c Config) Target() string {
	if c.URL != "" {
		if u, err := url.Parse(c.URL); err == nil {
			return u.Redacted()
		}
		return "DATABASE_URL"
	}
	return c.User + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.Database
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
