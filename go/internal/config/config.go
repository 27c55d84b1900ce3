package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "stagetimer.yaml"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	FeedWebSocket = "websocket"
	FeedNATS      = "nats"
	FeedPoll      = "poll"

	ProberConnect = "connect"
	ProberHTTP    = "http"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Server    ServerConfig    `yaml:"server"`
	NATS      NATSConfig      `yaml:"nats"`
	Listener  ListenerConfig  `yaml:"listener"`
	Display   DisplayConfig   `yaml:"display"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	Store          string   `yaml:"store"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
}

type ListenerConfig struct {
	FallbackInterval time.Duration `yaml:"fallback_interval"`
	PingInterval     time.Duration `yaml:"ping_interval"`
}

type DisplayConfig struct {
	ServerURL     string        `yaml:"server_url"`
	Feed          string        `yaml:"feed"`
	Prober        string        `yaml:"prober"`
	Tick          time.Duration `yaml:"tick"`
	Resync        time.Duration `yaml:"resync"`
	OffsetRefresh time.Duration `yaml:"offset_refresh"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
}

type DiscoveryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Service  string        `yaml:"service"`
	Instance string        `yaml:"instance"`
	Timeout  time.Duration `yaml:"timeout"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Port:           "8080",
			Store:          StorePostgres,
			AllowedOrigins: []string{"*"},
		},
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://localhost:4222",
			Stream:  "STAGE_TIMER",
			Subject: "stagetimer.timer.1",
		},
		Listener: ListenerConfig{
			FallbackInterval: 10 * time.Second,
			PingInterval:     90 * time.Second,
		},
		Display: DisplayConfig{
			ServerURL:     "http://localhost:8080",
			Feed:          FeedWebSocket,
			Prober:        ProberConnect,
			Tick:          200 * time.Millisecond,
			Resync:        5 * time.Second,
			OffsetRefresh: 30 * time.Second,
			ProbeTimeout:  2 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Enabled:  true,
			Service:  "_stagetimer._tcp",
			Instance: "stagetimer",
			Timeout:  3 * time.Second,
		},
	}
}

// Load reads path on top of the defaults and then applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Store = getEnv("STAGETIMER_STORE", c.Server.Store)
	if origins := os.Getenv("STAGETIMER_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	c.NATS.Enabled = getEnvAsBool("STAGETIMER_NATS_ENABLED", c.NATS.Enabled)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)

	c.Display.ServerURL = getEnv("STAGETIMER_SERVER_URL", c.Display.ServerURL)
	c.Display.Feed = getEnv("STAGETIMER_FEED", c.Display.Feed)
	c.Display.Prober = getEnv("STAGETIMER_PROBER", c.Display.Prober)
	c.Display.Tick = getEnvAsDuration("STAGETIMER_TICK", c.Display.Tick)

	c.Discovery.Enabled = getEnvAsBool("STAGETIMER_MDNS", c.Discovery.Enabled)
	c.Discovery.Instance = getEnv("STAGETIMER_INSTANCE", c.Discovery.Instance)
}

func (c *Config) Validate() error {
	var errs []error

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %q is not a valid port", c.Server.Port))
	}
	switch c.Server.Store {
	case StoreMemory, StorePostgres:
	default:
		errs = append(errs, fmt.Errorf("server.store: unknown store %q", c.Server.Store))
	}
	if c.NATS.Enabled && (c.NATS.URL == "" || c.NATS.Stream == "" || c.NATS.Subject == "") {
		errs = append(errs, errors.New("nats: url, stream and subject are required when enabled"))
	}
	if c.Listener.FallbackInterval <= 0 || c.Listener.PingInterval <= 0 {
		errs = append(errs, errors.New("listener: intervals must be positive"))
	}

	switch c.Display.Feed {
	case FeedWebSocket, FeedNATS, FeedPoll:
	default:
		errs = append(errs, fmt.Errorf("display.feed: unknown feed %q", c.Display.Feed))
	}
	switch c.Display.Prober {
	case ProberConnect, ProberHTTP:
	default:
		errs = append(errs, fmt.Errorf("display.prober: unknown prober %q", c.Display.Prober))
	}
	if c.Display.Tick < 100*time.Millisecond || c.Display.Tick > time.Second {
		errs = append(errs, fmt.Errorf("display.tick: %s not in [100ms, 1s]", c.Display.Tick))
	}
	if c.Display.Resync <= 0 || c.Display.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("display: resync and probe_timeout must be positive"))
	}
	if c.Display.OffsetRefresh < 0 {
		errs = append(errs, errors.New("display.offset_refresh: must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Level returns the parsed log level, falling back to info
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
