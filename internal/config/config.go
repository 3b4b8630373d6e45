package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tourlab/internal/opt"
	"tourlab/internal/webhooks"
)

// Config is the service configuration. Values come from defaults, then an
// optional YAML file, then environment variables.
type Config struct {
	Port        int    `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	SQLitePath  string `yaml:"sqlite_path"`

	RateRPS   float64 `yaml:"rate_rps"`
	RateBurst int     `yaml:"rate_burst"`

	MaxConcurrentRuns   int `yaml:"max_concurrent_runs"`
	MaxPoints           int `yaml:"max_points"`
	MaxExhaustivePoints int `yaml:"max_exhaustive_points"`
	// RunHistory bounds how many finished runs stay queryable in memory.
	RunHistory int `yaml:"run_history"`

	Tick      time.Duration `yaml:"tick"`
	Heartbeat time.Duration `yaml:"heartbeat"`

	Annealing opt.AnnealConfig `yaml:"annealing"`
	Log       Log              `yaml:"log"`

	// Webhooks are notified when a run finishes.
	Webhooks           []webhooks.Target `yaml:"webhooks"`
	WebhookMaxAttempts int               `yaml:"webhook_max_attempts"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Port:                8080,
		RateRPS:             5,
		RateBurst:           10,
		MaxConcurrentRuns:   8,
		MaxPoints:           5000,
		MaxExhaustivePoints: 11,
		RunHistory:          200,
		Tick:                opt.DefaultTick,
		Heartbeat:           15 * time.Second,
		Annealing:           opt.DefaultAnnealConfig(),
		Log:                 Log{Level: "info", Format: "text"},
		WebhookMaxAttempts:  10,
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = n
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := getenv("SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v := getenv("RATE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_RPS: %w", err)
		}
		c.RateRPS = f
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"RATE_BURST", &c.RateBurst},
		{"MAX_CONCURRENT_RUNS", &c.MaxConcurrentRuns},
		{"MAX_POINTS", &c.MaxPoints},
		{"MAX_EXHAUSTIVE_POINTS", &c.MaxExhaustivePoints},
		{"WEBHOOK_MAX_ATTEMPTS", &c.WebhookMaxAttempts},
	}
	for _, e := range ints {
		if v := getenv(e.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = n
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = strings.ToLower(v)
	}
	return nil
}

func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("port %d out of range", c.Port)
	case c.RateRPS <= 0:
		return errors.New("rate_rps must be > 0")
	case c.RateBurst <= 0:
		return errors.New("rate_burst must be > 0")
	case c.MaxConcurrentRuns <= 0:
		return errors.New("max_concurrent_runs must be > 0")
	case c.MaxPoints < 2:
		return errors.New("max_points must be >= 2")
	case c.MaxExhaustivePoints < 2 || c.MaxExhaustivePoints > opt.MaxExhaustivePoints:
		return fmt.Errorf("max_exhaustive_points must be in [2,%d]", opt.MaxExhaustivePoints)
	case c.RunHistory < 1:
		return errors.New("run_history must be >= 1")
	case c.Tick <= 0:
		return errors.New("tick must be > 0")
	case c.Heartbeat <= 0:
		return errors.New("heartbeat must be > 0")
	case c.WebhookMaxAttempts <= 0:
		return errors.New("webhook_max_attempts must be > 0")
	}
	for i, t := range c.Webhooks {
		u, err := url.Parse(t.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("webhooks[%d]: invalid url %q", i, t.URL)
		}
	}
	if err := c.Annealing.Validate(); err != nil {
		return fmt.Errorf("annealing: %w", err)
	}
	return nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string { return ":" + strconv.Itoa(c.Port) }
