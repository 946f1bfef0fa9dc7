// Package config loads the service configuration from a YAML file, a .env file
// and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vuorinet/spot/pkg/entsoe"
	"github.com/vuorinet/spot/pkg/logging"
	"github.com/vuorinet/spot/pkg/notify"
	"github.com/vuorinet/spot/pkg/ratelimit"
)

// Config holds all application configuration.
type Config struct {
	Upstream struct {
		BaseURL           string        `yaml:"base_url"`
		Token             string        `yaml:"token"`
		Area              string        `yaml:"area"`
		Market            string        `yaml:"market"`
		Timeout           time.Duration `yaml:"timeout"`
		RateLimitDelay    time.Duration `yaml:"rate_limit_delay"`
		// RequestsPerMinute paces upstream requests. Zero selects
		// ratelimit.DefaultRequestsPerMinute; a negative value disables pacing.
		RequestsPerMinute int           `yaml:"requests_per_minute"`
		PreferQuarterHour bool          `yaml:"prefer_quarter_hour"`
	} `yaml:"upstream"`
	Timezone string `yaml:"timezone"`
	Server   struct {
		Addr      string        `yaml:"addr"`
		KeepAlive time.Duration `yaml:"keep_alive"`
	} `yaml:"server"`
	Scheduler struct {
		BootstrapInitialDelay time.Duration `yaml:"bootstrap_initial_delay"`
		BootstrapMaxDelay     time.Duration `yaml:"bootstrap_max_delay"`
		MidnightLead          time.Duration `yaml:"midnight_lead"`
	} `yaml:"scheduler"`
	Notify struct {
		Buffer int `yaml:"buffer"`
	} `yaml:"notify"`
	Redis struct {
		URL     string `yaml:"url"`
		Channel string `yaml:"channel"`
	} `yaml:"redis"`
	Log struct {
		Level  logging.LogLevel `yaml:"level"`
		Pretty bool             `yaml:"pretty"`
	} `yaml:"log"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and fills in defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() error {
	if v := os.Getenv("ENTSOE_API_TOKEN"); v != "" {
		c.Upstream.Token = v
	}
	if v := os.Getenv("ENTSOE_BASE_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("SPOT_AREA"); v != "" {
		c.Upstream.Area = v
	}
	if v := os.Getenv("SPOT_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("SPOT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = logging.LogLevel(v)
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		c.Log.Pretty = pretty
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("SPOT_REQUESTS_PER_MINUTE"); v != "" {
		rpm, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SPOT_REQUESTS_PER_MINUTE: %w", err)
		}
		c.Upstream.RequestsPerMinute = rpm
	}
	if v := os.Getenv("SPOT_PREFER_QUARTER_HOUR"); v != "" {
		prefer, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SPOT_PREFER_QUARTER_HOUR: %w", err)
		}
		c.Upstream.PreferQuarterHour = prefer
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = entsoe.DefaultBaseURL
	}
	if c.Upstream.Area == "" {
		c.Upstream.Area = entsoe.DefaultArea
	}
	if c.Upstream.Market == "" {
		c.Upstream.Market = entsoe.DefaultMarket
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 30 * time.Second
	}
	if c.Upstream.RateLimitDelay == 0 {
		c.Upstream.RateLimitDelay = time.Second
	}
	if c.Upstream.RequestsPerMinute == 0 {
		c.Upstream.RequestsPerMinute = ratelimit.DefaultRequestsPerMinute
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Helsinki"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.KeepAlive == 0 {
		c.Server.KeepAlive = 30 * time.Second
	}
	if c.Scheduler.BootstrapInitialDelay == 0 {
		c.Scheduler.BootstrapInitialDelay = 10 * time.Second
	}
	if c.Scheduler.BootstrapMaxDelay == 0 {
		c.Scheduler.BootstrapMaxDelay = 300 * time.Second
	}
	if c.Scheduler.MidnightLead == 0 {
		c.Scheduler.MidnightLead = 30 * time.Second
	}
	if c.Notify.Buffer == 0 {
		c.Notify.Buffer = notify.DefaultBuffer
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = notify.DefaultRedisChannel
	}
	if c.Log.Level == "" {
		c.Log.Level = logging.LevelInfo
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Upstream.Token == "" {
		return fmt.Errorf("upstream.token is required (or ENTSOE_API_TOKEN)")
	}
	if c.Upstream.Area == "" {
		return fmt.Errorf("upstream.area is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Notify.Buffer < 0 {
		return fmt.Errorf("notify.buffer must not be negative")
	}
	if !c.Log.Level.Valid() {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// Location loads the configured market time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
