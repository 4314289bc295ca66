// Package config provides configuration loading and validation for the crawler.
//
// Configuration is layered: built-in defaults, then an optional YAML file
// (CRAWLER_CONFIG_FILE), then environment variable overrides. Validation runs
// last; an invalid configuration never escapes Load.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// APIKeyPrefix is the required prefix for Riot development and production keys.
const APIKeyPrefix = "RGAPI-"

// RateLimitConfig holds the client-side rate limiting parameters.
// The per-second and per-two-minute values seed the application buckets;
// the upstream's response headers re-tune them at runtime.
type RateLimitConfig struct {
	ApplicationLimitPerSecond     int `yaml:"application_limit_per_second"`
	ApplicationLimitPerTwoMinutes int `yaml:"application_limit_per_two_minutes"`
	MaxConcurrentRequests         int `yaml:"max_concurrent_requests"`
	RetryDelayMs                  int `yaml:"retry_delay_ms"`
	MaxRetries                    int `yaml:"max_retries"`
}

// CrawlerConfig holds crawl loop tuning.
type CrawlerConfig struct {
	QueueSizeLimit             int `yaml:"queue_size_limit"`
	BatchSize                  int `yaml:"batch_size"`
	HealthCheckIntervalSeconds int `yaml:"health_check_interval_seconds"`
	StateSaveIntervalSeconds   int `yaml:"state_save_interval_seconds"`
	SeedLeagueLimit            int `yaml:"seed_league_limit"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full crawler configuration.
type Config struct {
	RiotAPIKey  string          `yaml:"riot_api_key"`
	DatabaseURL string          `yaml:"database_url"`
	MetricsAddr string          `yaml:"metrics_addr"`
	Regions     []string        `yaml:"regions"`
	RateLimits  RateLimitConfig `yaml:"rate_limits"`
	Crawler     CrawlerConfig   `yaml:"crawler"`
	Logging     LoggingConfig   `yaml:"logging"`
}

// ValidRegions lists the platform routing values the crawler accepts.
func ValidRegions() []string {
	return []string{"na1", "euw1", "eun1", "kr", "br1", "jp1", "ru", "oc1", "tr1", "la1", "la2"}
}

// Default returns the built-in configuration before file/env layering.
func Default() Config {
	return Config{
		DatabaseURL: "./data/lol_crawler.db",
		Regions:     []string{"na1", "euw1", "kr", "eun1"},
		RateLimits: RateLimitConfig{
			ApplicationLimitPerSecond:     20,
			ApplicationLimitPerTwoMinutes: 100,
			MaxConcurrentRequests:         10,
			RetryDelayMs:                  1000,
			MaxRetries:                    3,
		},
		Crawler: CrawlerConfig{
			QueueSizeLimit:             100000,
			BatchSize:                  100,
			HealthCheckIntervalSeconds: 60,
			StateSaveIntervalSeconds:   300,
			SeedLeagueLimit:            50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CRAWLER_CONFIG_FILE, and environment variables, then validates it.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CRAWLER_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("RIOT_API_KEY"); v != "" {
		c.RiotAPIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("REGIONS"); v != "" {
		regions := make([]string, 0, 4)
		for _, r := range strings.Split(v, ",") {
			regions = append(regions, strings.TrimSpace(r))
		}
		c.Regions = regions
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	envInt("APPLICATION_LIMIT_PER_SECOND", &c.RateLimits.ApplicationLimitPerSecond)
	envInt("APPLICATION_LIMIT_PER_TWO_MINUTES", &c.RateLimits.ApplicationLimitPerTwoMinutes)
	envInt("MAX_CONCURRENT_REQUESTS", &c.RateLimits.MaxConcurrentRequests)
	envInt("RETRY_DELAY_MS", &c.RateLimits.RetryDelayMs)
	envInt("MAX_RETRIES", &c.RateLimits.MaxRetries)
	envInt("QUEUE_SIZE_LIMIT", &c.Crawler.QueueSizeLimit)
	envInt("BATCH_SIZE", &c.Crawler.BatchSize)
	envInt("HEALTH_CHECK_INTERVAL_SECONDS", &c.Crawler.HealthCheckIntervalSeconds)
	envInt("STATE_SAVE_INTERVAL_SECONDS", &c.Crawler.StateSaveIntervalSeconds)
	envInt("SEED_LEAGUE_LIMIT", &c.Crawler.SeedLeagueLimit)
}

// envInt overwrites dst with the parsed value of the named variable.
// Unset or unparseable values leave dst untouched.
func envInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

// Validate checks the configuration invariants. It is called by Load but is
// exported so tests and embedders can validate hand-built configs.
func (c *Config) Validate() error {
	if c.RiotAPIKey == "" {
		return fmt.Errorf("RIOT_API_KEY is required")
	}
	if !strings.HasPrefix(c.RiotAPIKey, APIKeyPrefix) {
		return fmt.Errorf("RIOT_API_KEY must start with %q", APIKeyPrefix)
	}

	if len(c.Regions) == 0 {
		return fmt.Errorf("at least one region is required")
	}
	valid := ValidRegions()
	for _, region := range c.Regions {
		found := false
		for _, v := range valid {
			if region == v {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("invalid region %q, valid regions: %s", region, strings.Join(valid, ", "))
		}
	}

	if c.RateLimits.ApplicationLimitPerSecond <= 0 {
		return fmt.Errorf("APPLICATION_LIMIT_PER_SECOND must be greater than 0")
	}
	if c.RateLimits.ApplicationLimitPerTwoMinutes <= 0 {
		return fmt.Errorf("APPLICATION_LIMIT_PER_TWO_MINUTES must be greater than 0")
	}
	if c.RateLimits.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_REQUESTS must be greater than 0")
	}
	if c.Crawler.QueueSizeLimit <= 0 {
		return fmt.Errorf("QUEUE_SIZE_LIMIT must be greater than 0")
	}
	if c.Crawler.SeedLeagueLimit <= 0 {
		return fmt.Errorf("SEED_LEAGUE_LIMIT must be greater than 0")
	}
	return nil
}

// BaseURLForRegion returns the platform host used for summoner and league
// endpoints. Unknown regions fall through to the generic host pattern.
func (c *Config) BaseURLForRegion(region string) string {
	return fmt.Sprintf("https://%s.api.riotgames.com", region)
}

// RegionalBaseURLForRegion returns the continental host used for match
// endpoints. Unknown regions route to americas.
func (c *Config) RegionalBaseURLForRegion(region string) string {
	switch region {
	case "na1", "br1", "la1", "la2":
		return "https://americas.api.riotgames.com"
	case "euw1", "eun1", "tr1", "ru":
		return "https://europe.api.riotgames.com"
	case "kr", "jp1":
		return "https://asia.api.riotgames.com"
	case "oc1":
		return "https://sea.api.riotgames.com"
	default:
		return "https://americas.api.riotgames.com"
	}
}
