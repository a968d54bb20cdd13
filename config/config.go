package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Scheduler SchedulerConfig
	Fetch     FetchConfig
	Browser   BrowserConfig
	DBPath    string
	LogLevel  string
	Sites     map[string]*SiteConfig
}

type ServerConfig struct {
	Addr string
}

type PostgresConfig struct {
	ConnString string
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type FetchConfig struct {
	Concurrency         int
	RoundDelayMS        int
	StaggerMS           int
	CooldownMS          int
	MaxRateLimitRetries int
}

type BrowserConfig struct {
	Headless bool
}

// SiteConfig describes one supported hotel site: which extraction
// selectors apply and how its search URLs are shaped.
type SiteConfig struct {
	ID             string            `yaml:"id"`
	Name           string            `yaml:"name"`
	BaseURL        string            `yaml:"base_url"`
	SearchPath     string            `yaml:"search_path"`
	PriceSelectors []string          `yaml:"price_selectors"`
	Headers        map[string]string `yaml:"headers"`
	RateLimitMS    int               `yaml:"rate_limit_ms"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr: getEnv("LISTEN_ADDR", "127.0.0.1:8487"),
		},
		Postgres: PostgresConfig{
			ConnString: os.Getenv("POSTGRES_URL"),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("REFRESH_CRON"),
		},
		Fetch: FetchConfig{
			Concurrency:         getEnvInt("FETCH_CONCURRENCY", 2),
			RoundDelayMS:        getEnvInt("FETCH_ROUND_DELAY_MS", 900),
			StaggerMS:           getEnvInt("FETCH_STAGGER_MS", 180),
			CooldownMS:          getEnvInt("FETCH_COOLDOWN_MS", 5000),
			MaxRateLimitRetries: getEnvInt("FETCH_MAX_RATELIMIT_RETRIES", 5),
		},
		Browser: BrowserConfig{
			Headless: os.Getenv("BROWSER_HEADLESS") != "false",
		},
		DBPath:   getEnv("DB_PATH", "staylens.db"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Sites:    make(map[string]*SiteConfig),
	}

	if interval := os.Getenv("REFRESH_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadSiteConfigs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadSiteConfigs() error {
	configDir := "config/sites"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var site SiteConfig
		if err := yaml.Unmarshal(data, &site); err != nil {
			return err
		}

		c.Sites[site.ID] = &site
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
