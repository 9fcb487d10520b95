package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Environment variables that override the config file.
const (
	EnvAPIURL  = "G2BDASH_API_URL"
	EnvTimeout = "G2BDASH_TIMEOUT"
)

type Config struct {
	API       API       `yaml:"api"`
	Dashboard Dashboard `yaml:"dashboard"`
	Server    Server    `yaml:"server"`
	Backend   Backend   `yaml:"backend"`
	Sources   Sources   `yaml:"sources"`
	Output    Output    `yaml:"output"`
	Logging   Logging   `yaml:"logging"`
}

// API describes the procurement backend the client talks to.
type API struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	PageSize       int    `yaml:"page_size"`
	Paths          Paths  `yaml:"paths"`
}

type Paths struct {
	BidNotices   string `yaml:"bid_notices"`
	Awards       string `yaml:"awards"`
	OrderPlans   string `yaml:"order_plans"`
	Summary      string `yaml:"summary"`
	Daily        string `yaml:"daily"`
	ByType       string `yaml:"by_type"`
	TopAgencies  string `yaml:"top_agencies"`
	TopCompanies string `yaml:"top_companies"`
}

type Dashboard struct {
	DailyDays int `yaml:"daily_days"`
	TopN      int `yaml:"top_n"`
}

type Server struct {
	Port int `yaml:"port"`
}

// Backend configures the local REST backend served by `g2bdash backend`.
type Backend struct {
	Port         int      `yaml:"port"`
	AllowOrigins []string `yaml:"allow_origins"`
	Schedule     Schedule `yaml:"schedule"`
}

// Schedule re-runs the ingest pipeline while the backend is up.
type Schedule struct {
	Enabled         bool `yaml:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes"`
	DaysBack        int  `yaml:"days_back"`
}

// Interval returns the time between scheduled runs.
func (s Schedule) Interval() time.Duration {
	if s.IntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
}

type Sources struct {
	Feeds   []Feed  `yaml:"feeds"`
	OpenAPI OpenAPI `yaml:"openapi"`
}

// OpenAPI is the public data portal's procurement API. The service key is
// read from the environment variable named by APIKeyEnv.
type OpenAPI struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// Feed is a bid notice RSS/Atom feed. NoticeType, when set, is assigned
// to every item of the feed.
type Feed struct {
	URL        string `yaml:"url"`
	Name       string `yaml:"name"`
	NoticeType string `yaml:"notice_type"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for g2bdash.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "g2bdash")
}

// DataDir returns the XDG data directory for g2bdash.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "g2bdash")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/g2bdash/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'g2bdash init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file, then applies a .env file from
// the working directory (if any) and environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}

	// A missing .env is normal; variables already set win over it.
	_ = godotenv.Load()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the embedded default configuration with environment
// overrides applied, for commands that run without a config file.
func Default() (*Config, error) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		return nil, err
	}
	_ = godotenv.Load()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		API: API{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 30,
			PageSize:       20,
			Paths: Paths{
				BidNotices:   "/api/biddings",
				Awards:       "/api/awards",
				OrderPlans:   "/api/orderplans",
				Summary:      "/api/statistics/summary",
				Daily:        "/api/statistics/daily",
				ByType:       "/api/statistics/by-type",
				TopAgencies:  "/api/statistics/top-agencies",
				TopCompanies: "/api/awards/statistics/top-companies",
			},
		},
		Sources: Sources{
			OpenAPI: OpenAPI{
				Enabled:   true,
				BaseURL:   "https://apis.data.go.kr/1230000",
				APIKeyEnv: "G2B_API_KEY",
			},
		},
		Dashboard: Dashboard{DailyDays: 30, TopN: 5},
		Server:    Server{Port: 8080},
		Backend: Backend{
			Port:     8000,
			Schedule: Schedule{Enabled: true, IntervalMinutes: 60, DaysBack: 2},
		},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.API.PageSize <= 0 || cfg.API.PageSize > 100 {
		return nil, fmt.Errorf("api.page_size must be between 1 and 100, got %d", cfg.API.PageSize)
	}
	if cfg.Backend.Schedule.IntervalMinutes < 1 {
		return nil, fmt.Errorf("backend.schedule.interval_minutes must be at least 1, got %d", cfg.Backend.Schedule.IntervalMinutes)
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIURL); ok && strings.TrimSpace(v) != "" {
		c.API.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvTimeout); ok && strings.TrimSpace(v) != "" {
		secs, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || secs <= 0 {
			return fmt.Errorf("%s must be a positive number of seconds, got %q", EnvTimeout, v)
		}
		c.API.TimeoutSeconds = secs
	}
	return nil
}

// Timeout returns the request timeout for the API client.
func (a API) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DBPath returns the backend SQLite database path.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "g2bdash.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
