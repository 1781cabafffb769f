package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/pders01/planr/internal/validation"
)

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	UI       UIConfig       `mapstructure:"ui"`
	Keys     KeyConfig      `mapstructure:"keys"`
}

type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	RelayURL     string        `mapstructure:"relay_url"`
	UserAgent    string        `mapstructure:"user_agent"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	AllowPrivate bool          `mapstructure:"allow_private"`
}

type CrawlConfig struct {
	// Seeds overrides the default catalog roots. Relative entries resolve
	// against api.base_url.
	Seeds              []string      `mapstructure:"seeds"`
	MaxConcurrency     int           `mapstructure:"max_concurrency"`
	FetchTimeout       time.Duration `mapstructure:"fetch_timeout"`
	EstimateProbeLimit int           `mapstructure:"estimate_probe_limit"`
	EstimateTotalCap   int           `mapstructure:"estimate_total_cap"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	CatalogKey         string        `mapstructure:"catalog_key"`
}

// CatalogConfig holds the local-cache TTL per resource family.
type CatalogConfig struct {
	ProgramsTTL time.Duration `mapstructure:"programs_ttl"`
	CoursesTTL  time.Duration `mapstructure:"courses_ttl"`
	DetailTTL   time.Duration `mapstructure:"detail_ttl"`
	SectionsTTL time.Duration `mapstructure:"sections_ttl"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SearchIndex string        `mapstructure:"search_index"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type ScheduleConfig struct {
	// TermStart is the first day of lectures, YYYY-MM-DD.
	TermStart string `mapstructure:"term_start"`
	Weeks     int    `mapstructure:"weeks"`
	Selection string `mapstructure:"selection"`
	Calendar  string `mapstructure:"calendar"`
}

type UIConfig struct {
	Colors UIColors     `mapstructure:"colors"`
	Detail DetailConfig `mapstructure:"detail"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type DetailConfig struct {
	WordWrapMaxWidth int `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth int `mapstructure:"word_wrap_min_width"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

// KeyBindings name the action keys. Search, Grid and Refresh are pressed
// together with the modifier.
type KeyBindings struct {
	Quit    string `mapstructure:"quit"`
	Search  string `mapstructure:"search"`
	Toggle  string `mapstructure:"toggle"`
	Grid    string `mapstructure:"grid"`
	Detail  string `mapstructure:"detail"`
	Refresh string `mapstructure:"refresh"`
	Back    string `mapstructure:"back"`
	Help    string `mapstructure:"help"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".planr")

	return &Config{
		API: APIConfig{
			BaseURL:      "http://localhost:8080/api",
			UserAgent:    "planr/1.0 (https://github.com/pders01/planr)",
			HTTPTimeout:  30 * time.Second,
			MaxBodyBytes: 16 << 20,
			AllowPrivate: true,
		},
		Crawl: CrawlConfig{
			Seeds:              []string{},
			MaxConcurrency:     16,
			FetchTimeout:       20 * time.Second,
			EstimateProbeLimit: 1000,
			EstimateTotalCap:   2000,
			CacheTTL:           30 * 24 * time.Hour,
			CatalogKey:         "catalog",
		},
		Catalog: CatalogConfig{
			ProgramsTTL: 60 * time.Minute,
			CoursesTTL:  60 * time.Minute,
			DetailTTL:   30 * time.Minute,
			SectionsTTL: 5 * time.Minute,
		},
		Database: DatabaseConfig{
			Path:        filepath.Join(dataDir, "planr.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(dataDir, "index.bleve"),
		},
		Log: LogConfig{
			Level: "warn",
			File:  filepath.Join(dataDir, "planr.log"),
		},
		Schedule: ScheduleConfig{
			Weeks:     15,
			Selection: "default",
			Calendar:  "Class schedule",
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#FF6B6B",
				Secondary:  "#4ECDC4",
				Accent:     "#95E1D3",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			Detail: DetailConfig{
				WordWrapMaxWidth: 120,
				WordWrapMinWidth: 40,
			},
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:    "q",
				Search:  "s",
				Toggle:  " ",
				Grid:    "g",
				Detail:  "d",
				Refresh: "r",
				Back:    "esc",
				Help:    "?",
			},
		},
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	for key, val := range flatten("", toMap(defaultConfig())) {
		v.SetDefault(key, val)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "planr")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PLANR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	return &config, nil
}

// Validate normalizes the API URLs and rejects values the crawler cannot
// work with.
func (c *Config) Validate() error {
	v := validation.NewAPIURLValidator()
	if c.API.AllowPrivate {
		v = validation.NewPermissiveAPIURLValidator()
	}

	base, err := v.ValidateAndNormalize(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	c.API.BaseURL = base

	if c.API.RelayURL != "" {
		relay, err := v.ValidateAndNormalize(c.API.RelayURL)
		if err != nil {
			return fmt.Errorf("api.relay_url: %w", err)
		}
		c.API.RelayURL = relay
	}

	if c.Crawl.MaxConcurrency < 1 {
		return fmt.Errorf("crawl.max_concurrency must be at least 1, got %d", c.Crawl.MaxConcurrency)
	}
	if c.Crawl.CatalogKey == "" {
		return fmt.Errorf("crawl.catalog_key cannot be empty")
	}
	if c.Schedule.TermStart != "" {
		if _, err := time.Parse(time.DateOnly, c.Schedule.TermStart); err != nil {
			return fmt.Errorf("schedule.term_start: %w", err)
		}
	}
	return nil
}

// ResolveSeeds returns crawl.seeds as absolute URLs, or nil when none are
// configured.
func (c *Config) ResolveSeeds() ([]string, error) {
	if len(c.Crawl.Seeds) == 0 {
		return nil, nil
	}
	base := strings.TrimRight(c.API.BaseURL, "/") + "/"
	seeds := make([]string, 0, len(c.Crawl.Seeds))
	for _, s := range c.Crawl.Seeds {
		abs, err := validation.Resolve(base, s)
		if err != nil {
			return nil, fmt.Errorf("crawl seed %q: %w", s, err)
		}
		seeds = append(seeds, abs)
	}
	return seeds, nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
	cfg.Log.File = expandPath(cfg.Log.File)
}

// toMap lays the config out the way it appears in the TOML file, with
// durations as strings.
func toMap(cfg *Config) map[string]any {
	return map[string]any{
		"api": map[string]any{
			"base_url":       cfg.API.BaseURL,
			"relay_url":      cfg.API.RelayURL,
			"user_agent":     cfg.API.UserAgent,
			"http_timeout":   cfg.API.HTTPTimeout.String(),
			"max_body_bytes": cfg.API.MaxBodyBytes,
			"allow_private":  cfg.API.AllowPrivate,
		},
		"crawl": map[string]any{
			"seeds":                cfg.Crawl.Seeds,
			"max_concurrency":      cfg.Crawl.MaxConcurrency,
			"fetch_timeout":        cfg.Crawl.FetchTimeout.String(),
			"estimate_probe_limit": cfg.Crawl.EstimateProbeLimit,
			"estimate_total_cap":   cfg.Crawl.EstimateTotalCap,
			"cache_ttl":            cfg.Crawl.CacheTTL.String(),
			"catalog_key":          cfg.Crawl.CatalogKey,
		},
		"catalog": map[string]any{
			"programs_ttl": cfg.Catalog.ProgramsTTL.String(),
			"courses_ttl":  cfg.Catalog.CoursesTTL.String(),
			"detail_ttl":   cfg.Catalog.DetailTTL.String(),
			"sections_ttl": cfg.Catalog.SectionsTTL.String(),
		},
		"database": map[string]any{
			"path":         cfg.Database.Path,
			"timeout":      cfg.Database.Timeout.String(),
			"search_index": cfg.Database.SearchIndex,
		},
		"log": map[string]any{
			"level": cfg.Log.Level,
			"file":  cfg.Log.File,
		},
		"schedule": map[string]any{
			"term_start": cfg.Schedule.TermStart,
			"weeks":      cfg.Schedule.Weeks,
			"selection":  cfg.Schedule.Selection,
			"calendar":   cfg.Schedule.Calendar,
		},
		"ui": map[string]any{
			"colors": map[string]any{
				"primary":    cfg.UI.Colors.Primary,
				"secondary":  cfg.UI.Colors.Secondary,
				"accent":     cfg.UI.Colors.Accent,
				"background": cfg.UI.Colors.Background,
				"surface":    cfg.UI.Colors.Surface,
				"text":       cfg.UI.Colors.Text,
				"muted":      cfg.UI.Colors.Muted,
				"error":      cfg.UI.Colors.Error,
				"success":    cfg.UI.Colors.Success,
			},
			"detail": map[string]any{
				"word_wrap_max_width": cfg.UI.Detail.WordWrapMaxWidth,
				"word_wrap_min_width": cfg.UI.Detail.WordWrapMinWidth,
			},
		},
		"keys": map[string]any{
			"modifier": cfg.Keys.Modifier,
			"bindings": map[string]any{
				"quit":    cfg.Keys.Bindings.Quit,
				"search":  cfg.Keys.Bindings.Search,
				"toggle":  cfg.Keys.Bindings.Toggle,
				"grid":    cfg.Keys.Bindings.Grid,
				"detail":  cfg.Keys.Bindings.Detail,
				"refresh": cfg.Keys.Bindings.Refresh,
				"back":    cfg.Keys.Bindings.Back,
				"help":    cfg.Keys.Bindings.Help,
			},
		},
	}
}

// flatten turns nested sections into dotted viper keys so every leaf can
// be overridden from the environment.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = v
	}
	return out
}

func Save(config *Config, path string) error {
	v := viper.New()

	for section, values := range toMap(config) {
		v.Set(section, values)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

// Render returns the effective configuration as TOML.
func Render(config *Config) ([]byte, error) {
	out, err := toml.Marshal(toMap(config))
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return out, nil
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
