package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Timeout != 1*time.Second {
		t.Errorf("Database.Timeout = %v, want 1s", cfg.Database.Timeout)
	}

	if cfg.Crawl.MaxConcurrency != 16 {
		t.Errorf("Crawl.MaxConcurrency = %d, want 16", cfg.Crawl.MaxConcurrency)
	}
	if cfg.Crawl.FetchTimeout != 20*time.Second {
		t.Errorf("Crawl.FetchTimeout = %v, want 20s", cfg.Crawl.FetchTimeout)
	}
	if cfg.Crawl.EstimateProbeLimit != 1000 || cfg.Crawl.EstimateTotalCap != 2000 {
		t.Errorf("estimate caps = %d/%d, want 1000/2000", cfg.Crawl.EstimateProbeLimit, cfg.Crawl.EstimateTotalCap)
	}
	if cfg.Crawl.CacheTTL != 30*24*time.Hour {
		t.Errorf("Crawl.CacheTTL = %v, want 720h", cfg.Crawl.CacheTTL)
	}

	if cfg.Catalog.SectionsTTL != 5*time.Minute {
		t.Errorf("Catalog.SectionsTTL = %v, want 5m", cfg.Catalog.SectionsTTL)
	}
	if cfg.Catalog.ProgramsTTL != time.Hour {
		t.Errorf("Catalog.ProgramsTTL = %v, want 1h", cfg.Catalog.ProgramsTTL)
	}

	if cfg.API.UserAgent == "" {
		t.Error("API.UserAgent should not be empty")
	}

	if cfg.Keys.Bindings.Quit != "q" {
		t.Errorf("Keys.Bindings.Quit = %s, want 'q'", cfg.Keys.Bindings.Quit)
	}
}

func TestLoad_DefaultConfig(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if cfg.Catalog.DetailTTL != 30*time.Minute {
		t.Errorf("Catalog.DetailTTL = %v, want 30m", cfg.Catalog.DetailTTL)
	}
	if cfg.Crawl.CatalogKey != "catalog" {
		t.Errorf("Crawl.CatalogKey = %s, want 'catalog'", cfg.Crawl.CatalogKey)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "test-config.toml")
	configContent := `
[api]
base_url = "https://catalog.uni.edu/api"
user_agent = "test-agent"

[crawl]
seeds = ["programs.json", "https://catalog.uni.edu/api/extra.json"]
max_concurrency = 3
fetch_timeout = "5s"

[database]
path = "/tmp/test.db"
timeout = "10s"

[ui.colors]
primary = "#FF0000"
`

	if writeErr := os.WriteFile(configPath, []byte(configContent), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://catalog.uni.edu/api" {
		t.Errorf("API.BaseURL = %s", cfg.API.BaseURL)
	}
	if cfg.API.UserAgent != "test-agent" {
		t.Errorf("API.UserAgent = %s, want 'test-agent'", cfg.API.UserAgent)
	}
	if cfg.Crawl.MaxConcurrency != 3 {
		t.Errorf("Crawl.MaxConcurrency = %d, want 3", cfg.Crawl.MaxConcurrency)
	}
	if cfg.Crawl.FetchTimeout != 5*time.Second {
		t.Errorf("Crawl.FetchTimeout = %v, want 5s", cfg.Crawl.FetchTimeout)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %s, want '/tmp/test.db'", cfg.Database.Path)
	}
	if cfg.Database.Timeout != 10*time.Second {
		t.Errorf("Database.Timeout = %v, want 10s", cfg.Database.Timeout)
	}
	if cfg.UI.Colors.Primary != "#FF0000" {
		t.Errorf("UI.Colors.Primary = %s, want '#FF0000'", cfg.UI.Colors.Primary)
	}
	if cfg.UI.Colors.Secondary != "#4ECDC4" {
		t.Errorf("UI.Colors.Secondary = %s, want default '#4ECDC4'", cfg.UI.Colors.Secondary)
	}

	seeds, err := cfg.ResolveSeeds()
	if err != nil {
		t.Fatalf("ResolveSeeds() error = %v", err)
	}
	want := []string{
		"https://catalog.uni.edu/api/programs.json",
		"https://catalog.uni.edu/api/extra.json",
	}
	if strings.Join(seeds, ",") != strings.Join(want, ",") {
		t.Errorf("ResolveSeeds() = %v, want %v", seeds, want)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PLANR_API_BASE_URL", "https://env.uni.edu/api")
	t.Setenv("PLANR_CATALOG_SECTIONS_TTL", "90s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "https://env.uni.edu/api" {
		t.Errorf("API.BaseURL = %s, want env override", cfg.API.BaseURL)
	}
	if cfg.Catalog.SectionsTTL != 90*time.Second {
		t.Errorf("Catalog.SectionsTTL = %v, want 90s", cfg.Catalog.SectionsTTL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "trailing slash normalized", mutate: func(c *Config) { c.API.BaseURL = "https://uni.edu/api/" }},
		{name: "empty base", mutate: func(c *Config) { c.API.BaseURL = "" }, wantErr: "api.base_url"},
		{name: "private host blocked", mutate: func(c *Config) {
			c.API.AllowPrivate = false
			c.API.BaseURL = "http://localhost:8080/api"
		}, wantErr: "localhost"},
		{name: "bad relay", mutate: func(c *Config) { c.API.RelayURL = "ftp://relay" }, wantErr: "api.relay_url"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Crawl.MaxConcurrency = 0 }, wantErr: "max_concurrency"},
		{name: "empty catalog key", mutate: func(c *Config) { c.Crawl.CatalogKey = "" }, wantErr: "catalog_key"},
		{name: "bad term start", mutate: func(c *Config) { c.Schedule.TermStart = "03/02/2026" }, wantErr: "term_start"},
		{name: "good term start", mutate: func(c *Config) { c.Schedule.TermStart = "2026-03-02" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				if strings.HasSuffix(cfg.API.BaseURL, "/") {
					t.Errorf("BaseURL %q should not end with a slash", cfg.API.BaseURL)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := defaultConfig()
	cfg.Database.Path = "/test/path.db"
	cfg.API.UserAgent = "test-save-agent"
	cfg.Crawl.Seeds = []string{"programs.json"}
	cfg.Catalog.CoursesTTL = 42 * time.Minute
	cfg.Keys.Modifier = "alt"

	savePath := filepath.Join(tmpDir, "nested", "saved-config.toml")
	if saveErr := Save(cfg, savePath); saveErr != nil {
		t.Fatalf("Save() error = %v", saveErr)
	}

	if _, statErr := os.Stat(savePath); os.IsNotExist(statErr) {
		t.Fatal("Save() did not create config file")
	}

	loaded, err := Load(savePath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.Database.Path != cfg.Database.Path {
		t.Errorf("Loaded Database.Path = %s, want %s", loaded.Database.Path, cfg.Database.Path)
	}
	if loaded.API.UserAgent != cfg.API.UserAgent {
		t.Errorf("Loaded API.UserAgent = %s, want %s", loaded.API.UserAgent, cfg.API.UserAgent)
	}
	if loaded.Catalog.CoursesTTL != 42*time.Minute {
		t.Errorf("Loaded Catalog.CoursesTTL = %v, want 42m", loaded.Catalog.CoursesTTL)
	}
	if len(loaded.Crawl.Seeds) != 1 || loaded.Crawl.Seeds[0] != "programs.json" {
		t.Errorf("Loaded Crawl.Seeds = %v", loaded.Crawl.Seeds)
	}
	if loaded.Keys.Modifier != cfg.Keys.Modifier {
		t.Errorf("Loaded Keys.Modifier = %s, want %s", loaded.Keys.Modifier, cfg.Keys.Modifier)
	}
}

func TestGenerateDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "generated.toml")
	if genErr := GenerateDefaultConfig(configPath); genErr != nil {
		t.Fatalf("GenerateDefaultConfig() error = %v", genErr)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}

	if cfg.Keys.Modifier != "ctrl" {
		t.Errorf("Generated config has Keys.Modifier = %s, want 'ctrl'", cfg.Keys.Modifier)
	}
	if cfg.Crawl.FetchTimeout != 20*time.Second {
		t.Errorf("Generated config has Crawl.FetchTimeout = %v, want 20s", cfg.Crawl.FetchTimeout)
	}
}

func TestRender(t *testing.T) {
	out, err := Render(defaultConfig())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	text := string(out)
	for _, want := range []string{
		"[api]",
		"[crawl]",
		"[catalog]",
		"[ui.colors]",
		"sections_ttl = ",
		"5m0s",
		"max_concurrency = 16",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Render() output missing %q:\n%s", want, text)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := expandPath("~/x/planr.db"); got != filepath.Join(home, "x", "planr.db") {
		t.Errorf("expandPath(~/x/planr.db) = %s", got)
	}
	if got := expandPath(""); got != "" {
		t.Errorf("expandPath(\"\") = %q, want empty", got)
	}
	if got := expandPath("rel.db"); !filepath.IsAbs(got) {
		t.Errorf("expandPath(rel.db) = %s, want absolute", got)
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()

	if cfg == nil {
		t.Fatal("TestConfig() returned nil")
	}
	if cfg.Database.Path != ":memory:" {
		t.Errorf("TestConfig Database.Path = %s, want ':memory:'", cfg.Database.Path)
	}
	if cfg.API.UserAgent != "planr-test/1.0" {
		t.Errorf("TestConfig API.UserAgent = %s, want 'planr-test/1.0'", cfg.API.UserAgent)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("TestConfig should validate: %v", err)
	}
}
