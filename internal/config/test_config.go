package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	def := defaultConfig()
	return &Config{
		API: APIConfig{
			BaseURL:      "http://127.0.0.1/api",
			UserAgent:    "planr-test/1.0",
			HTTPTimeout:  5 * time.Second,
			MaxBodyBytes: 1 << 20,
			AllowPrivate: true,
		},
		Crawl: CrawlConfig{
			MaxConcurrency:     4,
			FetchTimeout:       2 * time.Second,
			EstimateProbeLimit: 100,
			EstimateTotalCap:   200,
			CacheTTL:           time.Hour,
			CatalogKey:         "catalog",
		},
		Catalog: def.Catalog,
		Database: DatabaseConfig{
			Path:    ":memory:",
			Timeout: 1 * time.Second,
		},
		Log:      LogConfig{Level: "off"},
		Schedule: def.Schedule,
		UI:       def.UI,
		Keys:     def.Keys,
	}
}
