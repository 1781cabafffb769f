package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pders01/planr/internal/config"
	"github.com/pders01/planr/internal/debuglog"
	"github.com/pders01/planr/internal/planner"
	"github.com/pders01/planr/internal/search"
	"github.com/pders01/planr/internal/storage"
	"github.com/pders01/planr/internal/tui"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath string
	dbPath     string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "planr",
	Short:         "Crawl a course catalog and plan a clash-free class schedule",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(tui.Banner(Version))
		fmt.Printf("planr %s\n", Version)
		fmt.Println("Course schedule planner")
		fmt.Println("github.com/pders01/planr")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to database file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: off, error, warn, info, debug (overrides config)")
	rootCmd.Flags().StringVar(&tuiProgram, "program", "", "Only show the courses of this program")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is everything a command needs, opened from the config.
type env struct {
	cfg   *config.Config
	store *storage.Store
	index search.CourseIndex
	mgr   *planner.Manager
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		// Logging is optional; keep going without it.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	store, err := storage.NewStoreWithTimeout(cfg.Database.Path, cfg.Database.Timeout)
	if err != nil {
		return nil, err
	}

	index := search.Open(cfg.Database.SearchIndex)
	debuglog.Infof("planr %s starting, db=%s index=%T", Version, cfg.Database.Path, index)

	return &env{
		cfg:   cfg,
		store: store,
		index: index,
		mgr:   planner.NewManager(store, cfg, index),
	}, nil
}

func (e *env) Close() {
	if err := e.index.Close(); err != nil {
		debuglog.Warnf("closing search index: %v", err)
	}
	if err := e.store.Close(); err != nil {
		debuglog.Warnf("closing database: %v", err)
	}
	_ = debuglog.Close()
}

// withEnv adapts a command body that needs an opened env.
func withEnv(fn func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd, args, e)
	}
}
