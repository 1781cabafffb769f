package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-outC
}

func TestVersionCommand(t *testing.T) {
	out := captureStdout(t, func() { versionCmd.Run(nil, nil) })

	// Version is "dev" unless set by the linker.
	assert.Contains(t, out, "planr dev")
	assert.Contains(t, out, "Course schedule planner")
	assert.Contains(t, out, "github.com/pders01/planr")
}

func TestGenerateConfigCommand(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	configFile := filepath.Join(tmpDir, ".config", "planr", "config.toml")

	out := captureStdout(t, func() { configGenCmd.Run(nil, nil) })

	assert.FileExists(t, configFile)
	assert.Contains(t, out, "Generated default configuration at:")
	assert.Contains(t, out, configFile)
}

func TestConfigLocation(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	old := configPath
	defer func() { configPath = old }()

	configPath = ""
	assert.Equal(t, defaultConfigFile(), configLocation())

	configPath = "/etc/planr.toml"
	assert.Equal(t, "/etc/planr.toml", configLocation())
}

func TestCommandsRegistered(t *testing.T) {
	for _, path := range [][]string{
		{"crawl"},
		{"programs"},
		{"courses"},
		{"course"},
		{"sections"},
		{"search"},
		{"schedule", "add"},
		{"schedule", "remove"},
		{"schedule", "show"},
		{"schedule", "conflicts"},
		{"schedule", "export"},
		{"cache", "info"},
		{"cache", "clear"},
		{"cache", "purge"},
		{"config", "generate"},
		{"config", "show"},
		{"tui"},
		{"version"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "2.0 KiB", humanBytes(2048))
	assert.Equal(t, "1.5 MiB", humanBytes(3<<19))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "…6789", truncate("0123456789", 5))
}

func TestConfigShowUsesOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	oldDB, oldCfg := dbPath, configPath
	defer func() { dbPath, configPath = oldDB, oldCfg }()
	dbPath = filepath.Join(dir, "planr.db")
	configPath = ""

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, dbPath, cfg.Database.Path)
}

func TestPrintTable(t *testing.T) {
	out := captureStdout(t, func() {
		printTable([]string{"Code", "Course"}, [][]string{{"MAT1", "Calculus"}, {"CS1", "Programming"}})
	})

	assert.Contains(t, out, "Code")
	assert.Contains(t, out, "Course")
	assert.Contains(t, out, "MAT1")
	assert.Contains(t, out, "Programming")
	assert.Less(t, strings.Index(out, "MAT1"), strings.Index(out, "CS1"), "rows keep their order")
}
