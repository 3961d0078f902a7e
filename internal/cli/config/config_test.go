package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/rdrkit/internal/testutil"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringP("output", "o", "", "")
	fs.String("log-level", "", "")
	fs.Int("workers", 0, "")
	fs.String("engine", "", "")
	fs.String("settings", "", "")
	return fs
}

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rdr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	ResetConfig()

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultEngine, cfg.Engine.Command)
	assert.True(t, cfg.LogFile)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeSettings(t, `
output: json
log_level: debug
workers: 2
engine:
  command: python engine.py --quiet
  env:
    PYTHONUNBUFFERED: "1"
`)

	t.Run("settings file", func(t *testing.T) {
		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.OutputFormat)
		assert.Equal(t, 2, cfg.Workers)
		assert.Equal(t, "python engine.py --quiet", cfg.Engine.Command)
		assert.Equal(t, map[string]string{"PYTHONUNBUFFERED": "1"}, cfg.Engine.Env)
		assert.Equal(t, filepath.Dir(path), cfg.ProjectRoot)
		assert.Equal(t, path, GetConfigFileUsed())
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("RDR_WORKERS", "3")
		t.Setenv("RDR_ENGINE_COMMAND", "engine-from-env")
		t.Setenv("RDR_COMMON__RUN_ID", "ignored")
		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Workers)
		assert.Equal(t, "engine-from-env", cfg.Engine.Command)
	})

	t.Run("flags override env", func(t *testing.T) {
		t.Setenv("RDR_WORKERS", "3")
		fs := testFlags()
		require.NoError(t, fs.Parse([]string{"--workers", "4", "-o", "yaml", "--engine", "my-engine run"}))
		cfg, err := LoadConfig(path, fs)
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Workers)
		assert.Equal(t, "yaml", cfg.OutputFormat)
		assert.Equal(t, "my-engine run", cfg.Engine.Command)
		// Unchanged flags keep lower layers.
		assert.Equal(t, "debug", cfg.LogLevel)
	})
}

func TestLoadConfig_FindsSettingsUpward(t *testing.T) {
	path := writeSettings(t, "workers: 5\n")
	sub := filepath.Join(filepath.Dir(path), "scenarios", "flood")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, filepath.Dir(path), cfg.ProjectRoot)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"output", "output: html\n", "output must be one of"},
		{"log level", "log_level: loud\n", `unknown log level "loud"`},
		{"log format", "log_format: xml\n", "log_format must be text or json"},
		{"workers", "workers: 0\n", "workers must be at least 1"},
		{"engine", "engine:\n  command: \"  \"\n", "engine.command is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeSettings(t, tt.body), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "log_level", envKey("RDR_LOG_LEVEL"))
	assert.Equal(t, "engine.command", envKey("RDR_ENGINE_COMMAND"))
	assert.Equal(t, "", envKey("RDR_COMMON__RUN_ID"))
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	l := testutil.NewTestLogger(t)
	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, GetLogger(ctx))
}
