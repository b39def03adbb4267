// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/creachadair/jtransform/config"
	"github.com/creachadair/jtransform/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults when no file is present", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := config.Load("")
		require.NoError(t, err)
		assert.Equal(t, config.Default(), cfg)
		assert.True(t, cfg.CreatePaths)
		assert.Equal(t, engine.DefaultMaxDepth, cfg.MaxDepth)
	})

	t.Run("reads the default file name from the working directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "jtransform.yaml"),
			[]byte("strict_mode: true\nmax_depth: 3\n"), 0600))
		t.Chdir(dir)

		cfg, err := config.Load("")
		require.NoError(t, err)
		assert.True(t, cfg.StrictMode)
		assert.Equal(t, 3, cfg.MaxDepth)
	})

	t.Run("reads a named TOML file", func(t *testing.T) {
		path := writeFile(t, "settings.toml", `
strict_mode = true
preserve_nulls = true
create_paths = false
max_depth = 4
path_cache_size = 64
indent = "  "

[log]
level = "debug"
format = "console"
`)
		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, &config.Config{
			StrictMode:    true,
			PreserveNulls: true,
			CreatePaths:   false,
			MaxDepth:      4,
			PathCacheSize: 64,
			Indent:        "  ",
			Log:           config.LogConfig{Level: "debug", Format: "console"},
		}, cfg)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		path := writeFile(t, "settings.json", `{"max_depth": 4, "log": {"level": "warn"}}`)
		t.Setenv("JTRANSFORM_MAX_DEPTH", "7")
		t.Setenv("JTRANSFORM_ENABLE_TRACING", "true")
		t.Setenv("JTRANSFORM_LOG_LEVEL", "error")

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.MaxDepth)
		assert.True(t, cfg.EnableTracing)
		assert.Equal(t, "error", cfg.Log.Level)
	})

	t.Run("a named file must exist", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nonesuch.toml"))
		assert.Error(t, err)
	})

	t.Run("invalid settings are rejected", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "max_depth: -1\nlog:\n  level: loud\n")
		_, err := config.Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_depth")
		assert.Contains(t, err.Error(), "loud")
	})

	t.Run("max depth is bounded", func(t *testing.T) {
		path := writeFile(t, "deep.toml", "max_depth = 3000000000\n")
		_, err := config.Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_depth")
	})
}

func TestSettings(t *testing.T) {
	cfg := config.Default()
	cfg.StrictMode = true
	cfg.MaxDepth = 2

	s := cfg.Settings()
	require.NotNil(t, s.StrictMode)
	assert.True(t, *s.StrictMode)
	assert.False(t, *s.PreserveNulls)
	assert.True(t, *s.CreatePaths)
	assert.Equal(t, 2, *s.MaxDepth)
	assert.False(t, *s.EnableTracing)

	opts := cfg.EngineOptions(nil)
	assert.Equal(t, s, opts.Defaults)
	e := engine.New(opts)
	assert.Equal(t, 2, *e.Defaults().MaxDepth)
}

func TestNewLogger(t *testing.T) {
	for _, lc := range []config.LogConfig{
		{Level: "debug", Format: "json"},
		{Level: "WARN", Format: "console"},
		{},
	} {
		log, err := lc.NewLogger()
		require.NoError(t, err, "config %+v", lc)
		assert.NotNil(t, log)
	}

	_, err := config.LogConfig{Level: "verbose"}.NewLogger()
	assert.Error(t, err)
	_, err = config.LogConfig{Format: "xml"}.NewLogger()
	assert.Error(t, err)
}
