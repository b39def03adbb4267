// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package config loads process-wide default settings for transformations.
//
// Settings are read from an optional configuration file (in any format
// understood by viper, such as TOML, YAML, or JSON), and may be overridden by
// environment variables with the prefix JTRANSFORM_. Nested keys are joined
// with underscores, so that "log.level" is overridden by JTRANSFORM_LOG_LEVEL.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creachadair/jtransform/engine"
	"github.com/creachadair/jtransform/template"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix is the prefix for environment variables that override settings.
const EnvPrefix = "JTRANSFORM"

// DefaultName is the base name of the configuration file searched for when
// no file is named explicitly.
const DefaultName = "jtransform"

// Config holds the process-default settings.
type Config struct {
	StrictMode    bool
	PreserveNulls bool
	CreatePaths   bool
	MaxDepth      int
	EnableTracing bool

	PathCacheSize      int
	ConditionCacheSize int
	Indent             string // output indentation; empty for compact output

	Log LogConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// Default returns the configuration used when no settings are given.
func Default() *Config {
	return &Config{
		CreatePaths: true,
		MaxDepth:    engine.DefaultMaxDepth,
		Log:         LogConfig{Level: "info", Format: "json"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("strict_mode", d.StrictMode)
	v.SetDefault("preserve_nulls", d.PreserveNulls)
	v.SetDefault("create_paths", d.CreatePaths)
	v.SetDefault("max_depth", d.MaxDepth)
	v.SetDefault("enable_tracing", d.EnableTracing)
	v.SetDefault("path_cache_size", d.PathCacheSize)
	v.SetDefault("condition_cache_size", d.ConditionCacheSize)
	v.SetDefault("indent", d.Indent)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the configuration. If path is not empty, it names the
// configuration file to read, which must exist. Otherwise Load looks for a
// file named "jtransform" with a supported extension in the current
// directory, and uses defaults if there is none. In either case, settings
// from the environment take precedence over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultName)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		StrictMode:         v.GetBool("strict_mode"),
		PreserveNulls:      v.GetBool("preserve_nulls"),
		CreatePaths:        v.GetBool("create_paths"),
		MaxDepth:           v.GetInt("max_depth"),
		EnableTracing:      v.GetBool("enable_tracing"),
		PathCacheSize:      v.GetInt("path_cache_size"),
		ConditionCacheSize: v.GetInt("condition_cache_size"),
		Indent:             v.GetString("indent"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports an error if c contains invalid settings.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxDepth < 0 || c.MaxDepth > template.MaxDepthLimit {
		errs = append(errs, fmt.Errorf("max_depth must be in 0..%d, got %d", template.MaxDepthLimit, c.MaxDepth))
	}
	if c.PathCacheSize < 0 {
		errs = append(errs, fmt.Errorf("path_cache_size must be non-negative, got %d", c.PathCacheSize))
	}
	if c.ConditionCacheSize < 0 {
		errs = append(errs, fmt.Errorf("condition_cache_size must be non-negative, got %d", c.ConditionCacheSize))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Settings returns the transformation settings described by c.
func (c *Config) Settings() template.Settings {
	return template.Settings{
		StrictMode:    template.Bool(c.StrictMode),
		PreserveNulls: template.Bool(c.PreserveNulls),
		CreatePaths:   template.Bool(c.CreatePaths),
		MaxDepth:      template.Int(c.MaxDepth),
		EnableTracing: template.Bool(c.EnableTracing),
	}
}

// EngineOptions returns options for an engine that uses the settings of c
// and writes trace output to log, which may be nil.
func (c *Config) EngineOptions(log *zap.Logger) *engine.Options {
	return &engine.Options{
		Logger:             log,
		Defaults:           c.Settings(),
		PathCacheSize:      c.PathCacheSize,
		ConditionCacheSize: c.ConditionCacheSize,
		Indent:             c.Indent,
	}
}
