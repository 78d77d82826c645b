package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// LookupFunc reads one environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadOptions selects the sources Load merges.
type LoadOptions struct {
	// Path of the config file. When empty, DefaultConfigFile in the working
	// directory is used if it exists.
	Path string
	// Lookup reads environment overrides; nil means os.LookupEnv.
	Lookup LookupFunc
}

// Load merges defaults, the config file and the environment, in that order of
// increasing precedence. Command-line flags are applied by the caller on top.
func (p *Parser) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, err := p.loadFile(ctx, opts.Path)
	if err != nil {
		return nil, err
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Parser) loadFile(ctx context.Context, path string) (*Config, error) {
	if path != "" {
		return p.ParseFile(ctx, path)
	}

	if _, err := os.Stat(DefaultConfigFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			p.logger.Debug("no config file, using defaults")
			return Default(), nil
		}
		return nil, fmt.Errorf("stat %s: %w", DefaultConfigFile, err)
	}
	return p.ParseFile(ctx, DefaultConfigFile)
}

// ApplyEnv overrides cfg from SASSRUN_* variables. An empty value counts as
// unset.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}

	if v, ok := get(EnvVersion); ok {
		cfg.Version = v
	}
	if v, ok := get(EnvCacheDir); ok {
		cfg.CacheDir = v
	}

	for _, b := range []struct {
		key string
		dst *bool
	}{
		{EnvSkip, &cfg.Skip},
		{EnvWatch, &cfg.Watch},
	} {
		v, ok := get(b.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return &ValidationError{Field: b.key, Message: fmt.Sprintf("invalid boolean %q", v)}
		}
		*b.dst = parsed
	}

	return nil
}
