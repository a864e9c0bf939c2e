package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if LEDGER_CONFIG is set
//  3. env (prefix LEDGER_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("LEDGER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: LEDGER_BAND_MIN, LEDGER_LOOKBACK_ROUNDS, ...
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("LEDGER_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "ledger_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	// Every derived view must parse; reject bad values at startup, not
	// mid-round.
	if _, err := cfg.ClassifierConfig(); err != nil {
		return nil, err
	}
	if _, err := cfg.DedupConfig(); err != nil {
		return nil, err
	}
	if _, err := cfg.CategoryMultipliers(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
