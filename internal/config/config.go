// Package config holds the operational parameters of the reward ledger.
// The compliant-purchase band, the duplicate lookback window, and the
// category multipliers are deployment inputs, not constants: they load from
// defaults, an optional YAML file, and environment variables, in that order.
package config

import (
	"fmt"
	"math/big"
	"runtime"

	"staking-reward-ledger/internal/classifier"
	"staking-reward-ledger/internal/dedup"
	"staking-reward-ledger/internal/domain"
)

// Config contains process configuration.
type Config struct {
	// Verbose enables component logging.
	Verbose bool `koanf:"verbose"`

	// BandMin/BandMax bound the compliant daily purchase, in tokens.
	BandMin string `koanf:"band_min"`
	BandMax string `koanf:"band_max"`

	// LookbackRounds bounds the duplicate guard's repeat-recipient rule.
	LookbackRounds int `koanf:"lookback_rounds"`

	// AnomalyFactor triggers the amount-anomaly rule, as a rational
	// (e.g. "3" or "5/2") times the historical average.
	AnomalyFactor string `koanf:"anomaly_factor"`

	// Workers sets the classifier pool size; 0 means NumCPU.
	Workers int `koanf:"workers"`

	// Multipliers maps category names to rational multipliers.
	Multipliers map[string]string `koanf:"multipliers"`

	// PostgresDSN and ClickhouseDSN select the persistent stores; empty
	// values fall back to the in-memory stores.
	PostgresDSN   string `koanf:"postgres_dsn"`
	ClickhouseDSN string `koanf:"clickhouse_dsn"`
}

// New creates a Config with production defaults.
func New() *Config {
	return &Config{
		BandMin:        "2.8",
		BandMax:        "3.2",
		LookbackRounds: 4,
		AnomalyFactor:  "3",
		Workers:        runtime.NumCPU(),
		Multipliers: map[string]string{
			string(domain.CategoryPerfect):     "1",
			string(domain.CategoryTransferred): "1/2",
		},
	}
}

// ClassifierConfig converts the band strings into the classifier's config.
func (c *Config) ClassifierConfig() (classifier.Config, error) {
	min, err := domain.ParseAmount(c.BandMin)
	if err != nil {
		return classifier.Config{}, fmt.Errorf("band_min: %w", err)
	}
	max, err := domain.ParseAmount(c.BandMax)
	if err != nil {
		return classifier.Config{}, fmt.Errorf("band_max: %w", err)
	}
	if min.Cmp(max) > 0 {
		return classifier.Config{}, fmt.Errorf("band_min %s exceeds band_max %s", c.BandMin, c.BandMax)
	}
	return classifier.Config{BandMin: min, BandMax: max}, nil
}

// DedupConfig converts the lookback and anomaly settings into the guard's config.
func (c *Config) DedupConfig() (dedup.Config, error) {
	if c.LookbackRounds <= 0 {
		return dedup.Config{}, fmt.Errorf("lookback_rounds must be positive, got %d", c.LookbackRounds)
	}
	factor, ok := new(big.Rat).SetString(c.AnomalyFactor)
	if !ok || factor.Sign() <= 0 {
		return dedup.Config{}, fmt.Errorf("anomaly_factor %q is not a positive rational", c.AnomalyFactor)
	}
	return dedup.Config{LookbackRounds: c.LookbackRounds, AnomalyFactor: factor}, nil
}

// CategoryMultipliers parses the multiplier table. Unknown category names fail.
func (c *Config) CategoryMultipliers() (domain.CategoryMultipliers, error) {
	m := make(domain.CategoryMultipliers, len(c.Multipliers))
	for name, value := range c.Multipliers {
		cat := domain.Category(name)
		if !cat.Valid() {
			return nil, fmt.Errorf("multipliers: unknown category %q", name)
		}
		r, ok := new(big.Rat).SetString(value)
		if !ok || r.Sign() < 0 {
			return nil, fmt.Errorf("multipliers[%s]: %q is not a non-negative rational", name, value)
		}
		m[cat] = r
	}
	return m, nil
}
