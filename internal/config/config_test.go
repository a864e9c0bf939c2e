package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"staking-reward-ledger/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cc, err := cfg.ClassifierConfig()
	if err != nil {
		t.Fatalf("ClassifierConfig failed: %v", err)
	}
	if cc.BandMin.Cmp(domain.MustParseAmount("2.8")) != 0 || cc.BandMax.Cmp(domain.MustParseAmount("3.2")) != 0 {
		t.Errorf("default band = %s..%s, want 2.8..3.2", cc.BandMin, cc.BandMax)
	}

	dc, err := cfg.DedupConfig()
	if err != nil {
		t.Fatalf("DedupConfig failed: %v", err)
	}
	if dc.LookbackRounds != 4 {
		t.Errorf("default lookback = %d, want 4", dc.LookbackRounds)
	}
	if dc.AnomalyFactor.Cmp(big.NewRat(3, 1)) != 0 {
		t.Errorf("default anomaly factor = %s, want 3", dc.AnomalyFactor)
	}

	m, err := cfg.CategoryMultipliers()
	if err != nil {
		t.Fatalf("CategoryMultipliers failed: %v", err)
	}
	if m.Multiplier(domain.CategoryPerfect).Cmp(big.NewRat(1, 1)) != 0 {
		t.Errorf("PERFECT multiplier = %s, want 1", m.Multiplier(domain.CategoryPerfect))
	}
	if m.Multiplier(domain.CategoryTransferred).Cmp(big.NewRat(1, 2)) != 0 {
		t.Errorf("TRANSFERRED multiplier = %s, want 1/2", m.Multiplier(domain.CategoryTransferred))
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LEDGER_BAND_MIN", "1.5")
	t.Setenv("LEDGER_LOOKBACK_ROUNDS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cc, _ := cfg.ClassifierConfig()
	if cc.BandMin.Cmp(domain.MustParseAmount("1.5")) != 0 {
		t.Errorf("band min = %s, want 1.5 from env", cc.BandMin)
	}
	if cfg.LookbackRounds != 7 {
		t.Errorf("lookback = %d, want 7 from env", cfg.LookbackRounds)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	content := "band_min: \"2.0\"\nband_max: \"4.0\"\nlookback_rounds: 10\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("LEDGER_CONFIG", path)
	t.Setenv("LEDGER_LOOKBACK_ROUNDS", "2") // env wins over file

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cc, _ := cfg.ClassifierConfig()
	if cc.BandMin.Cmp(domain.MustParseAmount("2.0")) != 0 || cc.BandMax.Cmp(domain.MustParseAmount("4.0")) != 0 {
		t.Errorf("band = %s..%s, want file values 2.0..4.0", cc.BandMin, cc.BandMax)
	}
	if cfg.LookbackRounds != 2 {
		t.Errorf("lookback = %d, want env override 2", cfg.LookbackRounds)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("LEDGER_BAND_MIN", "5.0") // min above max

	if _, err := Load(); err == nil {
		t.Fatal("expected error for inverted band")
	}
}

func TestCategoryMultipliers_UnknownCategory(t *testing.T) {
	cfg := New()
	cfg.Multipliers["NOT_A_CATEGORY"] = "1"

	if _, err := cfg.CategoryMultipliers(); err == nil {
		t.Fatal("expected error for unknown category")
	}
}
