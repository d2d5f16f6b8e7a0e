package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDefault_MatchesQuotingConstants(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default returned error: %v", err)
	}

	if cfg.Exchange.Driver != DriverPaper {
		t.Errorf("expected paper driver by default, got %s", cfg.Exchange.Driver)
	}
	if !cfg.Strategy.PriceTick.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("unexpected price tick %s", cfg.Strategy.PriceTick)
	}
	if !cfg.Strategy.ExchangeUnit.Equal(decimal.NewFromInt(500)) {
		t.Errorf("unexpected exchange unit %s", cfg.Strategy.ExchangeUnit)
	}
	if cfg.Strategy.GapWindow != 20 {
		t.Errorf("expected gap window 20, got %d", cfg.Strategy.GapWindow)
	}
	if cfg.Scheduler.Interval != 10*time.Second {
		t.Errorf("expected 10s interval, got %s", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.Overlap != OverlapSequential || cfg.Scheduler.CancelPolicy != CancelWait {
		t.Errorf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
	if cfg.Exchange.Retry.MaxAttempts != 1 {
		t.Errorf("retries must be disabled by default, got %d", cfg.Exchange.Retry.MaxAttempts)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
exchange:
  driver: fcoin
  base_url: https://api.example.com
strategy:
  dust_base: 0.002
  exchange_unit: 250
scheduler:
  interval: 3s
  overlap: skip
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MAKER_SCHEDULER_CANCEL_POLICY", "detach")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Exchange.Driver != DriverFCoin {
		t.Errorf("expected fcoin driver, got %s", cfg.Exchange.Driver)
	}
	if !cfg.Strategy.DustBase.Equal(decimal.RequireFromString("0.002")) {
		t.Errorf("expected dust 0.002, got %s", cfg.Strategy.DustBase)
	}
	if !cfg.Strategy.ExchangeUnit.Equal(decimal.NewFromInt(250)) {
		t.Errorf("expected unit 250, got %s", cfg.Strategy.ExchangeUnit)
	}
	if cfg.Scheduler.Interval != 3*time.Second || cfg.Scheduler.Overlap != OverlapSkip {
		t.Errorf("unexpected scheduler: %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.CancelPolicy != CancelDetach {
		t.Errorf("expected env override detach, got %s", cfg.Scheduler.CancelPolicy)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate_AggregatesProblems(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default returned error: %v", err)
	}

	cfg.Exchange.Driver = "kraken"
	cfg.Strategy.GapWindow = 0
	cfg.Scheduler.Overlap = "parallel"

	err = cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"exchange.driver", "strategy.gap_window", "scheduler.overlap"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}
