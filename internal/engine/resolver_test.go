package engine

import (
	"testing"

	"seedvigil/internal/domain"
)

func f64(v float64) *float64 { return &v }
func iptr(v int) *int        { return &v }

func TestResolverResolve(t *testing.T) {
	cfg := testConfig()
	cfg.SiteConfigs = []domain.SiteConfig{
		{SiteName: "Site A", HRDuration: f64(36), Forced: true},
		{SiteName: "Site B", HRRatio: f64(2.5), HRDeadlineDays: iptr(7), AdditionalSeedTime: f64(0)},
	}
	resolver := NewResolver(cfg)

	t.Run("unknown site gets global defaults", func(t *testing.T) {
		p := resolver.Resolve("Site C")
		if p.HRDuration != 120 || p.HRRatio != 1.0 || p.HRDeadlineDays != 14 || p.AdditionalSeedTime != 24 {
			t.Errorf("unexpected policy %+v", p)
		}
		if p.Forced {
			t.Error("global policy must not be forced")
		}
	})

	t.Run("override wins field by field", func(t *testing.T) {
		p := resolver.Resolve("Site A")
		if p.HRDuration != 36 {
			t.Errorf("duration = %v, want 36", p.HRDuration)
		}
		if p.HRRatio != 1.0 || p.HRDeadlineDays != 14 || p.AdditionalSeedTime != 24 {
			t.Errorf("unset fields must inherit globals, got %+v", p)
		}
		if !p.Forced {
			t.Error("forced flag lost")
		}
	})

	t.Run("explicit zero override is honored", func(t *testing.T) {
		p := resolver.Resolve("Site B")
		if p.AdditionalSeedTime != 0 {
			t.Errorf("additional seed time = %v, want 0", p.AdditionalSeedTime)
		}
		if p.HRRatio != 2.5 || p.HRDeadlineDays != 7 {
			t.Errorf("unexpected policy %+v", p)
		}
		if p.HRDuration != 120 {
			t.Errorf("duration = %v, want inherited 120", p.HRDuration)
		}
	})
}

func TestResolverDuplicateRecords(t *testing.T) {
	cfg := testConfig()
	cfg.SiteConfigs = []domain.SiteConfig{
		{SiteName: "Site A", HRDuration: f64(10)},
		{SiteName: "Site A", HRDuration: f64(99)},
	}
	p := NewResolver(cfg).Resolve("Site A")
	if p.HRDuration != 10 {
		t.Errorf("first record must win on duplicates, got duration %v", p.HRDuration)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("disabled accepts anything", func(t *testing.T) {
		cfg := Config{}
		if err := cfg.Validate(); err != nil {
			t.Errorf("disabled config rejected: %v", err)
		}
	})

	t.Run("enabled requires downloader", func(t *testing.T) {
		cfg := testConfig()
		cfg.DownloaderName = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for missing downloader")
		}
	})

	t.Run("run-once is validated like enabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.Enabled = false
		cfg.RunOnce = true
		cfg.HRDuration = 0
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for zero duration")
		}
	})

	t.Run("valid config passes", func(t *testing.T) {
		cfg := testConfig()
		if err := cfg.Validate(); err != nil {
			t.Errorf("valid config rejected: %v", err)
		}
	})
}

func TestSiteEnabled(t *testing.T) {
	cfg := testConfig()
	if !cfg.SiteEnabled("site-a") {
		t.Error("site-a should be enabled")
	}
	if cfg.SiteEnabled("site-b") {
		t.Error("site-b should not be enabled")
	}
}
