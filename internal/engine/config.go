package engine

import (
	"errors"
	"time"

	"seedvigil/internal/domain"
)

// Config is the engine's runtime configuration: global obligation defaults,
// the enabled site set, ordered per-site overrides, and the reconciliation
// cycle parameters.
type Config struct {
	Enabled        bool
	RunOnce        bool
	DownloaderName string

	Tag                string
	HRDuration         float64 // hours
	HRRatio            float64
	HRDeadlineDays     int
	AdditionalSeedTime float64 // hours

	RetentionDays int
	CheckPeriod   time.Duration

	Sites       []string // enabled site IDs, already filtered to private sites
	SiteConfigs []domain.SiteConfig
}

// Validate enforces the enable-time invariants. It only applies when the
// engine is enabled or asked to run once; a disabled engine accepts any
// configuration.
func (c Config) Validate() error {
	if !c.Enabled && !c.RunOnce {
		return nil
	}
	if c.DownloaderName == "" {
		return errors.New("downloader is not configured")
	}
	if c.HRDuration <= 0 {
		return errors.New("required seeding duration must be greater than 0")
	}
	if c.HRDeadlineDays <= 0 {
		return errors.New("deadline days must be greater than 0")
	}
	if c.HRRatio <= 0 {
		return errors.New("required ratio must be greater than 0")
	}
	return nil
}

// SiteEnabled reports whether a site ID is under obligation management.
func (c Config) SiteEnabled(id string) bool {
	for _, s := range c.Sites {
		if s == id {
			return true
		}
	}
	return false
}
