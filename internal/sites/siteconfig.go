package sites

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"seedvigil/internal/domain"
)

// ParseSiteConfigs parses the user-authored ordered list of per-site override
// records. Fields left unset in a record inherit the global default.
func ParseSiteConfigs(raw []byte) ([]domain.SiteConfig, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var configs []domain.SiteConfig
	if err := yaml.Unmarshal(raw, &configs); err != nil {
		return nil, fmt.Errorf("parse site config document: %w", err)
	}
	return configs, nil
}

// LoadSiteConfigs reads and parses the override document at path. A missing
// file yields no overrides.
func LoadSiteConfigs(path string) ([]domain.SiteConfig, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read site config document: %w", err)
	}
	return ParseSiteConfigs(raw)
}

// EnsureSiteConfigFile writes the demo template to path when no override
// document exists yet, as first-run guidance. Returns true when the template
// was written.
func EnsureSiteConfigFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat site config document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create site config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(DemoSiteConfig), 0o644); err != nil {
		return false, fmt.Errorf("write site config template: %w", err)
	}
	return true, nil
}

// DemoSiteConfig is the first-run template for the per-site override document.
// Commented-out fields inherit the global default.
const DemoSiteConfig = `####### site overrides BEGIN #######
# Each list entry overrides the global defaults for one site, field by field.
# Leave a field commented out to inherit the global value.
####### site overrides END #######

- # Site name this record applies to.
  site_name: 'site-one'
  # Required seeding hours before the obligation is met.
  hr_duration: 120.0
  # Extra seeding hours granted on top of hr_duration.
  additional_seed_time: 24.0
  # Required share ratio; meeting it alone satisfies the obligation.
  # hr_ratio: 2.0
  # When true every torrent from this site is treated as an obligation.
  hr_active: false
  # Days allowed to meet the obligation before it turns overdue.
  hr_deadline_days: 14

- site_name: 'site-two'
  # hr_duration: 48.0
  # additional_seed_time: 24.0
  # hr_ratio: 1.0
  hr_active: true
  hr_deadline_days: 14
`
