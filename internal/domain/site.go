package domain

// Site describes a tracker known to the site registry. Only private sites are
// eligible for obligation management; public trackers are filtered out even
// when configured.
type Site struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Public       bool     `yaml:"public" json:"public"`
	TrackerHosts []string `yaml:"tracker_hosts" json:"tracker_hosts,omitempty"`
}

// SiteConfig is a per-site override record. A nil field inherits the global
// default; precedence is site over global, field by field, never record by
// record. Forced, when true, makes every torrent from the site an obligation
// regardless of other detection.
type SiteConfig struct {
	SiteName           string   `yaml:"site_name"`
	HRDuration         *float64 `yaml:"hr_duration"`
	HRRatio            *float64 `yaml:"hr_ratio"`
	HRDeadlineDays     *int     `yaml:"hr_deadline_days"`
	AdditionalSeedTime *float64 `yaml:"additional_seed_time"`
	Forced             bool     `yaml:"hr_active"`
}
