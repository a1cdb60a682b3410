package engine

import "seedvigil/internal/domain"

// Policy is the effective obligation policy for one site after merging the
// global defaults with the site's override record.
type Policy struct {
	HRDuration         float64
	HRRatio            float64
	HRDeadlineDays     int
	AdditionalSeedTime float64
	Forced             bool
}

// Resolver merges global defaults with per-site override records. Overrides
// win field by field; a record never replaces the global config wholesale.
type Resolver struct {
	global    Policy
	overrides map[string]domain.SiteConfig
}

func NewResolver(cfg Config) *Resolver {
	overrides := make(map[string]domain.SiteConfig, len(cfg.SiteConfigs))
	for _, sc := range cfg.SiteConfigs {
		if sc.SiteName == "" {
			continue
		}
		// first record wins on duplicate names, matching document order
		if _, exists := overrides[sc.SiteName]; !exists {
			overrides[sc.SiteName] = sc
		}
	}
	return &Resolver{
		global: Policy{
			HRDuration:         cfg.HRDuration,
			HRRatio:            cfg.HRRatio,
			HRDeadlineDays:     cfg.HRDeadlineDays,
			AdditionalSeedTime: cfg.AdditionalSeedTime,
		},
		overrides: overrides,
	}
}

// Resolve returns the effective policy for a site, substituting the global
// default for any unset override field.
func (r *Resolver) Resolve(siteName string) Policy {
	policy := r.global
	sc, ok := r.overrides[siteName]
	if !ok {
		return policy
	}
	if sc.HRDuration != nil {
		policy.HRDuration = *sc.HRDuration
	}
	if sc.HRRatio != nil {
		policy.HRRatio = *sc.HRRatio
	}
	if sc.HRDeadlineDays != nil {
		policy.HRDeadlineDays = *sc.HRDeadlineDays
	}
	if sc.AdditionalSeedTime != nil {
		policy.AdditionalSeedTime = *sc.AdditionalSeedTime
	}
	policy.Forced = sc.Forced
	return policy
}
