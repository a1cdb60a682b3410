package sites

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"seedvigil/internal/domain"
)

// Registry is the set of trackers known to the system, loaded from a user
// maintained YAML file. The engine only manages private sites.
type Registry struct {
	sites []domain.Site
}

// LoadRegistry reads the site registry file. A missing file yields an empty
// registry rather than an error.
func LoadRegistry(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Registry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read site registry: %w", err)
	}

	var sites []domain.Site
	if err := yaml.Unmarshal(raw, &sites); err != nil {
		return nil, fmt.Errorf("parse site registry: %w", err)
	}
	return &Registry{sites: sites}, nil
}

func NewRegistry(sites []domain.Site) *Registry {
	return &Registry{sites: sites}
}

// All returns every registered site.
func (r *Registry) All() []domain.Site {
	return r.sites
}

// ByID looks a site up by identifier.
func (r *Registry) ByID(id string) (domain.Site, bool) {
	for _, s := range r.sites {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Site{}, false
}

// ByTrackerHost resolves which site a tracker announce host belongs to.
func (r *Registry) ByTrackerHost(host string) (domain.Site, bool) {
	if host == "" {
		return domain.Site{}, false
	}
	for _, s := range r.sites {
		for _, h := range s.TrackerHosts {
			if h == host {
				return s, true
			}
		}
	}
	return domain.Site{}, false
}

// FilterEligible intersects the configured site IDs with the registry,
// dropping unknown IDs and public trackers.
func (r *Registry) FilterEligible(ids []string) []string {
	var eligible []string
	for _, id := range ids {
		site, ok := r.ByID(id)
		if !ok || site.Public {
			continue
		}
		eligible = append(eligible, id)
	}
	return eligible
}
