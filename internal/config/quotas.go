// internal/config/quotas.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// QuotaSeed describes the early-access capacity for one role.
type QuotaSeed struct {
	Role     string `yaml:"role"`
	MaxCount int    `yaml:"max_count"`
	IsActive *bool  `yaml:"is_active"`
}

type quotaFile struct {
	Quotas []QuotaSeed `yaml:"quotas"`
}

// DefaultQuotaSeeds is used when no seed file is configured.
func DefaultQuotaSeeds() []QuotaSeed {
	active := true
	return []QuotaSeed{
		{Role: "agent", MaxCount: 100, IsActive: &active},
		{Role: "contractor", MaxCount: 50, IsActive: &active},
	}
}

// LoadQuotaSeeds reads a YAML file of the form:
//
//	quotas:
//	  - role: agent
//	    max_count: 100
//	  - role: contractor
//	    max_count: 50
//	    is_active: false
//
// An empty path returns DefaultQuotaSeeds.
func LoadQuotaSeeds(path string) ([]QuotaSeed, error) {
	if path == "" {
		return DefaultQuotaSeeds(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quota file %s: %w", path, err)
	}

	var file quotaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse quota file %s: %w", path, err)
	}

	for i, q := range file.Quotas {
		if q.Role == "" {
			return nil, fmt.Errorf("quota entry %d: role is required", i)
		}
		if q.MaxCount < 0 {
			return nil, fmt.Errorf("quota entry %d (%s): max_count must not be negative", i, q.Role)
		}
		if q.IsActive == nil {
			active := true
			file.Quotas[i].IsActive = &active
		}
	}

	return file.Quotas, nil
}

// Active reports whether the seed enables its quota; unset means active.
func (q QuotaSeed) Active() bool {
	return q.IsActive == nil || *q.IsActive
}
