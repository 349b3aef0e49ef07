package policies

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jmcalloway/claimward/internal/retrieval"
	"github.com/jmcalloway/claimward/internal/rules"
)

// Catalog is the parsed form of a catalog seed file.
type Catalog struct {
	Policies []SeedPolicy  `yaml:"policies"`
	Products []SeedProduct `yaml:"products"`
}

// SeedPolicy mirrors Policy without timestamps for seed file parsing.
type SeedPolicy struct {
	ID               string              `yaml:"id"`
	Name             string              `yaml:"name"`
	WarrantyDays     int                 `yaml:"warranty_days"`
	Exclusions       []rules.Exclusion   `yaml:"exclusions"`
	RequiredEvidence []string            `yaml:"required_evidence"`
	Sections         []retrieval.Section `yaml:"sections"`
}

// SeedProduct mirrors Product without identity fields for seed file parsing.
type SeedProduct struct {
	Name     string   `yaml:"name"`
	Aliases  []string `yaml:"aliases"`
	PolicyID string   `yaml:"policy_id"`
}

// ParseCatalog decodes a YAML catalog seed and validates its references.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	known := make(map[string]bool, len(c.Policies))
	for _, p := range c.Policies {
		if p.ID == "" {
			return nil, fmt.Errorf("policy %q missing id", p.Name)
		}
		if p.WarrantyDays <= 0 {
			return nil, fmt.Errorf("policy %s: warranty_days must be positive", p.ID)
		}
		known[p.ID] = true
	}

	for _, p := range c.Products {
		if p.Name == "" {
			return nil, fmt.Errorf("product missing name")
		}
		if !known[p.PolicyID] {
			return nil, fmt.Errorf("product %s references unknown policy %s", p.Name, p.PolicyID)
		}
	}

	return &c, nil
}

// LoadCatalog reads and parses a catalog seed file from disk.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return ParseCatalog(f)
}
