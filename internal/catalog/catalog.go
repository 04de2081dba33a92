package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed static/curated.yaml
var curatedYAML []byte

// StaticDataset holds the curated, already-normalized records merged ahead
// of the upstream listing.
type StaticDataset struct {
	Pricing    []PricingRecord    `yaml:"pricing"`
	Comparison []ComparisonRecord `yaml:"comparison"`
}

// LoadStatic reads a curated dataset from path. An empty path loads the
// dataset compiled into the binary.
func LoadStatic(path string) (*StaticDataset, error) {
	data := curatedYAML
	source := "embedded dataset"
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading static dataset: %w", err)
		}
		data, source = b, path
	}
	return ParseStatic(data, source)
}

// ParseStatic decodes a curated dataset. source names it in errors.
func ParseStatic(data []byte, source string) (*StaticDataset, error) {
	var ds StaticDataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source, err)
	}
	for i := range ds.Comparison {
		ds.Comparison[i].fillDefaults()
	}
	return &ds, nil
}

// Providers returns provider names in the order they first appear.
func (ds *StaticDataset) Providers() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			names = append(names, p)
		}
	}
	for _, r := range ds.Pricing {
		add(r.Provider)
	}
	for _, r := range ds.Comparison {
		add(r.Provider)
	}
	return names
}
