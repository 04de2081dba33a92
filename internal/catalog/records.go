package catalog

// DefaultScore fills every benchmark score a source does not provide.
// Records whose scores all equal it are treated as default-filled.
const DefaultScore = 75

// UnknownParameters is the parameter-count estimate when nothing matches.
const UnknownParameters = "Unknown"

// Category is a coarse pricing/capability label.
type Category string

const (
	CategoryFlagship    Category = "flagship"
	CategoryEfficient   Category = "efficient"
	CategorySpecialized Category = "specialized"
	CategoryStandard    Category = "standard"
	CategoryFree        Category = "free"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFlagship, CategoryEfficient, CategorySpecialized, CategoryStandard, CategoryFree:
		return true
	}
	return false
}

// PricingRecord is the pricing-oriented projection of a model.
// Costs are USD per 1,000 tokens.
type PricingRecord struct {
	Name          string   `yaml:"name" json:"name"`
	Provider      string   `yaml:"provider" json:"provider"`
	InputCost     float64  `yaml:"input_cost" json:"input_cost"`
	OutputCost    float64  `yaml:"output_cost" json:"output_cost"`
	Category      Category `yaml:"category" json:"category"`
	ContextWindow string   `yaml:"context_window,omitempty" json:"context_window,omitempty"`
	Quality       *int     `yaml:"quality,omitempty" json:"quality,omitempty"`
	License       string   `yaml:"license,omitempty" json:"license,omitempty"`
}

// MergeKey returns the exact name records are deduplicated on.
func (r PricingRecord) MergeKey() string { return r.Name }

// IsGeneric reports whether the record carries nothing beyond defaults:
// no prices, no context window and no quality score.
func (r PricingRecord) IsGeneric() bool {
	return r.InputCost == 0 && r.OutputCost == 0 && r.ContextWindow == "" && r.Quality == nil
}

// ComparisonRecord is the capability-oriented projection of a model.
// Costs are USD per 1,000 tokens; scores are 0-100.
type ComparisonRecord struct {
	Name          string   `yaml:"name" json:"name"`
	Provider      string   `yaml:"provider" json:"provider"`
	Parameters    string   `yaml:"parameters" json:"parameters"`
	ContextWindow int      `yaml:"context_window" json:"context_window"`
	InputCost     float64  `yaml:"input_cost" json:"input_cost"`
	OutputCost    float64  `yaml:"output_cost" json:"output_cost"`
	Speed         int      `yaml:"speed" json:"speed"`
	Reasoning     int      `yaml:"reasoning" json:"reasoning"`
	Coding        int      `yaml:"coding" json:"coding"`
	Creative      int      `yaml:"creative" json:"creative"`
	Multimodal    bool     `yaml:"multimodal" json:"multimodal"`
	Languages     int      `yaml:"languages" json:"languages"`
	Category      Category `yaml:"category" json:"category"`
	License       string   `yaml:"license,omitempty" json:"license,omitempty"`
}

// MergeKey returns the exact name records are deduplicated on.
func (r ComparisonRecord) MergeKey() string { return r.Name }

// IsGeneric reports whether the parameter estimate is unknown and every score
// is still DefaultScore.
func (r ComparisonRecord) IsGeneric() bool {
	return r.Parameters == UnknownParameters &&
		r.Speed == DefaultScore &&
		r.Reasoning == DefaultScore &&
		r.Coding == DefaultScore &&
		r.Creative == DefaultScore
}

// fillDefaults sets zero scores and an empty parameter estimate to the shared
// defaults so curated records and normalized records compare alike.
func (r *ComparisonRecord) fillDefaults() {
	for _, s := range []*int{&r.Speed, &r.Reasoning, &r.Coding, &r.Creative} {
		if *s == 0 {
			*s = DefaultScore
		}
	}
	if r.Parameters == "" {
		r.Parameters = UnknownParameters
	}
}
