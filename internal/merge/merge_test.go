package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/everstacklabs/modelmeter/internal/catalog"
)

func generic(name string) catalog.ComparisonRecord {
	return catalog.ComparisonRecord{
		Name: name, Provider: "Example", Parameters: catalog.UnknownParameters,
		Speed: catalog.DefaultScore, Reasoning: catalog.DefaultScore,
		Coding: catalog.DefaultScore, Creative: catalog.DefaultScore,
	}
}

func rich(name string, reasoning int) catalog.ComparisonRecord {
	r := generic(name)
	r.Parameters = "70B"
	r.Reasoning = reasoning
	return r
}

func names[T Record](rs []T) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.MergeKey()
	}
	return out
}

func TestMergeComparison(t *testing.T) {
	tests := []struct {
		name    string
		static  []catalog.ComparisonRecord
		dynamic []catalog.ComparisonRecord
		want    []catalog.ComparisonRecord
	}{
		{
			name:    "disjoint keeps insertion order",
			static:  []catalog.ComparisonRecord{rich("A", 90)},
			dynamic: []catalog.ComparisonRecord{generic("B"), generic("C")},
			want:    []catalog.ComparisonRecord{rich("A", 90), generic("B"), generic("C")},
		},
		{
			name:    "static rich beats dynamic generic",
			static:  []catalog.ComparisonRecord{rich("A", 90)},
			dynamic: []catalog.ComparisonRecord{generic("A")},
			want:    []catalog.ComparisonRecord{rich("A", 90)},
		},
		{
			name:    "static rich beats dynamic rich",
			static:  []catalog.ComparisonRecord{rich("A", 90)},
			dynamic: []catalog.ComparisonRecord{rich("A", 60)},
			want:    []catalog.ComparisonRecord{rich("A", 90)},
		},
		{
			name:    "generic replaced in place",
			static:  []catalog.ComparisonRecord{generic("A"), rich("B", 80)},
			dynamic: []catalog.ComparisonRecord{rich("A", 70)},
			want:    []catalog.ComparisonRecord{rich("A", 70), rich("B", 80)},
		},
		{
			name:    "duplicates within dynamic",
			dynamic: []catalog.ComparisonRecord{generic("A"), rich("A", 85), rich("A", 40)},
			want:    []catalog.ComparisonRecord{rich("A", 85)},
		},
		{
			name:    "case-sensitive keys",
			static:  []catalog.ComparisonRecord{rich("gpt-4o", 90)},
			dynamic: []catalog.ComparisonRecord{generic("GPT-4o")},
			want:    []catalog.ComparisonRecord{rich("gpt-4o", 90), generic("GPT-4o")},
		},
		{
			name: "empty",
			want: []catalog.ComparisonRecord{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.static, tt.dynamic))
		})
	}
}

func TestMergePricing(t *testing.T) {
	q := 90
	static := []catalog.PricingRecord{
		{Name: "GPT-4o", Provider: "OpenAI", InputCost: 0.0025, OutputCost: 0.01, Quality: &q},
		{Name: "Placeholder", Provider: "Example"},
	}
	dynamic := []catalog.PricingRecord{
		{Name: "GPT-4o", Provider: "OpenAI", InputCost: 0.005, OutputCost: 0.015},
		{Name: "Placeholder", Provider: "Example", InputCost: 0.001, ContextWindow: "8K tokens"},
		{Name: "New", Provider: "Example"},
	}

	got := Merge(static, dynamic)
	assert.Equal(t, []string{"GPT-4o", "Placeholder", "New"}, names(got))
	assert.Equal(t, 0.0025, got[0].InputCost, "curated price kept")
	assert.Equal(t, 0.001, got[1].InputCost, "generic curated record replaced")
}

func TestMergeIdempotent(t *testing.T) {
	a := []catalog.ComparisonRecord{rich("A", 90), generic("G"), rich("B", 70)}
	b := []catalog.ComparisonRecord{generic("A"), generic("C"), rich("B", 10), generic("G")}

	once := Merge(a, b)
	assert.Equal(t, once, Merge(a, once))
	assert.Equal(t, once, Merge(once, b))
}

func TestMergeDoesNotModifyInputs(t *testing.T) {
	static := []catalog.ComparisonRecord{generic("A")}
	dynamic := []catalog.ComparisonRecord{rich("A", 80)}

	_ = Merge(static, dynamic)
	assert.Equal(t, generic("A"), static[0])
	assert.Equal(t, rich("A", 80), dynamic[0])
}
