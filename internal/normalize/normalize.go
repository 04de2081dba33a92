package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/everstacklabs/modelmeter/internal/catalog"
)

var thousand = decimal.NewFromInt(1000)

// PerThousand converts a per-token decimal price to a per-1,000-token cost.
// Missing, non-numeric and negative prices yield 0.
func PerThousand(price string) float64 {
	d, ok := ParsePrice(price)
	if !ok {
		return 0
	}
	return d.Mul(thousand).InexactFloat64()
}

// ParsePrice parses a decimal price string. ok is false for missing,
// non-numeric and negative values.
func ParsePrice(price string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// ContextLength returns the entry's context length, falling back to the top
// provider's when the entry reports none.
func ContextLength(e *catalog.Entry) int {
	if e.ContextLength > 0 {
		return e.ContextLength
	}
	return e.TopProvider.ContextLength
}

// ContextWindowLabel renders a token count as "128K tokens" or "1M tokens".
func ContextWindowLabel(n int) string {
	switch {
	case n <= 0:
		return ""
	case n >= 1_000_000:
		m := math.Round(float64(n)/100_000) / 10
		return strconv.FormatFloat(m, 'f', -1, 64) + "M tokens"
	case n >= 1_000:
		return strconv.Itoa(n/1_000) + "K tokens"
	default:
		return strconv.Itoa(n) + " tokens"
	}
}

// ToPricing projects an entry into a pricing record.
func ToPricing(e catalog.Entry) catalog.PricingRecord {
	s := SubjectOf(&e)
	return catalog.PricingRecord{
		Name:          DisplayName(e.Name),
		Provider:      Provider(e.ID),
		InputCost:     PerThousand(e.Pricing.Prompt),
		OutputCost:    PerThousand(e.Pricing.Completion),
		Category:      Category(s),
		ContextWindow: ContextWindowLabel(ContextLength(&e)),
	}
}

// ToComparison projects an entry into a comparison record. The listing has
// no benchmark data, so every score is catalog.DefaultScore.
func ToComparison(e catalog.Entry) catalog.ComparisonRecord {
	s := SubjectOf(&e)
	ctx := ContextLength(&e)
	return catalog.ComparisonRecord{
		Name:          DisplayName(e.Name),
		Provider:      Provider(e.ID),
		Parameters:    Parameters(s, ctx),
		ContextWindow: ctx,
		InputCost:     PerThousand(e.Pricing.Prompt),
		OutputCost:    PerThousand(e.Pricing.Completion),
		Speed:         catalog.DefaultScore,
		Reasoning:     catalog.DefaultScore,
		Coding:        catalog.DefaultScore,
		Creative:      catalog.DefaultScore,
		Multimodal:    Multimodal(&e, s),
		Languages:     Languages(s),
		Category:      Category(s),
	}
}

// Pricing projects every entry, preserving order.
func Pricing(entries []catalog.Entry) []catalog.PricingRecord {
	out := make([]catalog.PricingRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToPricing(e))
	}
	return out
}

// Comparison projects every entry, preserving order.
func Comparison(entries []catalog.Entry) []catalog.ComparisonRecord {
	out := make([]catalog.ComparisonRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToComparison(e))
	}
	return out
}
