// Package classify derives a (category, tier) pair and a capability bundle
// from an admitted catalog entry. Results depend only on the entry.
package classify

import (
	"github.com/shopspring/decimal"

	"github.com/everstacklabs/modelmeter/internal/catalog"
	"github.com/everstacklabs/modelmeter/internal/normalize"
)

// Tier is the audience/price tier paired with a category.
type Tier string

const (
	TierPremium    Tier = "premium"
	TierEconomy    Tier = "economy"
	TierSpecialist Tier = "specialist"
	TierStandard   Tier = "standard"
	TierCommunity  Tier = "community"
)

// Classification pairs a category with its tier.
type Classification struct {
	Category catalog.Category `json:"category"`
	Tier     Tier             `json:"tier"`
}

var (
	million = decimal.NewFromInt(1_000_000)

	flagshipPromptPerMillion  = decimal.NewFromInt(15)
	efficientPromptPerMillion = decimal.NewFromInt(1)
)

// costs holds prompt/completion prices in USD per 1M tokens.
type costs struct {
	prompt, completion decimal.Decimal
}

func perMillion(e *catalog.Entry) costs {
	p, _ := normalize.ParsePrice(e.Pricing.Prompt)
	c, _ := normalize.ParsePrice(e.Pricing.Completion)
	return costs{prompt: p.Mul(million), completion: c.Mul(million)}
}

type input struct {
	subject normalize.Subject
	costs   costs
}

type rule struct {
	match  func(input) bool
	result Classification
}

var rules = []rule{
	{
		match:  func(in input) bool { return in.costs.prompt.IsZero() && in.costs.completion.IsZero() },
		result: Classification{catalog.CategoryFree, TierCommunity},
	},
	{
		match: func(in input) bool {
			return in.subject.Mentions(normalize.FlagshipMarkers...) || in.costs.prompt.GreaterThan(flagshipPromptPerMillion)
		},
		result: Classification{catalog.CategoryFlagship, TierPremium},
	},
	{
		match: func(in input) bool {
			return in.subject.Mentions(normalize.EfficientMarkers...) || in.costs.prompt.LessThan(efficientPromptPerMillion)
		},
		result: Classification{catalog.CategoryEfficient, TierEconomy},
	},
	{
		match:  func(in input) bool { return in.subject.Mentions(normalize.SpecializedMarkers...) },
		result: Classification{catalog.CategorySpecialized, TierSpecialist},
	},
}

// Classify returns the entry's category and tier.
func Classify(e *catalog.Entry) Classification {
	in := input{subject: normalize.SubjectOf(e), costs: perMillion(e)}
	for _, r := range rules {
		if r.match(in) {
			return r.result
		}
	}
	return Classification{catalog.CategoryStandard, TierStandard}
}

// Capabilities is a boolean projection of an entry's modalities and markers.
type Capabilities struct {
	TextInput        bool     `json:"text_input"`
	ImageInput       bool     `json:"image_input"`
	FileInput        bool     `json:"file_input"`
	AudioInput       bool     `json:"audio_input"`
	Vision           bool     `json:"vision"`
	Code             bool     `json:"code"`
	Reasoning        bool     `json:"reasoning"`
	Tools            bool     `json:"tools"`
	Moderated        bool     `json:"moderated"`
	InputModalities  []string `json:"input_modalities"`
	OutputModalities []string `json:"output_modalities"`
}

var (
	codeMarkers      = []string{"code", "coder", "programming"}
	reasoningMarkers = []string{"reasoning", "o1", "o3", "thinking", "r1"}
)

// CapabilitiesOf derives the capability bundle for an entry.
func CapabilitiesOf(e *catalog.Entry) Capabilities {
	s := normalize.SubjectOf(e)
	image := e.HasInput("image")
	return Capabilities{
		TextInput:        e.HasInput("text"),
		ImageInput:       image,
		FileInput:        e.HasInput("file"),
		AudioInput:       e.HasInput("audio"),
		Vision:           image || s.Mentions("vision"),
		Code:             s.Mentions(codeMarkers...),
		Reasoning:        e.SupportsParameter("reasoning") || e.SupportsParameter("include_reasoning") || s.Mentions(reasoningMarkers...),
		Tools:            e.SupportsParameter("tools"),
		Moderated:        e.TopProvider.IsModerated,
		InputModalities:  append([]string(nil), e.Architecture.InputModalities...),
		OutputModalities: append([]string(nil), e.Architecture.OutputModalities...),
	}
}
