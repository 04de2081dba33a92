// Package tokenizer describes how each model family turns content into
// tokens and holds the exact encoders available for some providers.
package tokenizer

import (
	"maps"

	"github.com/everstacklabs/modelmeter/internal/catalog"
	"github.com/everstacklabs/modelmeter/internal/normalize"
)

// ImageMode selects how image tokens are counted.
type ImageMode string

const (
	ImageModeNone    ImageMode = "none"
	ImageModeFixed   ImageMode = "fixed"   // per-image cost from the size table
	ImageModeFormula ImageMode = "formula" // ceil(width*height/750) per image
)

// ImageSize is the size category used by fixed-mode image tables.
type ImageSize string

const (
	ImageSmall ImageSize = "small"
	ImageLarge ImageSize = "large"
)

// Valid reports whether s is a known size. The empty size means small.
func (s ImageSize) Valid() bool {
	return s == "" || s == ImageSmall || s == ImageLarge
}

// Profile holds the parameters needed to estimate tokens for one model.
type Profile struct {
	Name                 string            `json:"name" yaml:"name"`
	Provider             string            `json:"provider" yaml:"provider"`
	AvgTokensPerWord     float64           `json:"avg_tokens_per_word" yaml:"avg_tokens_per_word"`
	AvgCharsPerToken     float64           `json:"avg_chars_per_token" yaml:"avg_chars_per_token"`
	Description          string            `json:"description" yaml:"description"`
	ContextWindow        int               `json:"context_window" yaml:"context_window"`
	OutputLimit          int               `json:"output_limit" yaml:"output_limit"`
	ImageTokens          map[ImageSize]int `json:"image_tokens,omitempty" yaml:"image_tokens,omitempty"`
	ImageMode            ImageMode         `json:"image_mode,omitempty" yaml:"image_mode,omitempty"`
	VideoTokensPerSecond float64           `json:"video_tokens_per_second,omitempty" yaml:"video_tokens_per_second,omitempty"`
	AudioTokensPerSecond float64           `json:"audio_tokens_per_second,omitempty" yaml:"audio_tokens_per_second,omitempty"`
	Family               string            `json:"family" yaml:"family"`
	InputCost            *float64          `json:"input_cost,omitempty" yaml:"input_cost,omitempty"`   // USD per 1K tokens
	OutputCost           *float64          `json:"output_cost,omitempty" yaml:"output_cost,omitempty"` // USD per 1K tokens
	License              string            `json:"license,omitempty" yaml:"license,omitempty"`
}

// HasCost reports whether the profile carries pricing.
func (p *Profile) HasCost() bool {
	return p.InputCost != nil || p.OutputCost != nil
}

const defaultOutputLimit = 4096

var families = map[string]Profile{
	"OpenAI": {
		Family:           "GPT (tiktoken cl100k_base)",
		AvgTokensPerWord: 1.3,
		AvgCharsPerToken: 4,
		ImageMode:        ImageModeFixed,
		ImageTokens:      map[ImageSize]int{ImageSmall: 85, ImageLarge: 765},
		ContextWindow:    128_000,
		OutputLimit:      16_384,
	},
	"Anthropic": {
		Family:           "Claude",
		AvgTokensPerWord: 1.35,
		AvgCharsPerToken: 3.8,
		ImageMode:        ImageModeFormula,
		ContextWindow:    200_000,
		OutputLimit:      8_192,
	},
	"Google": {
		Family:               "Gemini (SentencePiece)",
		AvgTokensPerWord:     1.25,
		AvgCharsPerToken:     4.2,
		ImageMode:            ImageModeFixed,
		ImageTokens:          map[ImageSize]int{ImageSmall: 258, ImageLarge: 258},
		VideoTokensPerSecond: 263,
		AudioTokensPerSecond: 32,
		ContextWindow:        1_000_000,
		OutputLimit:          8_192,
	},
	"Meta": {
		Family:           "Llama (tiktoken-based BPE)",
		AvgTokensPerWord: 1.3,
		AvgCharsPerToken: 4,
		ImageMode:        ImageModeNone,
		ContextWindow:    128_000,
		OutputLimit:      defaultOutputLimit,
	},
	"Mistral AI": {
		Family:           "Mistral (SentencePiece)",
		AvgTokensPerWord: 1.35,
		AvgCharsPerToken: 3.7,
		ImageMode:        ImageModeNone,
		ContextWindow:    32_000,
		OutputLimit:      defaultOutputLimit,
	},
}

var generic = Profile{
	Family:           "Generic BPE",
	AvgTokensPerWord: 1.3,
	AvgCharsPerToken: 4,
	ImageMode:        ImageModeNone,
	ContextWindow:    8_192,
	OutputLimit:      defaultOutputLimit,
}

// Family returns the template profile for a provider display name. Unknown
// providers get the generic template with Provider set to the given name.
func Family(provider string) Profile {
	p, ok := families[provider]
	if !ok {
		p = generic
	}
	p.Provider = provider
	p.Name = provider + " (" + p.Family + ")"
	if p.ImageTokens != nil {
		p.ImageTokens = maps.Clone(p.ImageTokens)
	}
	return p
}

// FromComparison builds a profile from a comparison record: the provider's
// family template with the record's name, context window and costs.
func FromComparison(rec catalog.ComparisonRecord) Profile {
	p := Family(rec.Provider)
	p.Name = rec.Name
	p.License = rec.License
	p.Description = p.Family + " tokenizer, " + string(rec.Category) + " tier"
	if rec.ContextWindow > 0 {
		p.ContextWindow = rec.ContextWindow
		p.OutputLimit = min(p.OutputLimit, rec.ContextWindow)
	}
	in, out := rec.InputCost, rec.OutputCost
	p.InputCost, p.OutputCost = &in, &out
	return p
}

// FromEntry builds a profile for an admitted catalog entry. Image counting is
// disabled when the entry does not accept images.
func FromEntry(e catalog.Entry) Profile {
	p := FromComparison(normalize.ToComparison(e))
	p.Name = e.ID
	if e.Architecture.Tokenizer != "" {
		p.Description = e.Architecture.Tokenizer + " tokenizer, " + p.Description
	}
	if mct := e.TopProvider.MaxCompletionTokens; mct != nil && *mct > 0 {
		p.OutputLimit = *mct
	}
	if !e.HasInput("image") {
		p.ImageMode = ImageModeNone
		p.ImageTokens = nil
	}
	if !e.HasInput("video") {
		p.VideoTokensPerSecond = 0
	}
	if !e.HasInput("audio") {
		p.AudioTokensPerSecond = 0
	}
	return p
}
