// Package estimate computes token breakdowns and cost estimates for text and
// media inputs against a tokenizer profile.
package estimate

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/shopspring/decimal"

	"github.com/everstacklabs/modelmeter/internal/tokenizer"
)

const (
	// exactFallbackFactor scales the word estimate when an exact encoder fails.
	exactFallbackFactor = 0.95

	wordWeight = 0.7
	charWeight = 0.3

	formulaPixelsPerToken = 750

	defaultTokensPerWord = 1.3
	defaultCharsPerToken = 4.0
)

// providerMultipliers correct the blended estimate for tokenizers that are
// denser or sparser than the average BPE.
var providerMultipliers = map[string]float64{
	"Google":    0.9,
	"Meta":      0.85,
	"Anthropic": 1.05,
}

// Media holds the non-text quantities of an input.
type Media struct {
	ImageCount   int                 `json:"image_count"`
	ImageWidth   int                 `json:"image_width"`
	ImageHeight  int                 `json:"image_height"`
	ImageSize    tokenizer.ImageSize `json:"image_size,omitempty"`
	VideoSeconds float64             `json:"video_seconds"`
	AudioSeconds float64             `json:"audio_seconds"`
}

// Breakdown splits total tokens by content kind.
type Breakdown struct {
	Text  int `json:"text"`
	Image int `json:"image"`
	Video int `json:"video"`
	Audio int `json:"audio"`
}

// Total sums all kinds.
func (b Breakdown) Total() int {
	return b.Text + b.Image + b.Video + b.Audio
}

// Metrics is the result of an estimate.
type Metrics struct {
	TextStats
	Tokens              Breakdown `json:"tokens"`
	TotalTokens         int       `json:"total_tokens"`
	ContextUsagePercent float64   `json:"context_usage_percent"`
	EstimatedCost       float64   `json:"estimated_cost"`
	// Exact is true when text tokens came from an exact encoder.
	Exact bool `json:"exact"`
}

// EncoderLookup finds the exact encoder for a provider.
type EncoderLookup func(provider string) (tokenizer.Encoder, bool)

// Estimator computes Metrics. The zero value uses heuristics only.
type Estimator struct {
	lookup EncoderLookup
}

// New creates an Estimator. A nil lookup disables exact encoders.
func New(lookup EncoderLookup) *Estimator {
	return &Estimator{lookup: lookup}
}

// Default uses the process-wide encoder registry.
func Default() *Estimator {
	return New(tokenizer.Lookup)
}

// Estimate computes the token breakdown, context usage and cost of an input.
// It never fails: encoder errors fall back to the heuristic estimate.
func (est *Estimator) Estimate(text string, p tokenizer.Profile, m Media, expectedOutputWords int) Metrics {
	stats := Analyze(text)
	tpw := positiveOr(p.AvgTokensPerWord, defaultTokensPerWord)

	textTokens, exact := est.textTokens(text, stats, p)
	b := Breakdown{
		Text:  textTokens,
		Image: ImageTokens(p, m),
		Video: rateTokens(m.VideoSeconds, p.VideoTokensPerSecond),
		Audio: rateTokens(m.AudioSeconds, p.AudioTokensPerSecond),
	}
	total := b.Total()

	return Metrics{
		TextStats:           stats,
		Tokens:              b,
		TotalTokens:         total,
		ContextUsagePercent: contextUsage(total, p.ContextWindow),
		EstimatedCost:       cost(p, total, expectedOutputWords, tpw),
		Exact:               exact,
	}
}

func (est *Estimator) textTokens(text string, stats TextStats, p tokenizer.Profile) (int, bool) {
	tpw := positiveOr(p.AvgTokensPerWord, defaultTokensPerWord)
	cpt := positiveOr(p.AvgCharsPerToken, defaultCharsPerToken)

	if est.lookup != nil {
		if enc, ok := est.lookup(p.Provider); ok {
			n, err := safeCount(enc, text)
			if err == nil {
				return n, true
			}
			slog.Debug("exact encoder failed, using word estimate", "provider", p.Provider, "error", err)
			return ceil(float64(stats.Words) * tpw * exactFallbackFactor), false
		}
	}
	return HeuristicTokens(stats, tpw, cpt, p.Provider), false
}

func safeCount(enc tokenizer.Encoder, text string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: %v", tokenizer.ErrEncoderFailure, r)
		}
	}()
	return enc.Count(text)
}

// HeuristicTokens blends a word-based and a character-based estimate, scaled
// by the provider multiplier, and never returns less than the pure
// character-based estimate.
func HeuristicTokens(stats TextStats, tokensPerWord, charsPerToken float64, provider string) int {
	mult, ok := providerMultipliers[provider]
	if !ok {
		mult = 1.0
	}
	words := float64(stats.Words)
	chars := float64(stats.Characters)

	blended := ceil((words*tokensPerWord*wordWeight + chars/charsPerToken*charWeight) * mult)
	floor := ceil(chars / charsPerToken)
	return max(blended, floor)
}

// ImageTokens counts image tokens according to the profile's image mode.
func ImageTokens(p tokenizer.Profile, m Media) int {
	if m.ImageCount <= 0 {
		return 0
	}
	switch p.ImageMode {
	case tokenizer.ImageModeFormula:
		if m.ImageWidth <= 0 || m.ImageHeight <= 0 {
			return 0
		}
		pixels := m.ImageWidth * m.ImageHeight
		perImage := (pixels + formulaPixelsPerToken - 1) / formulaPixelsPerToken
		return perImage * m.ImageCount
	case tokenizer.ImageModeFixed:
		size := m.ImageSize
		if size != tokenizer.ImageLarge {
			size = tokenizer.ImageSmall
		}
		return p.ImageTokens[size] * m.ImageCount
	default:
		return 0
	}
}

func rateTokens(seconds, perSecond float64) int {
	if seconds <= 0 || perSecond <= 0 {
		return 0
	}
	return ceil(seconds * perSecond)
}

func contextUsage(total, window int) float64 {
	if window <= 0 {
		return 0
	}
	return math.Round(1000*float64(total)/float64(window)) / 10
}

func cost(p tokenizer.Profile, total, outputWords int, tpw float64) float64 {
	if !p.HasCost() {
		return 0
	}
	in := decimal.Zero
	if p.InputCost != nil {
		in = decimal.NewFromFloat(*p.InputCost)
	}
	out := decimal.Zero
	if p.OutputCost != nil {
		out = decimal.NewFromFloat(*p.OutputCost)
	}

	outputTokens := 0
	if outputWords > 0 {
		outputTokens = ceil(float64(outputWords) * tpw)
	}

	perK := decimal.NewFromInt(1000)
	c := decimal.NewFromInt(int64(total)).Div(perK).Mul(in).
		Add(decimal.NewFromInt(int64(outputTokens)).Div(perK).Mul(out))
	return c.InexactFloat64()
}

func ceil(f float64) int {
	return int(math.Ceil(f))
}

func positiveOr(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}
