package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everstacklabs/modelmeter/internal/catalog"
)

func TestTiktokenCount(t *testing.T) {
	enc, ok := Lookup("OpenAI")
	require.True(t, ok)

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"Hello world", 2},
		{"hello", 1},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			n, err := enc.Count(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestTiktokenUnknownEncoding(t *testing.T) {
	_, err := NewTiktoken("no_such_encoding").Count("hi")
	assert.ErrorIs(t, err, ErrEncoderFailure)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("OpenAI")
	assert.False(t, ok)

	r.Register("Mistral AI", NewTiktoken("cl100k_base"))
	r.Register("Acme", NewTiktoken("cl100k_base"))
	assert.Equal(t, []string{"Acme", "Mistral AI"}, r.Providers())

	assert.Contains(t, Default().Providers(), "OpenAI")
}

func TestFamily(t *testing.T) {
	tests := []struct {
		provider string
		mode     ImageMode
		video    float64
		family   string
	}{
		{"OpenAI", ImageModeFixed, 0, "GPT (tiktoken cl100k_base)"},
		{"Anthropic", ImageModeFormula, 0, "Claude"},
		{"Google", ImageModeFixed, 263, "Gemini (SentencePiece)"},
		{"Meta", ImageModeNone, 0, "Llama (tiktoken-based BPE)"},
		{"Acme", ImageModeNone, 0, "Generic BPE"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p := Family(tt.provider)
			assert.Equal(t, tt.provider, p.Provider)
			assert.Equal(t, tt.mode, p.ImageMode)
			assert.Equal(t, tt.video, p.VideoTokensPerSecond)
			assert.Equal(t, tt.family, p.Family)
			assert.Positive(t, p.AvgTokensPerWord)
			assert.Positive(t, p.AvgCharsPerToken)
			assert.False(t, p.HasCost())
		})
	}
}

func TestFamilyReturnsIndependentTables(t *testing.T) {
	a := Family("OpenAI")
	a.ImageTokens[ImageSmall] = 1
	assert.Equal(t, 85, Family("OpenAI").ImageTokens[ImageSmall])
}

func TestFromComparison(t *testing.T) {
	rec := catalog.ComparisonRecord{
		Name: "Claude 3.5 Sonnet", Provider: "Anthropic", ContextWindow: 4096,
		InputCost: 0.003, OutputCost: 0.015, Category: catalog.CategoryFlagship,
	}
	p := FromComparison(rec)

	assert.Equal(t, "Claude 3.5 Sonnet", p.Name)
	assert.Equal(t, 4096, p.ContextWindow)
	assert.Equal(t, 4096, p.OutputLimit, "output limit capped at context window")
	require.True(t, p.HasCost())
	assert.Equal(t, 0.003, *p.InputCost)
	assert.Equal(t, 0.015, *p.OutputCost)
	assert.Equal(t, ImageModeFormula, p.ImageMode)
}

func TestFromEntry(t *testing.T) {
	mct := 16384
	e := catalog.Entry{
		ID:   "openai/gpt-4o",
		Name: "OpenAI: GPT-4o",
		Architecture: catalog.Architecture{
			InputModalities: []string{"text", "image"},
			Tokenizer:       "GPT",
		},
		ContextLength: 128000,
		TopProvider:   catalog.TopProvider{MaxCompletionTokens: &mct},
		Pricing:       catalog.Pricing{Prompt: "0.0000025", Completion: "0.00001"},
	}

	p := FromEntry(e)
	assert.Equal(t, "openai/gpt-4o", p.Name)
	assert.Equal(t, "OpenAI", p.Provider)
	assert.Equal(t, 128000, p.ContextWindow)
	assert.Equal(t, 16384, p.OutputLimit)
	assert.Equal(t, ImageModeFixed, p.ImageMode)
	assert.InDelta(t, 0.0025, *p.InputCost, 1e-12)

	e.Architecture.InputModalities = []string{"text"}
	p = FromEntry(e)
	assert.Equal(t, ImageModeNone, p.ImageMode)
	assert.Nil(t, p.ImageTokens)
}

func TestImageSizeValid(t *testing.T) {
	assert.True(t, ImageSize("").Valid())
	assert.True(t, ImageSmall.Valid())
	assert.True(t, ImageLarge.Valid())
	assert.False(t, ImageSize("medium").Valid())
}
