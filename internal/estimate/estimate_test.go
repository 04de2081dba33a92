package estimate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everstacklabs/modelmeter/internal/tokenizer"
)

func genericProfile() tokenizer.Profile {
	return tokenizer.Profile{
		Name:             "Generic",
		Provider:         "Generic",
		AvgTokensPerWord: 1.3,
		AvgCharsPerToken: 4,
		ContextWindow:    8192,
	}
}

type stubEncoder struct {
	n     int
	err   error
	panic bool
}

func (s stubEncoder) Count(string) (int, error) {
	if s.panic {
		panic("bad rank table")
	}
	return s.n, s.err
}

func lookupOf(enc tokenizer.Encoder) EncoderLookup {
	return func(string) (tokenizer.Encoder, bool) { return enc, true }
}

func TestHelloWorldHeuristic(t *testing.T) {
	m := New(nil).Estimate("Hello world", genericProfile(), Media{}, 0)

	assert.Equal(t, 11, m.Characters)
	assert.Equal(t, 2, m.Words)
	assert.Equal(t, 3, m.Tokens.Text)
	assert.Equal(t, 3, m.TotalTokens)
	assert.False(t, m.Exact)
	assert.Zero(t, m.EstimatedCost, "no cost data")
}

func TestProviderMultipliers(t *testing.T) {
	// 10 words, 19 characters: word part 9.1, char part 1.425.
	text := "a a a a a a a a a a"
	tests := []struct {
		provider string
		want     int
	}{
		{"Generic", 11},
		{"Anthropic", 12},
		{"Google", 10},
		{"Meta", 9},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p := genericProfile()
			p.Provider = tt.provider
			assert.Equal(t, tt.want, New(nil).Estimate(text, p, Media{}, 0).Tokens.Text)
		})
	}
}

func TestCharacterFloor(t *testing.T) {
	// One long word: blended ceil((1.3*0.7 + 40/4*0.3)*0.85) = 4, floor ceil(40/4) = 10.
	p := genericProfile()
	p.Provider = "Meta"
	text := "abcdefghijabcdefghijabcdefghijabcdefghij"
	assert.Equal(t, 10, New(nil).Estimate(text, p, Media{}, 0).Tokens.Text)
}

func TestExactEncoder(t *testing.T) {
	p := genericProfile()
	p.Provider = "OpenAI"

	m := Default().Estimate("Hello world", p, Media{}, 0)
	assert.True(t, m.Exact)
	assert.Equal(t, 2, m.Tokens.Text)

	m = New(lookupOf(stubEncoder{n: 42})).Estimate("anything", p, Media{}, 0)
	assert.Equal(t, 42, m.Tokens.Text)
}

func TestEncoderFailureFallsBack(t *testing.T) {
	tests := []struct {
		name string
		enc  stubEncoder
	}{
		{"error", stubEncoder{err: errors.New("boom")}},
		{"panic", stubEncoder{panic: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Metrics
			require.NotPanics(t, func() {
				m = New(lookupOf(tt.enc)).Estimate("Hello world", genericProfile(), Media{}, 0)
			})
			// ceil(2 * 1.3 * 0.95) = ceil(2.47)
			assert.Equal(t, 3, m.Tokens.Text)
			assert.False(t, m.Exact)
		})
	}
}

func TestImageTokens(t *testing.T) {
	formula := genericProfile()
	formula.ImageMode = tokenizer.ImageModeFormula

	fixed := tokenizer.Family("OpenAI")

	tests := []struct {
		name string
		p    tokenizer.Profile
		m    Media
		want int
	}{
		{"formula 1000x1000 x2", formula, Media{ImageCount: 2, ImageWidth: 1000, ImageHeight: 1000}, 2668},
		{"formula exact division", formula, Media{ImageCount: 1, ImageWidth: 750, ImageHeight: 1}, 1},
		{"formula without size", formula, Media{ImageCount: 3}, 0},
		{"fixed default small", fixed, Media{ImageCount: 2}, 170},
		{"fixed large", fixed, Media{ImageCount: 3, ImageSize: tokenizer.ImageLarge}, 2295},
		{"fixed ignores dimensions", fixed, Media{ImageCount: 1, ImageWidth: 4000, ImageHeight: 4000, ImageSize: tokenizer.ImageLarge}, 765},
		{"fixed unknown size counts as small", fixed, Media{ImageCount: 2, ImageSize: "medium"}, 170},
		{"no images", fixed, Media{ImageWidth: 100, ImageHeight: 100}, 0},
		{"none mode", genericProfile(), Media{ImageCount: 5, ImageWidth: 100, ImageHeight: 100}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ImageTokens(tt.p, tt.m))
		})
	}
}

func TestVideoAndAudio(t *testing.T) {
	p := tokenizer.Family("Google")
	m := New(nil).Estimate("", p, Media{VideoSeconds: 10, AudioSeconds: 60}, 0)

	assert.Equal(t, 2630, m.Tokens.Video)
	assert.Equal(t, 1920, m.Tokens.Audio)
	assert.Equal(t, 0, m.Tokens.Text)
	assert.Equal(t, 4550, m.TotalTokens)

	m = New(nil).Estimate("", genericProfile(), Media{VideoSeconds: 10, AudioSeconds: 60}, 0)
	assert.Zero(t, m.TotalTokens, "no rates declared")
}

func TestContextUsageAndCost(t *testing.T) {
	in, out := 0.01, 0.03
	p := genericProfile()
	p.ImageMode = tokenizer.ImageModeFormula
	p.ContextWindow = 3000
	p.InputCost, p.OutputCost = &in, &out

	// 1000x750 image is exactly 1000 tokens; 100 output words are 130 tokens.
	m := New(nil).Estimate("", p, Media{ImageCount: 1, ImageWidth: 1000, ImageHeight: 750}, 100)

	assert.Equal(t, 1000, m.TotalTokens)
	assert.Equal(t, 33.3, m.ContextUsagePercent)
	assert.InDelta(t, 0.01+0.0039, m.EstimatedCost, 1e-12)
}

func TestEstimateIsDeterministic(t *testing.T) {
	p := tokenizer.Family("Anthropic")
	in := 0.003
	p.InputCost = &in
	text := "The quick brown fox jumps over the lazy dog.\n\nIt was not amused!"
	media := Media{ImageCount: 2, ImageWidth: 512, ImageHeight: 512, AudioSeconds: 3}

	est := Default()
	first := est.Estimate(text, p, media, 50)
	for range 20 {
		assert.Equal(t, first, est.Estimate(text, p, media, 50))
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		text string
		want TextStats
	}{
		{"", TextStats{}},
		{"Hello world", TextStats{Characters: 11, Words: 2, Sentences: 1, Paragraphs: 1}},
		{"One. Two! Three?", TextStats{Characters: 16, Words: 3, Sentences: 3, Paragraphs: 1}},
		{"...", TextStats{Characters: 3, Words: 0, Sentences: 0, Paragraphs: 1}},
		{"Para one.\n\nPara two.\n  \nPara three.", TextStats{Characters: 35, Words: 6, Sentences: 3, Paragraphs: 3}},
		{"don't stop_here", TextStats{Characters: 15, Words: 3, Sentences: 1, Paragraphs: 1}},
		{"héllo wörld", TextStats{Characters: 11, Words: 2, Sentences: 1, Paragraphs: 1}},
		{"   \n\n  ", TextStats{Characters: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Analyze(tt.text))
		})
	}
}
