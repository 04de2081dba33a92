package normalize

import (
	"strings"

	"github.com/everstacklabs/modelmeter/internal/catalog"
)

var categoryRules = []Rule[catalog.Category]{
	{Match: mentions(FlagshipMarkers...), Result: catalog.CategoryFlagship},
	{Match: mentions(EfficientMarkers...), Result: catalog.CategoryEfficient},
	{Match: mentions(SpecializedMarkers...), Result: catalog.CategorySpecialized},
}

// Category derives the coarse category from marker mentions.
func Category(s Subject) catalog.Category {
	return FirstMatch(categoryRules, s, catalog.CategoryEfficient)
}

// sizeTokens are explicit parameter counts matched as plain substrings of the
// name, largest first. "13b" therefore reads as "3B".
var sizeTokens = []string{"405b", "70b", "8b", "7b", "3b", "1b"}

var familyParameters = []Rule[string]{
	{Match: nameMentions("gpt-4o-mini", "gpt-4o mini", "gpt-4.1-mini", "gpt-4.1 mini"), Result: "8B-20B"},
	{Match: nameMentions("gpt-4"), Result: "175B+"},
	{Match: nameMentions("gpt-3.5"), Result: "20B-175B"},
	{Match: nameMentions("claude-3-opus", "claude 3 opus", "opus"), Result: "175B+"},
	{Match: nameMentions("haiku"), Result: "20B-70B"},
	{Match: nameMentions("claude"), Result: "70B-175B"},
	{Match: nameMentions("gemini"), Result: "70B-175B"},
	{Match: nameMentions("mixtral"), Result: "47B"},
	{Match: nameMentions("mistral-large", "mistral large"), Result: "123B"},
	{Match: nameMentions("gemma"), Result: "2B-27B"},
	{Match: nameMentions("phi-3", "phi-4"), Result: "3B-14B"},
}

// Parameters estimates a parameter count: an explicit size token in the name,
// then a known family, then a bucket derived from the context length.
func Parameters(s Subject, contextLength int) string {
	for _, tok := range sizeTokens {
		if strings.Contains(s.name, tok) {
			return strings.ToUpper(tok)
		}
	}
	return FirstMatch(familyParameters, s, contextBucket(contextLength))
}

func contextBucket(contextLength int) string {
	switch {
	case contextLength >= 1_000_000:
		return "175B+"
	case contextLength >= 200_000:
		return "70B-175B"
	case contextLength >= 32_000:
		return "7B-70B"
	default:
		return catalog.UnknownParameters
	}
}

// Multimodal reports whether an entry accepts more than text.
func Multimodal(e *catalog.Entry, s Subject) bool {
	return len(e.Architecture.InputModalities) > 1 ||
		e.HasInput("image") ||
		s.Mentions("vision", "multimodal")
}

var languageRules = []Rule[int]{
	{Match: mentions("gpt-4", "claude-3", "claude 3", "gemini"), Result: 100},
	{Match: mentions("llama", "mistral", "mixtral"), Result: 50},
}

// Languages is a coarse estimate of supported natural languages.
func Languages(s Subject) int {
	return FirstMatch(languageRules, s, 20)
}
