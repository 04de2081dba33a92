package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UnknownProvider is used when an identifier carries no provider slug.
const UnknownProvider = "Unknown"

var providerNames = map[string]string{
	"openai":       "OpenAI",
	"anthropic":    "Anthropic",
	"google":       "Google",
	"meta-llama":   "Meta",
	"mistralai":    "Mistral AI",
	"x-ai":         "xAI",
	"cohere":       "Cohere",
	"deepseek":     "DeepSeek",
	"qwen":         "Qwen",
	"microsoft":    "Microsoft",
	"amazon":       "Amazon",
	"nvidia":       "NVIDIA",
	"perplexity":   "Perplexity",
	"ai21":         "AI21",
	"01-ai":        "01.AI",
	"nousresearch": "Nous Research",
	"moonshotai":   "Moonshot AI",
	"minimax":      "MiniMax",
	"z-ai":         "Z.AI",
	"inflection":   "Inflection",
}

// Provider derives the provider display name from an identifier of the form
// "<provider-slug>/<model-slug>". Unknown slugs are title-cased.
func Provider(id string) string {
	slug, _, found := strings.Cut(id, "/")
	if !found || slug == "" {
		return UnknownProvider
	}
	if name, ok := providerNames[slug]; ok {
		return name
	}
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	if len(words) == 0 {
		return UnknownProvider
	}
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

// DisplayName strips the "<Provider>: " prefix the listing puts in front of
// model names, so "OpenAI: GPT-4o" becomes "GPT-4o".
func DisplayName(name string) string {
	prefix, rest, found := strings.Cut(name, ": ")
	if !found || rest == "" || strings.ContainsAny(prefix, "/(") {
		return name
	}
	return rest
}
