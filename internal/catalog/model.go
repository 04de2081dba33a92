package catalog

import (
	"slices"
	"strings"
)

// Entry is one admitted model from the upstream listing.
// Field names match the listing's JSON schema.
type Entry struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Created             int64          `json:"created"`
	Description         string         `json:"description"`
	Architecture        Architecture   `json:"architecture"`
	ContextLength       int            `json:"context_length"`
	TopProvider         TopProvider    `json:"top_provider"`
	Pricing             Pricing        `json:"pricing"`
	PerRequestLimits    map[string]any `json:"per_request_limits,omitempty"`
	SupportedParameters []string       `json:"supported_parameters,omitempty"`
}

// Architecture describes a model's modalities and tokenizer.
type Architecture struct {
	Modality         string   `json:"modality"`
	InputModalities  []string `json:"input_modalities"`
	OutputModalities []string `json:"output_modalities"`
	Tokenizer        string   `json:"tokenizer"`
	InstructType     string   `json:"instruct_type,omitempty"`
}

// TopProvider holds limits reported by the primary serving provider.
type TopProvider struct {
	ContextLength       int  `json:"context_length"`
	MaxCompletionTokens *int `json:"max_completion_tokens,omitempty"`
	IsModerated         bool `json:"is_moderated"`
}

// Pricing holds per-token prices as decimal strings in USD.
type Pricing struct {
	Prompt            string `json:"prompt"`
	Completion        string `json:"completion"`
	Image             string `json:"image,omitempty"`
	Request           string `json:"request,omitempty"`
	InputCacheRead    string `json:"input_cache_read,omitempty"`
	InputCacheWrite   string `json:"input_cache_write,omitempty"`
	WebSearch         string `json:"web_search,omitempty"`
	InternalReasoning string `json:"internal_reasoning,omitempty"`
}

// ProviderSlug returns the part of the ID before the first "/", or "" when
// the ID has no slash.
func (e *Entry) ProviderSlug() string {
	slug, _, found := strings.Cut(e.ID, "/")
	if !found {
		return ""
	}
	return slug
}

// HasInput reports whether the entry accepts the given input modality.
func (e *Entry) HasInput(modality string) bool {
	return slices.Contains(e.Architecture.InputModalities, modality)
}

// SupportsParameter reports whether the entry lists the request parameter.
func (e *Entry) SupportsParameter(name string) bool {
	return slices.Contains(e.SupportedParameters, name)
}
