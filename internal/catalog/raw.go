package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrNoData is returned when a listing body has no "data" array.
var ErrNoData = errors.New(`listing has no "data" array`)

// RawEntry is a listing element decoded without assuming any field is present.
// Pointer and RawMessage fields stay nil when the upstream omitted them.
type RawEntry struct {
	ID                  *string          `json:"id"`
	Name                *string          `json:"name"`
	Created             *float64         `json:"created"`
	Description         *string          `json:"description"`
	Architecture        *RawArchitecture `json:"architecture"`
	ContextLength       *float64         `json:"context_length"`
	TopProvider         *RawTopProvider  `json:"top_provider"`
	Pricing             *RawPricing      `json:"pricing"`
	PerRequestLimits    map[string]any   `json:"per_request_limits"`
	SupportedParameters []string         `json:"supported_parameters"`
}

// RawArchitecture is the unchecked form of Architecture.
type RawArchitecture struct {
	Modality         *string  `json:"modality"`
	InputModalities  []string `json:"input_modalities"`
	OutputModalities []string `json:"output_modalities"`
	Tokenizer        *string  `json:"tokenizer"`
	InstructType     *string  `json:"instruct_type"`
}

// RawTopProvider is the unchecked form of TopProvider.
type RawTopProvider struct {
	ContextLength       *float64 `json:"context_length"`
	MaxCompletionTokens *float64 `json:"max_completion_tokens"`
	IsModerated         *bool    `json:"is_moderated"`
}

// RawPricing holds prices exactly as sent. Each may be a JSON string or number.
type RawPricing struct {
	Prompt            json.RawMessage `json:"prompt"`
	Completion        json.RawMessage `json:"completion"`
	Image             json.RawMessage `json:"image"`
	Request           json.RawMessage `json:"request"`
	InputCacheRead    json.RawMessage `json:"input_cache_read"`
	InputCacheWrite   json.RawMessage `json:"input_cache_write"`
	WebSearch         json.RawMessage `json:"web_search"`
	InternalReasoning json.RawMessage `json:"internal_reasoning"`
}

// Listing is a decoded listing response.
type Listing struct {
	Entries []RawEntry
	// Malformed counts elements that were not JSON objects of the expected shape.
	Malformed int
}

// ParseListing decodes a `{"data": [...]}` body. Elements are decoded one at a
// time so a single malformed element is counted and skipped rather than
// failing the whole listing.
func ParseListing(body []byte) (*Listing, error) {
	var envelope struct {
		Data *[]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}
	if envelope.Data == nil {
		return nil, ErrNoData
	}

	l := &Listing{Entries: make([]RawEntry, 0, len(*envelope.Data))}
	for _, item := range *envelope.Data {
		var raw RawEntry
		if !bytes.HasPrefix(bytes.TrimSpace(item), []byte("{")) {
			l.Malformed++
			continue
		}
		if err := json.Unmarshal(item, &raw); err != nil {
			l.Malformed++
			continue
		}
		l.Entries = append(l.Entries, raw)
	}
	return l, nil
}

// PriceText returns a price field as text. JSON strings are unquoted, numbers
// keep their literal form, and null or absent fields yield ok=false.
func PriceText(v json.RawMessage) (string, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", false
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", false
		}
		return s, true
	}
	if _, err := strconv.ParseFloat(string(v), 64); err != nil {
		return "", false
	}
	return string(v), true
}

// Strict converts an admitted raw entry into an Entry. Absent optional fields
// take their zero value. Callers are expected to have checked admission first.
func (r *RawEntry) Strict() Entry {
	e := Entry{
		ID:                  deref(r.ID),
		Name:                deref(r.Name),
		Description:         deref(r.Description),
		PerRequestLimits:    r.PerRequestLimits,
		SupportedParameters: r.SupportedParameters,
	}
	if r.Created != nil {
		e.Created = int64(*r.Created)
	}
	if r.ContextLength != nil {
		e.ContextLength = int(*r.ContextLength)
	}

	if a := r.Architecture; a != nil {
		e.Architecture = Architecture{
			Modality:         deref(a.Modality),
			InputModalities:  a.InputModalities,
			OutputModalities: a.OutputModalities,
			Tokenizer:        deref(a.Tokenizer),
			InstructType:     deref(a.InstructType),
		}
	}

	if tp := r.TopProvider; tp != nil {
		if tp.ContextLength != nil {
			e.TopProvider.ContextLength = int(*tp.ContextLength)
		}
		if tp.MaxCompletionTokens != nil {
			n := int(*tp.MaxCompletionTokens)
			e.TopProvider.MaxCompletionTokens = &n
		}
		if tp.IsModerated != nil {
			e.TopProvider.IsModerated = *tp.IsModerated
		}
	}

	if p := r.Pricing; p != nil {
		e.Pricing = Pricing{
			Prompt:            priceOrEmpty(p.Prompt),
			Completion:        priceOrEmpty(p.Completion),
			Image:             priceOrEmpty(p.Image),
			Request:           priceOrEmpty(p.Request),
			InputCacheRead:    priceOrEmpty(p.InputCacheRead),
			InputCacheWrite:   priceOrEmpty(p.InputCacheWrite),
			WebSearch:         priceOrEmpty(p.WebSearch),
			InternalReasoning: priceOrEmpty(p.InternalReasoning),
		}
	}
	return e
}

// DisplayID returns the raw identifier for diagnostics, or a positional
// placeholder when it is missing.
func (r *RawEntry) DisplayID(index int) string {
	if r.ID != nil && *r.ID != "" {
		return *r.ID
	}
	return fmt.Sprintf("data[%d]", index)
}

func priceOrEmpty(v json.RawMessage) string {
	s, _ := PriceText(v)
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
