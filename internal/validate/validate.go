package validate

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/everstacklabs/modelmeter/internal/catalog"
)

// Severity classifies validation issues.
type Severity int

const (
	SeverityError   Severity = iota // Entry is not admitted / dataset is rejected
	SeverityWarning                 // Reported but doesn't block
)

// Issue represents a single validation problem.
type Issue struct {
	Severity Severity
	Model    string
	Field    string
	Message  string
}

func (i Issue) String() string {
	sev := "ERROR"
	if i.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s: %s", sev, i.Model, i.Field, i.Message)
}

// Result holds all validation issues.
type Result struct {
	Issues []Issue
}

// HasErrors returns true if there are any blocking errors.
func (r *Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (r *Result) Errors() []Issue {
	var errs []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			errs = append(errs, i)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (r *Result) Warnings() []Issue {
	var warns []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			warns = append(warns, i)
		}
	}
	return warns
}

func (r *Result) errorf(model, field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{SeverityError, model, field, fmt.Sprintf(format, args...)})
}

func (r *Result) warnf(model, field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{SeverityWarning, model, field, fmt.Sprintf(format, args...)})
}

// Known modality values.
var knownModalities = map[string]bool{
	"text":      true,
	"image":     true,
	"file":      true,
	"audio":     true,
	"video":     true,
	"embedding": true,
}

// Entry checks a raw listing element against the admission rules. Any error
// means the element must be dropped; warnings describe fields that will be
// normalized to fallbacks.
func Entry(raw *catalog.RawEntry, index int) *Result {
	r := &Result{}
	id := raw.DisplayID(index)

	// Required fields
	if raw.ID == nil || *raw.ID == "" {
		r.errorf(id, "id", "required field is missing")
	}
	if raw.Name == nil || *raw.Name == "" {
		r.errorf(id, "name", "required field is missing")
	}
	if raw.Description == nil {
		r.errorf(id, "description", "required field is missing")
	}
	if raw.Architecture == nil || raw.Architecture.InputModalities == nil {
		r.errorf(id, "architecture.input_modalities", "required field is missing")
	}
	if raw.Pricing == nil {
		r.errorf(id, "pricing", "required field is missing")
	} else {
		checkPrice(r, id, "pricing.prompt", raw.Pricing.Prompt, true)
		checkPrice(r, id, "pricing.completion", raw.Pricing.Completion, true)
		checkPrice(r, id, "pricing.image", raw.Pricing.Image, false)
		checkPrice(r, id, "pricing.request", raw.Pricing.Request, false)
	}

	if raw.ID != nil && *raw.ID != "" && !strings.Contains(*raw.ID, "/") {
		r.warnf(id, "id", "identifier has no provider prefix")
	}

	// Modality taxonomy
	if raw.Architecture != nil {
		for _, mod := range raw.Architecture.InputModalities {
			if !knownModalities[mod] {
				r.warnf(id, "architecture.input_modalities", "unknown modality %q", mod)
			}
		}
		for _, mod := range raw.Architecture.OutputModalities {
			if !knownModalities[mod] {
				r.warnf(id, "architecture.output_modalities", "unknown modality %q", mod)
			}
		}
	}

	return r
}

func checkPrice(r *Result, id, field string, v []byte, required bool) {
	text, ok := catalog.PriceText(v)
	if !ok {
		if required {
			r.errorf(id, field, "required field is missing")
		}
		return
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		r.warnf(id, field, "value %q is not a number, treated as 0", text)
		return
	}
	if d.IsNegative() {
		r.warnf(id, field, "negative value %s, treated as 0", text)
	}
}

// Static validates a curated dataset.
func Static(ds *catalog.StaticDataset) *Result {
	r := &Result{}

	seen := make(map[string]bool)
	for _, m := range ds.Pricing {
		name := m.Name
		if name == "" {
			r.errorf("pricing", "name", "required field is empty")
			continue
		}
		if seen[name] {
			r.errorf(name, "name", "duplicate pricing record")
		}
		seen[name] = true

		if m.Provider == "" {
			r.errorf(name, "provider", "required field is empty")
		}
		checkCost(r, name, "input_cost", m.InputCost)
		checkCost(r, name, "output_cost", m.OutputCost)
		if m.Category != "" && !m.Category.Valid() {
			r.warnf(name, "category", "unknown category %q", m.Category)
		}
		if m.Quality != nil {
			checkScore(r, name, "quality", *m.Quality)
		}
	}

	seen = make(map[string]bool)
	for _, m := range ds.Comparison {
		name := m.Name
		if name == "" {
			r.errorf("comparison", "name", "required field is empty")
			continue
		}
		if seen[name] {
			r.errorf(name, "name", "duplicate comparison record")
		}
		seen[name] = true

		if m.Provider == "" {
			r.errorf(name, "provider", "required field is empty")
		}
		checkCost(r, name, "input_cost", m.InputCost)
		checkCost(r, name, "output_cost", m.OutputCost)
		checkScore(r, name, "speed", m.Speed)
		checkScore(r, name, "reasoning", m.Reasoning)
		checkScore(r, name, "coding", m.Coding)
		checkScore(r, name, "creative", m.Creative)
		if m.ContextWindow < 0 {
			r.errorf(name, "context_window", "negative value %d", m.ContextWindow)
		}
		if m.Category != "" && !m.Category.Valid() {
			r.warnf(name, "category", "unknown category %q", m.Category)
		}
		if m.IsGeneric() {
			r.warnf(name, "scores", "record carries only default scores")
		}
	}

	return r
}

func checkCost(r *Result, name, field string, v float64) {
	if v < 0 {
		r.errorf(name, field, "negative cost %.6f", v)
	}
}

func checkScore(r *Result, name, field string, v int) {
	if v < 0 || v > 100 {
		r.errorf(name, field, "value %d outside expected range [0, 100]", v)
	}
}

// FormatResult formats validation results for display.
func FormatResult(r *Result) string {
	if len(r.Issues) == 0 {
		return "Validation passed: no issues found."
	}

	var b strings.Builder
	errors := r.Errors()
	warnings := r.Warnings()

	if len(errors) > 0 {
		b.WriteString(fmt.Sprintf("Errors (%d):\n", len(errors)))
		for _, e := range errors {
			b.WriteString(fmt.Sprintf("  %s\n", e))
		}
	}

	if len(warnings) > 0 {
		b.WriteString(fmt.Sprintf("Warnings (%d):\n", len(warnings)))
		for _, w := range warnings {
			b.WriteString(fmt.Sprintf("  %s\n", w))
		}
	}

	return b.String()
}
