// Package normalize projects admitted catalog entries into pricing and
// comparison records. Every derivation is a pure, total function: when no
// heuristic applies, a fixed fallback is returned.
package normalize

import (
	"strings"

	"github.com/everstacklabs/modelmeter/internal/catalog"
)

// Marker lists shared by the category heuristics here and the classifier.
var (
	FlagshipMarkers    = []string{"gpt-4", "claude-3.5", "claude-3-opus", "gemini-2", "o1", "flagship"}
	EfficientMarkers   = []string{"mini", "fast", "turbo", "flash", "haiku", "efficient"}
	SpecializedMarkers = []string{"code", "vision", "multimodal"}
)

// Subject is the lowercased text heuristics match against: identifier, name
// and description.
type Subject struct {
	text string
	name string
}

// SubjectOf builds the match subject for an entry.
func SubjectOf(e *catalog.Entry) Subject {
	return NewSubject(e.ID, e.Name, e.Description)
}

// NewSubject builds a match subject from identifier, name and description.
func NewSubject(id, name, description string) Subject {
	return Subject{
		text: strings.ToLower(id + " " + name + " " + description),
		name: strings.ToLower(id + " " + name),
	}
}

// Mentions reports whether any marker occurs in the subject.
func (s Subject) Mentions(markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(s.text, m) {
			return true
		}
	}
	return false
}

// NameMentions is Mentions restricted to the identifier and name.
func (s Subject) NameMentions(markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(s.name, m) {
			return true
		}
	}
	return false
}

// Rule pairs a predicate with the value it yields. Rules are evaluated in
// order and the first match wins.
type Rule[T any] struct {
	Match  func(Subject) bool
	Result T
}

// FirstMatch returns the result of the first matching rule, or fallback.
func FirstMatch[T any](rules []Rule[T], s Subject, fallback T) T {
	for _, r := range rules {
		if r.Match(s) {
			return r.Result
		}
	}
	return fallback
}

func mentions(markers ...string) func(Subject) bool {
	return func(s Subject) bool { return s.Mentions(markers...) }
}

func nameMentions(markers ...string) func(Subject) bool {
	return func(s Subject) bool { return s.NameMentions(markers...) }
}
