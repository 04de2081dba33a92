package estimate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TextStats are the structural counts of a text.
type TextStats struct {
	Characters int `json:"characters"`
	Words      int `json:"words"`
	Sentences  int `json:"sentences"`
	Paragraphs int `json:"paragraphs"`
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Analyze counts characters (runes), words, sentences and paragraphs.
// Empty and whitespace-only fragments are not counted.
func Analyze(text string) TextStats {
	return TextStats{
		Characters: utf8.RuneCountInString(text),
		Words:      len(strings.FieldsFunc(text, func(r rune) bool { return !isWordRune(r) })),
		Sentences:  countNonBlank(strings.FieldsFunc(text, isSentenceEnd)),
		Paragraphs: countNonBlank(paragraphBreak.Split(text, -1)),
	}
}

func countNonBlank(parts []string) int {
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}
