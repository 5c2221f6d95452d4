// Package answer reduces submitted and canonical answers to a comparable form.
package answer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize trims surrounding whitespace and lowercases with the
// language-neutral Unicode mapping. No composition or folding is applied, so
// Normalize(Normalize(s)) == Normalize(s) for every input.
func Normalize(s string) string {
	// A Caser keeps state between calls, so a fresh one is used per call.
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// Match reports whether submitted equals canonical after normalization.
func Match(submitted, canonical string) bool {
	return Normalize(submitted) == Normalize(canonical)
}
