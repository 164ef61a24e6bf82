// Package chunker holds the two text splitters the hierarchy builder is made
// of: a structural splitter that cuts Markdown at headings, and a recursive
// splitter that cuts text to a character budget.
package chunker

import (
	"errors"
	"unicode/utf8"
)

// ErrInvalidConfig is returned for impossible splitter settings.
var ErrInvalidConfig = errors.New("invalid chunker config")

// Splitter cuts text into ordered pieces.
type Splitter interface {
	Split(text string) []string
}

// Length is the size measure used everywhere in this module: characters,
// not bytes.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}
