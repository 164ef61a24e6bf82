// Package normalize cleans converter output before it is split: HTML
// remnants, table cell padding, separator rows and stray blank lines.
package normalize

import (
	"regexp"
	"strings"

	"github.com/dgallion1/hierchunk/internal/tableguard"
)

var (
	brRe       = regexp.MustCompile(`(?i)<br\s*/?>`)
	commentRe  = regexp.MustCompile(`<!--[\s\S]*?-->`)
	tagRe      = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9-]*(?:\s[^<>]*)?/?>`)
	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

const maxHTMLPass = 8

// Options selects which cleaning steps run. The zero value disables all of
// them; use DefaultOptions for the usual behaviour.
type Options struct {
	StripHTML          bool
	CleanTables        bool
	SeparateTables     bool // blank line after a table that runs into text
	TrimTrailingSpace  bool
	CollapseBlankLines bool
}

// DefaultOptions enables every step.
func DefaultOptions() Options {
	return Options{
		StripHTML:          true,
		CleanTables:        true,
		SeparateTables:     true,
		TrimTrailingSpace:  true,
		CollapseBlankLines: true,
	}
}

// Normalizer applies a fixed set of cleaning steps. It holds no state and is
// safe for concurrent use.
type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

// Normalize runs the default steps over text.
func Normalize(text string) string {
	return New(DefaultOptions()).Normalize(text)
}

// Normalize returns the cleaned text, ending in exactly one newline, or ""
// when nothing but whitespace remains.
func (n *Normalizer) Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if strings.TrimSpace(text) == "" {
		return ""
	}

	if n.opts.StripHTML {
		text = stripHTML(text)
	}

	lines := strings.Split(text, "\n")
	if n.opts.CleanTables {
		lines = cleanTableRows(lines)
	}
	if n.opts.SeparateTables {
		lines = separateTables(lines)
	}
	if n.opts.TrimTrailingSpace {
		for i, l := range lines {
			lines[i] = strings.TrimRight(l, " \t")
		}
	}
	text = strings.Join(lines, "\n")

	if n.opts.CollapseBlankLines {
		if n.opts.TrimTrailingSpace {
			text = blankRunRe.ReplaceAllString(text, "\n\n")
		} else {
			text = collapseLoose(text)
		}
	}

	text = strings.Trim(text, "\n")
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return text + "\n"
}

// stripHTML turns <br> into line breaks (a space inside table rows, where a
// newline would break the row), then removes comments and tags until nothing
// changes. Table sentinels are kept.
func stripHTML(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if !brRe.MatchString(l) {
			continue
		}
		if tableguard.IsRow(l) {
			lines[i] = brRe.ReplaceAllString(l, " ")
		} else {
			lines[i] = brRe.ReplaceAllString(l, "\n")
		}
	}
	text = strings.Join(lines, "\n")

	for range maxHTMLPass {
		next := commentRe.ReplaceAllStringFunc(text, func(c string) string {
			if c == tableguard.StartMarker || c == tableguard.EndMarker {
				return c
			}
			return ""
		})
		next = tagRe.ReplaceAllString(next, "")
		if next == text {
			break
		}
		text = next
	}
	return text
}

// cleanTableRows trims and collapses cell whitespace and rewrites separator
// rows to a canonical form. The number of pipe-delimited parts never changes,
// so header and separator rows keep their column count.
func cleanTableRows(lines []string) []string {
	fence := ""
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if f := fenceOf(trimmed); f != "" {
			switch {
			case fence == "":
				fence = f
			case f == fence:
				fence = ""
			}
			continue
		}
		if fence != "" || !tableguard.IsRow(l) {
			continue
		}
		if tableguard.IsSeparatorRow(l) {
			lines[i] = canonicalSeparator(trimmed)
		} else {
			lines[i] = cleanRow(trimmed)
		}
	}
	return lines
}

func cleanRow(row string) string {
	parts := strings.Split(row, "|")
	for i, p := range parts {
		parts[i] = strings.Join(strings.Fields(p), " ")
	}
	return strings.Join(parts, "|")
}

func canonicalSeparator(row string) string {
	parts := strings.Split(row, "|")
	last := len(parts) - 1
	for i, p := range parts {
		cell := strings.TrimSpace(p)
		if cell == "" && (i == 0 || i == last) {
			parts[i] = ""
			continue
		}
		left := strings.HasPrefix(cell, ":")
		right := len(cell) > 1 && strings.HasSuffix(cell, ":")
		switch {
		case left && right:
			parts[i] = ":---:"
		case left:
			parts[i] = ":---"
		case right:
			parts[i] = "---:"
		default:
			parts[i] = "---"
		}
	}
	return strings.Join(parts, "|")
}

// separateTables inserts a blank line between a table row and a following
// line of ordinary text.
func separateTables(lines []string) []string {
	out := make([]string, 0, len(lines))
	fence := ""
	for i, l := range lines {
		out = append(out, l)
		trimmed := strings.TrimSpace(l)
		if f := fenceOf(trimmed); f != "" {
			switch {
			case fence == "":
				fence = f
			case f == fence:
				fence = ""
			}
			continue
		}
		if fence != "" || i+1 >= len(lines) || !tableguard.IsRow(l) {
			continue
		}
		next := strings.TrimSpace(lines[i+1])
		if next == "" || tableguard.IsRow(next) || next == tableguard.EndMarker || fenceOf(next) != "" {
			continue
		}
		out = append(out, "")
	}
	return out
}

// collapseLoose treats whitespace-only lines as blank when trailing space is
// kept.
func collapseLoose(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func fenceOf(trimmed string) string {
	switch {
	case strings.HasPrefix(trimmed, "```"):
		return "```"
	case strings.HasPrefix(trimmed, "~~~"):
		return "~~~"
	}
	return ""
}
