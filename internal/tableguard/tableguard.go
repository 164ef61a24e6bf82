// Package tableguard finds Markdown pipe tables and protects them from being
// cut by the splitters. Tables are bracketed with sentinel comments before
// splitting and the sentinels are removed again once chunks are final.
package tableguard

import (
	"regexp"
	"strings"
)

const (
	StartMarker = "<!-- TABLE_START -->"
	EndMarker   = "<!-- TABLE_END -->"
)

var blankRunRe = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)

// Table describes one detected pipe table.
type Table struct {
	Start     int // byte offset of the first row
	End       int // byte offset just past the last row (excluding its newline)
	StartLine int // 0-based, inclusive
	EndLine   int // 0-based, inclusive
	Rows      int // rows excluding separator rows
	Columns   int // cells in the header row
	HasHeader bool
	Marked    bool // already inside a sentinel pair
	Content   string
}

// IsRow reports whether line looks like a pipe table row.
func IsRow(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.Contains(t, "|") {
		return false
	}
	return strings.HasPrefix(t, "|") || strings.HasSuffix(t, "|") || strings.Count(t, "|") >= 2
}

// IsSeparatorRow reports whether line is a header separator such as |---|:--:|.
func IsSeparatorRow(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.Contains(t, "|") || !strings.Contains(t, "-") {
		return false
	}
	for _, r := range t {
		switch r {
		case '|', '-', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

// Cells splits a row into trimmed cells. The empty edge cells produced by
// leading and trailing pipes are not counted.
func Cells(line string) []string {
	t := strings.TrimSpace(line)
	parts := strings.Split(t, "|")
	if strings.HasPrefix(t, "|") && len(parts) > 0 {
		parts = parts[1:]
	}
	if strings.HasSuffix(t, "|") && len(parts) > 0 {
		parts = parts[:len(parts)-1]
	}
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// Detect locates pipe tables by scanning lines. A table is a run of pipe rows
// in which some row after the first is a separator row; the row just above
// the first separator is taken as the header. Fenced code blocks are skipped.
func Detect(text string) []Table {
	if !strings.Contains(text, "|") {
		return nil
	}
	lines := strings.Split(text, "\n")
	offsets := make([]int, len(lines))
	off := 0
	for i, l := range lines {
		offsets[i] = off
		off += len(l) + 1
	}

	var tables []Table
	fence := ""
	marked := false
	for i := 0; i < len(lines); {
		trimmed := strings.TrimSpace(lines[i])
		if f := fenceOf(trimmed); f != "" {
			switch {
			case fence == "":
				fence = f
			case f == fence:
				fence = ""
			}
			i++
			continue
		}
		if fence != "" {
			i++
			continue
		}
		switch trimmed {
		case StartMarker:
			marked = true
			i++
			continue
		case EndMarker:
			marked = false
			i++
			continue
		}
		if !IsRow(lines[i]) {
			i++
			continue
		}

		j := i
		for j < len(lines) && IsRow(lines[j]) && fenceOf(strings.TrimSpace(lines[j])) == "" {
			j++
		}
		sep := -1
		for k := i + 1; k < j; k++ {
			if IsSeparatorRow(lines[k]) {
				sep = k
				break
			}
		}
		if sep > 0 {
			start, end := sep-1, j-1
			tables = append(tables, newTable(lines, offsets, start, end, marked))
		}
		i = j
	}
	return tables
}

func newTable(lines []string, offsets []int, start, end int, marked bool) Table {
	t := Table{
		Start:     offsets[start],
		End:       offsets[end] + len(lines[end]),
		StartLine: start,
		EndLine:   end,
		Marked:    marked,
		Content:   strings.Join(lines[start:end+1], "\n"),
	}
	header := Cells(lines[start])
	t.Columns = len(header)
	for _, c := range header {
		if c != "" {
			t.HasHeader = true
			break
		}
	}
	for _, l := range lines[start : end+1] {
		if !IsSeparatorRow(l) {
			t.Rows++
		}
	}
	return t
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

// Mark wraps every unmarked table in sentinel comments, each on its own line
// and separated from the surrounding text by one blank line. Row bytes are
// left untouched. Marking already-marked text is a no-op.
func Mark(text string) string {
	tables := Detect(text)
	if len(tables) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(tables)*(len(StartMarker)+len(EndMarker)+8))
	prev := 0
	for _, t := range tables {
		if t.Marked {
			continue
		}
		before := strings.TrimRight(text[prev:t.Start], " \t\r\n")
		if before != "" {
			b.WriteString(before)
			b.WriteString("\n\n")
		}
		b.WriteString(StartMarker)
		b.WriteByte('\n')
		b.WriteString(t.Content)
		b.WriteByte('\n')
		b.WriteString(EndMarker)

		prev = t.End
		for prev < len(text) && (text[prev] == '\n' || text[prev] == '\r') {
			prev++
		}
		switch {
		case prev < len(text):
			b.WriteString("\n\n")
		case t.End < len(text):
			b.WriteByte('\n')
		}
	}
	b.WriteString(text[prev:])
	return b.String()
}

// CleanMarkers removes sentinel comments and the blank lines they leave.
func CleanMarkers(text string) string {
	if !strings.Contains(text, StartMarker) && !strings.Contains(text, EndMarker) {
		return strings.TrimSpace(text)
	}
	text = strings.ReplaceAll(text, StartMarker, "")
	text = strings.ReplaceAll(text, EndMarker, "")
	return collapse(text)
}

// CleanSeparators drops |---|---| rows. Once a table has been cut apart a
// separator row on its own carries no information.
func CleanSeparators(text string) string {
	if !strings.Contains(text, "-") {
		return strings.TrimSpace(text)
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if IsSeparatorRow(l) {
			continue
		}
		kept = append(kept, l)
	}
	return collapse(strings.Join(kept, "\n"))
}

func collapse(text string) string {
	return strings.TrimSpace(blankRunRe.ReplaceAllString(text, "\n\n"))
}

// CountTables returns the number of tables in text, counting sentinel pairs
// when present and falling back to detection otherwise.
func CountTables(text string) int {
	if n := strings.Count(text, StartMarker); n > 0 {
		return n
	}
	return len(Detect(text))
}

// Region is a sentinel-bracketed span, markers included.
type Region struct {
	Start, End int
}

// Regions returns the byte spans of every START..END pair in text. A START
// without a matching END runs to the end of the text.
func Regions(text string) []Region {
	var out []Region
	pos := 0
	for {
		s := strings.Index(text[pos:], StartMarker)
		if s < 0 {
			return out
		}
		s += pos
		e := strings.Index(text[s+len(StartMarker):], EndMarker)
		if e < 0 {
			return append(out, Region{Start: s, End: len(text)})
		}
		end := s + len(StartMarker) + e + len(EndMarker)
		out = append(out, Region{Start: s, End: end})
		pos = end
	}
}
