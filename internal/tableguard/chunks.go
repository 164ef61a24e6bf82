package tableguard

import (
	"strings"
	"unicode/utf8"
)

// Chunk is the view of a split piece that table handling needs.
type Chunk interface {
	Text() string
	// FlaggedTable reports whether the chunk's metadata already marks it as a table.
	FlaggedTable() bool
}

// Info summarises the table structure found in one chunk.
type Info struct {
	RowCount     int  `json:"row_count"`
	HasSeparator bool `json:"has_separator"`
	MarkerCount  int  `json:"marker_count"`
}

// Describe counts rows, separator rows and sentinels in content.
func Describe(content string) Info {
	info := Info{
		MarkerCount: strings.Count(content, StartMarker) + strings.Count(content, EndMarker),
	}
	for _, l := range strings.Split(content, "\n") {
		switch {
		case IsSeparatorRow(l):
			info.HasSeparator = true
		case IsRow(l):
			info.RowCount++
		}
	}
	return info
}

// IsTableText reports whether content holds table material: sentinels, a
// detectable table, or nothing but pipe rows (a fragment of a larger table).
func IsTableText(content string) bool {
	if strings.Contains(content, StartMarker) || strings.Contains(content, EndMarker) {
		return true
	}
	if len(Detect(content)) > 0 {
		return true
	}
	return isRowFragment(content)
}

func isRowFragment(content string) bool {
	rows := 0
	for _, l := range strings.Split(content, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if !IsRow(l) {
			return false
		}
		rows++
	}
	return rows > 0
}

// IsTableChunk reports whether c carries table content.
func IsTableChunk(c Chunk) bool {
	return c.FlaggedTable() || IsTableText(c.Text())
}

// Separate splits chunks into table and regular chunks, keeping order.
func Separate[C Chunk](chunks []C) (tables, regular []C) {
	for _, c := range chunks {
		if IsTableChunk(c) {
			tables = append(tables, c)
		} else {
			regular = append(regular, c)
		}
	}
	return tables, regular
}

// MergeTableChunks groups table chunks by sentinel boundaries and hands each
// group to combine together with its joined, marker-free content. A chunk
// holding a START with no END after it opens a group, the chunk holding the
// END closes it, and chunks in between join it. A chunk holding a whole
// table, or an unmarked chunk outside any group, forms a group of one.
func MergeTableChunks[C Chunk](chunks []C, combine func(group []C, content string) C) []C {
	var out []C
	var group []C
	flush := func() {
		if len(group) == 0 {
			return
		}
		out = append(out, combine(group, JoinContent(group)))
		group = nil
	}

	for _, c := range chunks {
		text := c.Text()
		first := strings.Index(text, StartMarker)
		last := strings.LastIndex(text, StartMarker)
		firstEnd := strings.Index(text, EndMarker)
		lastEnd := strings.LastIndex(text, EndMarker)
		opens := last >= 0 && last > lastEnd
		closes := firstEnd >= 0 && (first < 0 || firstEnd < first)

		switch {
		case closes:
			group = append(group, c)
			flush()
		case first >= 0:
			flush()
			group = append(group, c)
			if !opens {
				flush()
			}
		case len(group) > 0:
			group = append(group, c)
		default:
			group = append(group, c)
			flush()
		}
	}
	flush()
	return out
}

// JoinContent strips sentinels from every chunk and joins them with newlines.
func JoinContent[C Chunk](group []C) string {
	parts := make([]string, 0, len(group))
	for _, c := range group {
		if t := CleanMarkers(c.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// Summary aggregates table chunks in a chunk set.
type Summary struct {
	TableChunks  int     `json:"table_chunks"`
	TotalLength  int     `json:"total_length"`
	AvgLength    float64 `json:"avg_length"`
	LargestTable int     `json:"largest_table"`
}

// Stats counts the table chunks in chunks and measures their length in
// characters.
func Stats[C Chunk](chunks []C) Summary {
	var s Summary
	for _, c := range chunks {
		if !IsTableChunk(c) {
			continue
		}
		n := utf8.RuneCountInString(c.Text())
		s.TableChunks++
		s.TotalLength += n
		s.LargestTable = max(s.LargestTable, n)
	}
	if s.TableChunks > 0 {
		s.AvgLength = float64(s.TotalLength) / float64(s.TableChunks)
	}
	return s
}
