package chunker

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dgallion1/hierchunk/internal/tableguard"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// HeaderLevel maps an ATX heading marker to the metadata key its text is
// stored under.
type HeaderLevel struct {
	Marker string `yaml:"marker" json:"marker"`
	Name   string `yaml:"name" json:"name"`
}

// DefaultHeaderLevels splits on # through ####.
func DefaultHeaderLevels() []HeaderLevel {
	return []HeaderLevel{
		{Marker: "#", Name: "Header 1"},
		{Marker: "##", Name: "Header 2"},
		{Marker: "###", Name: "Header 3"},
		{Marker: "####", Name: "Header 4"},
	}
}

// Section is a run of Markdown that starts at a heading (or at the top of
// the document) and ends before the next configured heading.
type Section struct {
	Content string
	// Headers holds the active heading text per configured level name, e.g.
	// {"Header 1": "Guide", "Header 2": "Install"}.
	Headers map[string]string
	Level   int    // depth of the heading that opens the section, 0 if none
	Heading string // text of that heading
}

// StructuralSplitter cuts Markdown at ATX headings of the configured levels.
// Heading lines stay in the section they open.
type StructuralSplitter struct {
	levels map[int]string
	md     goldmark.Markdown
}

// NewStructuralSplitter validates the header levels. Markers must be one to
// six '#' characters and names must be unique and non-empty.
func NewStructuralSplitter(levels []HeaderLevel) (*StructuralSplitter, error) {
	if len(levels) == 0 {
		levels = DefaultHeaderLevels()
	}
	s := &StructuralSplitter{
		levels: make(map[int]string, len(levels)),
		md:     goldmark.New(),
	}
	names := make(map[string]bool, len(levels))
	for _, l := range levels {
		depth := len(l.Marker)
		if depth < 1 || depth > 6 || strings.Trim(l.Marker, "#") != "" {
			return nil, fmt.Errorf("%w: invalid heading marker %q", ErrInvalidConfig, l.Marker)
		}
		if l.Name == "" || names[l.Name] {
			return nil, fmt.Errorf("%w: heading name for %q must be unique and non-empty", ErrInvalidConfig, l.Marker)
		}
		if _, dup := s.levels[depth]; dup {
			return nil, fmt.Errorf("%w: heading marker %q listed twice", ErrInvalidConfig, l.Marker)
		}
		names[l.Name] = true
		s.levels[depth] = l.Name
	}
	return s, nil
}

// LevelName returns the metadata key for a heading depth.
func (s *StructuralSplitter) LevelName(depth int) (string, bool) {
	name, ok := s.levels[depth]
	return name, ok
}

type cut struct {
	offset int
	level  int
	title  string
}

// Split returns sections in source order. Text without any configured
// heading comes back as a single section; blank text yields none.
func (s *StructuralSplitter) Split(md string) []Section {
	if strings.TrimSpace(md) == "" {
		return nil
	}
	src := []byte(md)
	doc := s.md.Parser().Parse(text.NewReader(src))

	regions := tableguard.Regions(md)
	var cuts []cut
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		if _, ok := s.levels[h.Level]; !ok {
			continue
		}
		start, line, ok := headingLine(h, src)
		if !ok || !strings.HasPrefix(strings.TrimLeft(line, " "), "#") {
			// Setext headings are not split points.
			continue
		}
		if insideRegion(start, regions) {
			continue
		}
		cuts = append(cuts, cut{offset: start, level: h.Level, title: atxTitle(line)})
	}

	if len(cuts) == 0 {
		return []Section{{Content: strings.TrimSpace(md)}}
	}

	var sections []Section
	if pre := strings.TrimSpace(md[:cuts[0].offset]); pre != "" {
		sections = append(sections, Section{Content: pre})
	}

	active := make(map[int]string)
	for i, c := range cuts {
		end := len(md)
		if i+1 < len(cuts) {
			end = cuts[i+1].offset
		}
		for depth := range active {
			if depth >= c.level {
				delete(active, depth)
			}
		}
		active[c.level] = c.title

		headers := make(map[string]string, len(active))
		for depth, title := range active {
			headers[s.levels[depth]] = title
		}
		sections = append(sections, Section{
			Content: strings.TrimSpace(md[c.offset:end]),
			Headers: headers,
			Level:   c.level,
			Heading: c.title,
		})
	}
	return sections
}

func insideRegion(off int, regions []tableguard.Region) bool {
	for _, r := range regions {
		if off > r.Start && off < r.End {
			return true
		}
	}
	return false
}

// headingLine finds the source line that holds the heading's text.
func headingLine(h *ast.Heading, src []byte) (int, string, bool) {
	lines := h.Lines()
	if lines.Len() == 0 {
		return 0, "", false
	}
	seg := lines.At(0)
	start := bytes.LastIndexByte(src[:seg.Start], '\n') + 1
	end := bytes.IndexByte(src[seg.Start:], '\n')
	if end < 0 {
		end = len(src)
	} else {
		end += seg.Start
	}
	return start, string(src[start:end]), true
}

// atxTitle strips the opening and optional closing # sequences.
func atxTitle(line string) string {
	t := strings.TrimSpace(line)
	t = strings.TrimSpace(strings.TrimLeft(t, "#"))
	if trimmed := strings.TrimRight(t, "#"); trimmed != t && (trimmed == "" || strings.HasSuffix(trimmed, " ")) {
		t = strings.TrimSpace(trimmed)
	}
	return t
}
