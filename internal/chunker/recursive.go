package chunker

import (
	"fmt"
	"strings"

	"github.com/dgallion1/hierchunk/internal/tableguard"
)

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RegionPolicy says what happens to a sentinel-marked table that does not
// fit the budget.
type RegionPolicy int

const (
	// KeepWhole emits the region as one oversized piece.
	KeepWhole RegionPolicy = iota
	// SplitRows cuts the region between rows, never inside one, and never
	// repeats rows as overlap.
	SplitRows
)

func (p RegionPolicy) String() string {
	switch p {
	case KeepWhole:
		return "whole"
	case SplitRows:
		return "rows"
	}
	return fmt.Sprintf("RegionPolicy(%d)", int(p))
}

// ParseRegionPolicy maps "whole" and "rows" to a policy.
func ParseRegionPolicy(s string) (RegionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "whole":
		return KeepWhole, nil
	case "rows":
		return SplitRows, nil
	}
	return KeepWhole, fmt.Errorf("%w: unknown table policy %q", ErrInvalidConfig, s)
}

// Option configures a RecursiveSplitter.
type Option func(*RecursiveSplitter)

// WithSeparators replaces the separator preference list.
func WithSeparators(seps ...string) Option {
	return func(s *RecursiveSplitter) {
		s.separators = append([]string(nil), seps...)
	}
}

// WithProtectedTables keeps sentinel-marked table regions from being cut by
// ordinary separators.
func WithProtectedTables(policy RegionPolicy) Option {
	return func(s *RecursiveSplitter) {
		s.protect = true
		s.policy = policy
	}
}

// RecursiveSplitter cuts text into pieces of at most size characters using
// the coarsest separator that works, with up to overlap characters repeated
// between neighbouring pieces.
type RecursiveSplitter struct {
	size       int
	overlap    int
	separators []string
	protect    bool
	policy     RegionPolicy
}

// NewRecursiveSplitter validates the budget. overlap must be smaller than size.
func NewRecursiveSplitter(size, overlap int, opts ...Option) (*RecursiveSplitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidConfig, overlap, size)
	}
	s := &RecursiveSplitter{
		size:       size,
		overlap:    overlap,
		separators: DefaultSeparators,
	}
	for _, o := range opts {
		o(s)
	}
	if len(s.separators) == 0 {
		return nil, fmt.Errorf("%w: at least one separator is required", ErrInvalidConfig)
	}
	return s, nil
}

func (s *RecursiveSplitter) Size() int    { return s.size }
func (s *RecursiveSplitter) Overlap() int { return s.overlap }

// unit is an uncuttable run of text. Units concatenate back to the input.
type unit struct {
	text   string
	n      int
	pinned bool // protected table material; never carried over as overlap
}

// Split returns trimmed, non-empty pieces in source order.
func (s *RecursiveSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.merge(s.units(text))
}

func (s *RecursiveSplitter) units(text string) []unit {
	if !s.protect {
		return s.plainUnits(text, s.separators)
	}
	regions := tableguard.Regions(text)
	if len(regions) == 0 {
		return s.plainUnits(text, s.separators)
	}

	var out []unit
	prev := 0
	for _, r := range regions {
		if r.Start > prev {
			out = append(out, s.plainUnits(text[prev:r.Start], s.separators)...)
		}
		out = append(out, s.regionUnits(text[r.Start:r.End])...)
		prev = r.End
	}
	if prev < len(text) {
		out = append(out, s.plainUnits(text[prev:], s.separators)...)
	}
	return out
}

func (s *RecursiveSplitter) plainUnits(text string, seps []string) []unit {
	if text == "" {
		return nil
	}
	if n := Length(text); n <= s.size {
		return []unit{{text: text, n: n}}
	}

	sep, finer := pickSeparator(text, seps)
	var out []unit
	for _, p := range splitKeep(text, sep) {
		if p == "" {
			continue
		}
		n := Length(p)
		if n <= s.size || len(finer) == 0 {
			out = append(out, unit{text: p, n: n})
			continue
		}
		out = append(out, s.plainUnits(p, finer)...)
	}
	return out
}

func (s *RecursiveSplitter) regionUnits(region string) []unit {
	n := Length(region)
	if n <= s.size || s.policy == KeepWhole {
		return []unit{{text: region, n: n, pinned: true}}
	}

	var out []unit
	var b strings.Builder
	cur := 0
	flush := func() {
		if b.Len() == 0 {
			return
		}
		out = append(out, unit{text: b.String(), n: cur, pinned: true})
		b.Reset()
		cur = 0
	}
	for i, line := range strings.Split(region, "\n") {
		piece := line
		if i > 0 {
			piece = "\n" + line
		}
		pn := Length(piece)
		if cur > 0 && cur+pn > s.size {
			flush()
		}
		b.WriteString(piece)
		cur += pn
	}
	flush()
	return out
}

// merge packs units into pieces no larger than size, carrying a tail of at
// most overlap characters into the next piece.
func (s *RecursiveSplitter) merge(units []unit) []string {
	var docs []string
	var window []unit
	total := 0

	emit := func() {
		var b strings.Builder
		for _, u := range window {
			b.WriteString(u.text)
		}
		if d := strings.TrimSpace(b.String()); d != "" {
			docs = append(docs, d)
		}
	}

	for _, u := range units {
		if len(window) > 0 && total+u.n > s.size {
			emit()
			for len(window) > 0 && (total > s.overlap || total+u.n > s.size) {
				total -= window[0].n
				window = window[1:]
			}
			if i := lastPinned(window); i >= 0 {
				for _, w := range window[:i+1] {
					total -= w.n
				}
				window = window[i+1:]
			}
		}
		window = append(window, u)
		total += u.n
	}
	if len(window) > 0 {
		emit()
	}
	return docs
}

func lastPinned(window []unit) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].pinned {
			return i
		}
	}
	return -1
}

// pickSeparator returns the first separator present in text and the finer
// ones after it. The empty separator always matches; when nothing matches the
// last separator is used, which leaves text whole.
func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" || strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return seps[len(seps)-1], nil
}

// splitKeep splits on sep and attaches each separator to the start of the
// piece that follows it. An empty sep splits into characters.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, Length(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	for i := 1; i < len(parts); i++ {
		parts[i] = sep + parts[i]
	}
	return parts
}
