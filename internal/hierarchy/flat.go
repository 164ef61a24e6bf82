package hierarchy

import (
	"fmt"
	"strings"

	"github.com/dgallion1/hierchunk/internal/chunker"
	"github.com/dgallion1/hierchunk/internal/document"
	"github.com/dgallion1/hierchunk/internal/tableguard"
)

// pageMatchThreshold is the minimum word-set similarity for a chunk to be
// attributed to a page.
const pageMatchThreshold = 0.3

// SplitFlat is the single-level splitter: heading sections cut to
// FlatChunkSize, table fragments merged back along their sentinels, short
// pieces absorbed into the next one. When res has no pages and pageRef does,
// every chunk gets the page whose text it resembles most.
func (b *Builder) SplitFlat(res *document.ConversionResult, pageRef *document.ConversionResult) []*Chunk {
	seq := 0
	newChunk := func(content string, meta Metadata) *Chunk {
		seq++
		c := &Chunk{ID: fmt.Sprintf("chunk_%08d", seq), Metadata: meta}
		c.SetContent(content)
		return c
	}

	base := baseMetadata(res)
	var chunks []*Chunk
	emit := func(text string, meta Metadata, estimate bool) {
		for _, sec := range b.structural.Split(b.prepare(text)) {
			m := meta.Clone()
			if len(sec.Headers) > 0 {
				m.Headers = sec.Headers
			}
			pieces := []string{sec.Content}
			if chunker.Length(sec.Content) > b.cfg.FlatChunkSize {
				pieces = b.flat.Split(sec.Content)
			}
			for _, p := range pieces {
				pm := m.Clone()
				if estimate {
					pm.PageNumber = EstimatePage(p, pageRef.Pages)
				}
				chunks = append(chunks, newChunk(p, pm))
			}
		}
	}

	if res.HasPages() {
		for _, page := range res.Pages {
			meta := base.Clone()
			meta.PageNumber = page.PageNumber
			meta.PageTitle = page.Title
			emit(page.Content, meta, false)
		}
	} else {
		emit(res.Content, base, pageRef.HasPages())
	}

	if b.cfg.KeepTablesTogether {
		chunks = postprocessFlat(chunks)
	}
	chunks = mergeShortChunks(chunks, b.cfg.MergeMinLength)

	b.log.Info("flat split complete", "file_name", base.FileName, "chunks", len(chunks))
	return chunks
}

// postprocessFlat merges every group of table fragments and strips sentinels.
// Output stays in source order.
func postprocessFlat(chunks []*Chunk) []*Chunk {
	tables, _ := tableguard.Separate(chunks)
	merged := tableguard.MergeTableChunks(tables, func(group []*Chunk, content string) *Chunk {
		m := &Chunk{ID: group[0].ID, Metadata: group[0].Metadata.Clone()}
		for _, c := range group[1:] {
			m.Metadata = m.Metadata.Union(c.Metadata)
		}
		m.SetContent(content)
		m.Metadata.IsTable = true
		m.Metadata.TableChunksMerged = len(group)
		return m
	})

	byID := make(map[string]*Chunk, len(merged))
	absorbed := make(map[string]bool)
	for _, m := range merged {
		byID[m.ID] = m
	}
	for _, t := range tables {
		if _, ok := byID[t.ID]; !ok {
			absorbed[t.ID] = true
		}
	}

	out := make([]*Chunk, 0, len(chunks))
	for _, c := range chunks {
		switch {
		case absorbed[c.ID]:
			continue
		case byID[c.ID] != nil:
			out = append(out, byID[c.ID])
		default:
			c.SetContent(tableguard.CleanMarkers(c.Content))
			out = append(out, c)
		}
	}
	return out
}

// EstimatePage returns the number of the page whose word set overlaps
// content the most, or 0 when no page passes the threshold.
func EstimatePage(content string, pages []document.PageInfo) int {
	words := wordSet(content)
	if len(words) == 0 {
		return 0
	}
	best, bestScore := 0, 0.0
	for _, p := range pages {
		score := jaccard(words, wordSet(p.Content))
		if score > bestScore && score > pageMatchThreshold {
			best, bestScore = p.PageNumber, score
		}
	}
	return best
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// FlatStats summarises a flat chunk list.
type FlatStats struct {
	TotalChunks   int     `json:"total_chunks"`
	TotalLength   int     `json:"total_length"`
	AverageLength float64 `json:"average_length"`
	TableChunks   int     `json:"table_chunks"`
	RegularChunks int     `json:"regular_chunks"`
}

func FlatStatistics(chunks []*Chunk) FlatStats {
	st := FlatStats{TotalChunks: len(chunks)}
	for _, c := range chunks {
		st.TotalLength += c.Size
		if c.Metadata.IsTable {
			st.TableChunks++
		}
	}
	st.RegularChunks = st.TotalChunks - st.TableChunks
	if st.TotalChunks > 0 {
		st.AverageLength = float64(st.TotalLength) / float64(st.TotalChunks)
	}
	return st
}
