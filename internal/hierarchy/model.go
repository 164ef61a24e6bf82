// Package hierarchy turns a converted document into parent chunks sized for
// LLM context and child chunks sized for embedding, and reports how well the
// two levels line up.
package hierarchy

import (
	"maps"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/hierchunk/internal/tableguard"
)

// Metadata is carried by every chunk. Header text lives in Headers keyed by
// the configured level name ("Header 1".."Header 4" by default); anything a
// converter adds beyond the named fields goes to Extra.
type Metadata struct {
	FileName            string            `json:"file_name,omitempty"`
	FileType            string            `json:"file_type,omitempty"`
	Source              string            `json:"source,omitempty"`
	ConverterUsed       string            `json:"converter_used,omitempty"`
	TotalPages          int               `json:"total_pages,omitempty"`
	TotalTables         int               `json:"total_tables,omitempty"`
	FileSize            int64             `json:"file_size,omitempty"`
	ConversionTimestamp float64           `json:"conversion_timestamp,omitempty"`
	PageNumber          int               `json:"page_number,omitempty"`
	PageTitle           string            `json:"page_title,omitempty"`
	Headers             map[string]string `json:"headers,omitempty"`
	IsTable             bool              `json:"is_table,omitempty"`
	TableChunksMerged   int               `json:"table_chunks_merged,omitempty"`
	GlobalChunkNumber   int               `json:"global_chunk_number,omitempty"`
	Extra               map[string]any    `json:"extra,omitempty"`
}

// Clone returns a copy that shares no maps with m.
func (m Metadata) Clone() Metadata {
	c := m
	c.Headers = maps.Clone(m.Headers)
	c.Extra = maps.Clone(m.Extra)
	return c
}

// Union fills every empty field of m from o. Values already set in m win.
func (m Metadata) Union(o Metadata) Metadata {
	out := m.Clone()
	if out.FileName == "" {
		out.FileName = o.FileName
	}
	if out.FileType == "" {
		out.FileType = o.FileType
	}
	if out.Source == "" {
		out.Source = o.Source
	}
	if out.ConverterUsed == "" {
		out.ConverterUsed = o.ConverterUsed
	}
	if out.TotalPages == 0 {
		out.TotalPages = o.TotalPages
	}
	if out.TotalTables == 0 {
		out.TotalTables = o.TotalTables
	}
	if out.FileSize == 0 {
		out.FileSize = o.FileSize
	}
	if out.ConversionTimestamp == 0 {
		out.ConversionTimestamp = o.ConversionTimestamp
	}
	if out.PageNumber == 0 {
		out.PageNumber = o.PageNumber
	}
	if out.PageTitle == "" {
		out.PageTitle = o.PageTitle
	}
	out.IsTable = out.IsTable || o.IsTable
	if out.TableChunksMerged == 0 {
		out.TableChunksMerged = o.TableChunksMerged
	}
	if out.GlobalChunkNumber == 0 {
		out.GlobalChunkNumber = o.GlobalChunkNumber
	}
	for k, v := range o.Headers {
		if v == "" || out.Headers[k] != "" {
			continue
		}
		if out.Headers == nil {
			out.Headers = make(map[string]string, len(o.Headers))
		}
		out.Headers[k] = v
	}
	for k, v := range o.Extra {
		if _, ok := out.Extra[k]; ok {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any, len(o.Extra))
		}
		out.Extra[k] = v
	}
	return out
}

// Chunk is the part common to parents, children and flat chunks.
type Chunk struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Size     int      `json:"size"` // characters in Content
	Metadata Metadata `json:"metadata"`
}

// SetContent replaces the content and recomputes Size.
func (c *Chunk) SetContent(s string) {
	c.Content = s
	c.Size = utf8.RuneCountInString(s)
}

func (c *Chunk) Text() string       { return c.Content }
func (c *Chunk) FlaggedTable() bool { return c.Metadata.IsTable }

// ParentChunk is a header-aligned block of the source, capped at the parent
// size except where an atomic table forces it over.
type ParentChunk struct {
	Chunk
	ParentIndex int    `json:"parent_index"`
	HasTables   bool   `json:"has_tables"`
	TableCount  int    `json:"table_count"`
	HeaderLevel int    `json:"header_level,omitempty"` // 0 when no heading applies
	HeaderText  string `json:"header_text,omitempty"`
	PageNumber  int    `json:"page_number,omitempty"`
}

// ChildChunk is a retrieval-sized piece of one parent.
type ChildChunk struct {
	Chunk
	ParentChunkID string           `json:"parent_chunk_id"`
	ChildIndex    int              `json:"child_index"`
	IsTableChunk  bool             `json:"is_table_chunk"`
	TableInfo     *tableguard.Info `json:"table_info,omitempty"`
	ParentHeader  string           `json:"parent_header,omitempty"`
	PageNumber    int              `json:"page_number,omitempty"`
}

func (c *ChildChunk) FlaggedTable() bool { return c.IsTableChunk || c.Metadata.IsTable }

// SizeStats summarises chunk sizes. Median is the upper median.
type SizeStats struct {
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
}

// TableStats describes how tables ended up among the children.
type TableStats struct {
	TotalTableChunks        int     `json:"total_table_chunks"`
	TotalRegularChunks      int     `json:"total_regular_chunks"`
	TableChunkRatio         float64 `json:"table_chunk_ratio"`
	AvgTableSize            float64 `json:"avg_table_size"`
	LargestTableSize        int     `json:"largest_table_size"`
	TableFragmentationCount int     `json:"table_fragmentation_count"`
}

// Bin is one bucket of the child size histogram. Max is -1 for the open bin.
type Bin struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// GroupingAnalysis is computed once per run over the final chunk sets.
type GroupingAnalysis struct {
	TotalParentChunks    int        `json:"total_parent_chunks"`
	TotalChildChunks     int        `json:"total_child_chunks"`
	AvgChildrenPerParent float64    `json:"avg_children_per_parent"`
	ParentSizeStats      SizeStats  `json:"parent_size_stats"`
	ChildSizeStats       SizeStats  `json:"child_size_stats"`
	TableHandlingStats   TableStats `json:"table_handling_stats"`
	GroupingEfficiency   float64    `json:"grouping_efficiency"`
	SizeDistribution     []Bin      `json:"size_distribution"`
	Timestamp            time.Time  `json:"timestamp"`
}

// ProcessingInfo records how a result was produced.
type ProcessingInfo struct {
	RunID          string    `json:"run_id"`
	InputType      string    `json:"input_type"`
	PagesProcessed int       `json:"pages_processed"`
	Normalized     bool      `json:"normalized"`
	TablesHandled  bool      `json:"tables_handled"`
	Timestamp      time.Time `json:"timestamp"`
}

// Result is the output of one builder run.
type Result struct {
	Parents    []*ParentChunk   `json:"parents"`
	Children   []*ChildChunk    `json:"children"`
	Analysis   GroupingAnalysis `json:"analysis"`
	Processing ProcessingInfo   `json:"processing"`
}

func (r *Result) Parent(id string) *ParentChunk {
	for _, p := range r.Parents {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Result) Child(id string) *ChildChunk {
	for _, c := range r.Children {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// ChildrenOf returns the children of a parent in child index order.
func (r *Result) ChildrenOf(parentID string) []*ChildChunk {
	var out []*ChildChunk
	for _, c := range r.Children {
		if c.ParentChunkID == parentID {
			out = append(out, c)
		}
	}
	return out
}

// ParentOf returns the parent of a child, or nil.
func (r *Result) ParentOf(childID string) *ParentChunk {
	c := r.Child(childID)
	if c == nil {
		return nil
	}
	return r.Parent(c.ParentChunkID)
}
