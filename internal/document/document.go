// Package document holds the conversion result handed to the chunk builder:
// the full Markdown of a source file, its metadata and optional pages.
package document

import (
	"path/filepath"
	"strings"
	"time"
)

// ConversionResult is the output of a document converter.
type ConversionResult struct {
	Content    string             `json:"content"`
	Metadata   ConversionMetadata `json:"metadata"`
	Pages      []PageInfo         `json:"pages"`
	OutputPath string             `json:"output_path,omitempty"`
}

// ConversionMetadata describes the source file and the conversion run.
type ConversionMetadata struct {
	FileName            string         `json:"file_name"`
	FilePath            string         `json:"file_path"`
	FileType            string         `json:"file_type"`
	FileSize            int64          `json:"file_size"`
	TotalPages          int            `json:"total_pages"`
	TotalTables         int            `json:"total_tables"`
	TotalContentLength  int            `json:"total_content_length"`
	ConversionTimestamp float64        `json:"conversion_timestamp"` // unix seconds
	ConverterUsed       string         `json:"converter_used"`
	AdditionalInfo      map[string]any `json:"additional_info,omitempty"`
}

// PageInfo is one page of a paged source. Title is optional.
type PageInfo struct {
	PageNumber    int               `json:"page_number"`
	Title         string            `json:"title,omitempty"`
	Content       string            `json:"content"`
	ContentLength int               `json:"content_length"`
	BlockCount    int               `json:"block_count,omitempty"`
	BlockTypes    map[string]int    `json:"block_types,omitempty"`
	Tables        []TableDescriptor `json:"tables,omitempty"`
	TableCount    int               `json:"table_count"`
}

// TableDescriptor is a converter's description of a table on a page.
type TableDescriptor struct {
	TableID     string `json:"table_id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	RowCount    int    `json:"row_count"`
	ColumnCount int    `json:"column_count"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
}

// HasPages reports whether the result should be processed page by page.
func (r *ConversionResult) HasPages() bool {
	return r != nil && len(r.Pages) > 0
}

// Timestamp converts the conversion timestamp to a time.Time.
func (m ConversionMetadata) Timestamp() time.Time {
	sec := int64(m.ConversionTimestamp)
	nsec := int64((m.ConversionTimestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// UnixSeconds is the inverse of Timestamp.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// FileType returns the lower-case extension of name without the dot.
func FileType(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// NewPage builds a PageInfo with its derived length fields filled in.
func NewPage(number int, title, content string) PageInfo {
	return PageInfo{
		PageNumber:    number,
		Title:         title,
		Content:       content,
		ContentLength: len([]rune(content)),
	}
}

// Finalize fills in the totals derived from content and pages.
func (r *ConversionResult) Finalize() {
	r.Metadata.TotalContentLength = len([]rune(r.Content))
	if len(r.Pages) > 0 {
		r.Metadata.TotalPages = len(r.Pages)
		tables := 0
		for i := range r.Pages {
			p := &r.Pages[i]
			if p.ContentLength == 0 {
				p.ContentLength = len([]rune(p.Content))
			}
			if p.TableCount == 0 {
				p.TableCount = len(p.Tables)
			}
			tables += p.TableCount
		}
		if r.Metadata.TotalTables == 0 {
			r.Metadata.TotalTables = tables
		}
	} else if r.Metadata.TotalPages == 0 {
		r.Metadata.TotalPages = 1
	}
}
