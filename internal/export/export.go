// Package export writes split results to files: a readable Markdown report,
// JSON Lines for indexing pipelines, or the whole result as JSON.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/hierchunk/internal/hierarchy"
)

// Format selects an output encoding.
type Format string

const (
	Markdown Format = "markdown"
	JSONL    Format = "jsonl"
	JSON     Format = "json"
)

// ParseFormat accepts the format names and the common file extensions.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "markdown", "md":
		return Markdown, nil
	case "jsonl", "ndjson":
		return JSONL, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Write encodes r in the given format.
func Write(w io.Writer, f Format, r *hierarchy.Result) error {
	switch f {
	case Markdown:
		return WriteMarkdown(w, r)
	case JSONL:
		return WriteJSONL(w, r)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(r)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// ToFile writes r to path, creating parent directories. The format comes
// from the extension when f is empty.
func ToFile(path string, f Format, r *hierarchy.Result) error {
	if f == "" {
		var err error
		if f, err = ParseFormat(filepath.Ext(path)); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	bw := bufio.NewWriter(out)
	if err := Write(bw, f, r); err != nil {
		out.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// WriteMarkdown writes the analysis summary followed by every parent and
// every child.
func WriteMarkdown(w io.Writer, r *hierarchy.Result) error {
	ew := &errWriter{w: w}
	a := r.Analysis

	ew.printf("# Hierarchical Chunk Analysis\n\n")
	ew.printf("**Analysis Summary:**\n")
	ew.printf("- Parent Chunks: %d\n", a.TotalParentChunks)
	ew.printf("- Child Chunks: %d\n", a.TotalChildChunks)
	ew.printf("- Avg Children per Parent: %.2f\n", a.AvgChildrenPerParent)
	ew.printf("- Grouping Efficiency: %.2f\n\n", a.GroupingEfficiency)

	ew.printf("## Parent Chunks\n\n")
	for i, p := range r.Parents {
		header := p.HeaderText
		if header == "" {
			header = "None"
		}
		ew.printf("### Parent Chunk %d (ID: %s)\n\n", i+1, p.ID)
		ew.printf("**Size:** %d characters\n", p.Size)
		ew.printf("**Has Tables:** %t\n", p.HasTables)
		ew.printf("**Header:** %s\n\n", header)
		ew.printf("%s\n\n---\n\n", p.Content)
	}

	ew.printf("## Child Chunks\n\n")
	for i, c := range r.Children {
		ew.printf("### Child Chunk %d (ID: %s)\n\n", i+1, c.ID)
		ew.printf("**Parent:** %s\n", c.ParentChunkID)
		ew.printf("**Size:** %d characters\n", c.Size)
		ew.printf("**Is Table:** %t\n\n", c.IsTableChunk)
		ew.printf("%s\n\n---\n\n", c.Content)
	}
	return ew.err
}

// WriteFlatMarkdown writes flat chunks as numbered sections with their
// metadata as inline JSON.
func WriteFlatMarkdown(w io.Writer, chunks []*hierarchy.Chunk) error {
	ew := &errWriter{w: w}
	for i, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		ew.printf("## Chunk %d\n\n", i+1)
		ew.printf("**Metadata:** %s\n\n", meta)
		ew.printf("%s\n\n---\n\n", c.Content)
	}
	return ew.err
}

// Record is one JSON Lines entry. Kind is "parent", "child" or "analysis".
type Record struct {
	Kind     string                      `json:"kind"`
	Parent   *hierarchy.ParentChunk      `json:"parent,omitempty"`
	Child    *hierarchy.ChildChunk       `json:"child,omitempty"`
	Analysis *hierarchy.GroupingAnalysis `json:"analysis,omitempty"`
}

// WriteJSONL writes parents, then children, then the analysis, one JSON
// object per line.
func WriteJSONL(w io.Writer, r *hierarchy.Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, p := range r.Parents {
		if err := enc.Encode(Record{Kind: "parent", Parent: p}); err != nil {
			return err
		}
	}
	for _, c := range r.Children {
		if err := enc.Encode(Record{Kind: "child", Child: c}); err != nil {
			return err
		}
	}
	return enc.Encode(Record{Kind: "analysis", Analysis: &r.Analysis})
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
