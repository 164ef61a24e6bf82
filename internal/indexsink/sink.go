package indexsink

import (
	"context"
	"fmt"

	"github.com/dgallion1/hierchunk/internal/hierarchy"
)

// Keys lays out where one document's chunks live in the index.
type Keys struct {
	Prefix string // e.g. "documents/<doc id>"
}

func (k Keys) Parent(id string) string { return k.Prefix + "/parents/" + id }
func (k Keys) Child(id string) string  { return k.Prefix + "/children/" + id }
func (k Keys) Meta() string            { return k.Prefix + "/meta" }

// Writer is what the pipeline needs from an index. *Client implements it.
type Writer interface {
	PutNode(ctx context.Context, key string, req NodeRequest) error
	PutLink(ctx context.Context, req LinkRequest) error
}

// Progress is called after each node or link write.
type Progress func(done, total int)

// IndexResult writes every parent, every child with a link to its parent,
// and a meta node holding the analysis. It stops at the first error.
func IndexResult(ctx context.Context, w Writer, keys Keys, source string, r *hierarchy.Result, progress Progress) error {
	total := len(r.Parents) + 2*len(r.Children) + 1
	done := 0
	step := func() {
		done++
		if progress != nil {
			progress(done, total)
		}
	}

	for _, p := range r.Parents {
		err := w.PutNode(ctx, keys.Parent(p.ID), NodeRequest{
			Value: map[string]any{
				"content":      p.Content,
				"size":         p.Size,
				"header_text":  p.HeaderText,
				"header_level": p.HeaderLevel,
				"has_tables":   p.HasTables,
				"page_number":  p.PageNumber,
				"metadata":     p.Metadata,
			},
			Salience: 0.5,
			Source:   source,
		})
		if err != nil {
			return fmt.Errorf("index parent %s: %w", p.ID, err)
		}
		step()
	}

	for _, c := range r.Children {
		err := w.PutNode(ctx, keys.Child(c.ID), NodeRequest{
			Value: map[string]any{
				"content":         c.Content,
				"size":            c.Size,
				"parent_chunk_id": c.ParentChunkID,
				"child_index":     c.ChildIndex,
				"is_table_chunk":  c.IsTableChunk,
				"page_number":     c.PageNumber,
				"metadata":        c.Metadata,
			},
			Salience: 0.3,
			Source:   source,
		})
		if err != nil {
			return fmt.Errorf("index child %s: %w", c.ID, err)
		}
		step()

		err = w.PutLink(ctx, LinkRequest{
			From:    keys.Child(c.ID),
			To:      keys.Parent(c.ParentChunkID),
			Weight:  1,
			Summary: "child_of",
		})
		if err != nil {
			return fmt.Errorf("link child %s: %w", c.ID, err)
		}
		step()
	}

	err := w.PutNode(ctx, keys.Meta(), NodeRequest{
		Value: map[string]any{
			"run_id":   r.Processing.RunID,
			"parents":  len(r.Parents),
			"children": len(r.Children),
			"analysis": r.Analysis,
		},
		Salience: 0.1,
		Source:   source,
	})
	if err != nil {
		return fmt.Errorf("index meta: %w", err)
	}
	step()
	return nil
}
