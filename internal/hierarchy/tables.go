package hierarchy

import (
	"strings"

	"github.com/dgallion1/hierchunk/internal/chunker"
	"github.com/dgallion1/hierchunk/internal/tableguard"
)

// postprocessTables merges the small table children of each parent, then
// strips sentinels and separator rows from every child. Table children at
// or above the threshold stay as they are so they remain retrievable on
// their own.
func (b *Builder) postprocessTables(children []*ChildChunk) []*ChildChunk {
	tables, regular := tableguard.Separate(children)

	var small, large []*ChildChunk
	for _, c := range tables {
		if c.Size < b.cfg.SmallTableThreshold {
			small = append(small, c)
		} else {
			large = append(large, c)
		}
	}
	merged := mergeByParent(small)

	all := make([]*ChildChunk, 0, len(regular)+len(large)+len(merged))
	all = append(all, regular...)
	all = append(all, large...)
	all = append(all, merged...)

	kept := all[:0]
	for _, c := range all {
		c.SetContent(tableguard.CleanSeparators(tableguard.CleanMarkers(c.Content)))
		if chunker.Length(strings.TrimSpace(c.Content)) < b.cfg.MinChildLength {
			b.log.Debug("dropping short child after table cleanup", "child_id", c.ID, "parent_id", c.ParentChunkID)
			continue
		}
		kept = append(kept, c)
	}
	sortChildren(kept)

	if len(small) != len(merged) {
		b.log.Debug("merged small table chunks", "before", len(small), "after", len(merged))
	}
	return kept
}

// mergeByParent joins the table children of each parent into one child.
// The merged child keeps the ID and index of its first member.
func mergeByParent(chunks []*ChildChunk) []*ChildChunk {
	var order []string
	groups := make(map[string][]*ChildChunk)
	for _, c := range chunks {
		if _, ok := groups[c.ParentChunkID]; !ok {
			order = append(order, c.ParentChunkID)
		}
		groups[c.ParentChunkID] = append(groups[c.ParentChunkID], c)
	}

	out := make([]*ChildChunk, 0, len(order))
	for _, id := range order {
		g := groups[id]
		if len(g) == 1 {
			out = append(out, g[0])
			continue
		}
		out = append(out, combineTableGroup(g, tableguard.JoinContent(g)))
	}
	return out
}

func combineTableGroup(group []*ChildChunk, content string) *ChildChunk {
	first := group[0]
	m := &ChildChunk{
		Chunk:         Chunk{ID: first.ID, Metadata: first.Metadata.Clone()},
		ParentChunkID: first.ParentChunkID,
		ChildIndex:    first.ChildIndex,
		IsTableChunk:  true,
		ParentHeader:  first.ParentHeader,
		PageNumber:    first.PageNumber,
	}
	m.SetContent(content)
	m.Metadata.IsTable = true
	m.Metadata.TableChunksMerged = len(group)

	var info tableguard.Info
	for _, c := range group {
		if c.TableInfo == nil {
			continue
		}
		info.RowCount += c.TableInfo.RowCount
		info.HasSeparator = info.HasSeparator || c.TableInfo.HasSeparator
		info.MarkerCount += c.TableInfo.MarkerCount
	}
	m.TableInfo = &info
	return m
}
