package hierarchy

import (
	"strings"

	"github.com/dgallion1/hierchunk/internal/chunker"
)

// mergeShortChildren absorbs a child whose trimmed content is shorter than
// minLen into the child after it, when both come from the same page. A merge
// that would exceed maxSize is skipped, so merged children stay within the
// child size bound and the short child is kept as it is. The merged child
// keeps the first child's ID and parent. Heading-only pieces are the usual
// case.
func mergeShortChildren(children []*ChildChunk, minLen, maxSize int) []*ChildChunk {
	if len(children) < 2 || minLen <= 0 {
		return children
	}
	out := make([]*ChildChunk, 0, len(children))
	for i := 0; i < len(children); i++ {
		cur := children[i]
		if i+1 < len(children) && isShort(cur.Content, minLen) && children[i+1].PageNumber == cur.PageNumber &&
			cur.Size+2+children[i+1].Size <= maxSize {
			out = append(out, mergeChildren(cur, children[i+1]))
			i++
			continue
		}
		out = append(out, cur)
	}
	return out
}

func isShort(content string, minLen int) bool {
	return chunker.Length(strings.TrimSpace(content)) < minLen
}

func mergeChildren(a, b *ChildChunk) *ChildChunk {
	m := &ChildChunk{
		Chunk:         Chunk{ID: a.ID, Metadata: a.Metadata.Union(b.Metadata)},
		ParentChunkID: a.ParentChunkID,
		ChildIndex:    a.ChildIndex,
		IsTableChunk:  a.IsTableChunk || b.IsTableChunk,
		ParentHeader:  a.ParentHeader,
		PageNumber:    a.PageNumber,
	}
	if m.ParentHeader == "" {
		m.ParentHeader = b.ParentHeader
	}
	m.SetContent(a.Content + "\n\n" + b.Content)
	switch {
	case a.TableInfo != nil && b.TableInfo != nil:
		info := *a.TableInfo
		info.RowCount += b.TableInfo.RowCount
		info.HasSeparator = info.HasSeparator || b.TableInfo.HasSeparator
		info.MarkerCount += b.TableInfo.MarkerCount
		m.TableInfo = &info
	case a.TableInfo != nil:
		m.TableInfo = a.TableInfo
	case b.TableInfo != nil:
		m.TableInfo = b.TableInfo
	}
	return m
}

// mergeShortChunks is the flat-path version of mergeShortChildren.
func mergeShortChunks(chunks []*Chunk, minLen int) []*Chunk {
	if len(chunks) < 2 || minLen <= 0 {
		return chunks
	}
	out := make([]*Chunk, 0, len(chunks))
	for i := 0; i < len(chunks); i++ {
		cur := chunks[i]
		if i+1 < len(chunks) && isShort(cur.Content, minLen) && chunks[i+1].Metadata.PageNumber == cur.Metadata.PageNumber {
			next := chunks[i+1]
			m := &Chunk{ID: cur.ID, Metadata: cur.Metadata.Union(next.Metadata)}
			m.SetContent(cur.Content + "\n\n" + next.Content)
			out = append(out, m)
			i++
			continue
		}
		out = append(out, cur)
	}
	return out
}
