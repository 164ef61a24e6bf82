package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/hierchunk/internal/document"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser passes Markdown through unchanged and records what goldmark
// sees in it: the first heading as title and a count of top-level block kinds.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*document.ConversionResult, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	title := strings.TrimSuffix(strings.TrimSuffix(filename, ".md"), ".markdown")
	blocks := make(map[string]int)
	headingFound := false
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		blocks[n.Kind().String()]++
		if h, ok := n.(*ast.Heading); ok && !headingFound {
			if t := extractText(h, src); t != "" {
				title = t
				headingFound = true
			}
		}
	}

	res := newResult(filename, "markdown", string(src), nil)
	res.Metadata.AdditionalInfo = map[string]any{
		"title":       title,
		"block_types": blocks,
	}
	return res, nil
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
			continue
		}
		buf.WriteString(extractText(c, src))
	}
	return strings.TrimSpace(buf.String())
}
