package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/hierchunk/internal/document"
)

// TextParser handles plain text files. Paragraphs are kept and separated by
// a single blank line.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*document.ConversionResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	res := newResult(filename, "text", strings.Join(paragraphs, "\n\n"), nil)
	res.Metadata.AdditionalInfo = map[string]any{"paragraphs": len(paragraphs)}
	return res, nil
}
