// Package parser converts source files into Markdown conversion results
// that the hierarchy builder can split.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/hierchunk/internal/document"
	"github.com/dgallion1/hierchunk/internal/tableguard"
)

// Parser converts raw document bytes into Markdown.
type Parser interface {
	Parse(r io.Reader, filename string) (*document.ConversionResult, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Option adjusts the parser ForFile returns.
type Option func(*options)

type options struct {
	pdfFallback bool
}

// WithPDFFallback enables or disables the pdftotext fallback. It is on by
// default.
func WithPDFFallback(on bool) Option {
	return func(o *options) { o.pdfFallback = on }
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts ...Option) (Parser, error) {
	o := options{pdfFallback: true}
	for _, fn := range opts {
		fn(&o)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: o.pdfFallback}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Convert reads and converts the file at path. A missing file is reported
// as document.ErrNotFound.
func Convert(path string, opts ...Option) (*document.ConversionResult, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &document.Error{Kind: document.NotFoundKind, Op: "convert", Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	res, err := ConvertBytes(data, filepath.Base(path), opts...)
	if err != nil {
		return nil, err
	}
	res.Metadata.FilePath = path
	return res, nil
}

// ConvertBytes converts an in-memory upload.
func ConvertBytes(data []byte, filename string, opts ...Option) (*document.ConversionResult, error) {
	p, err := ForFile(filename, opts...)
	if err != nil {
		return nil, &document.Error{Kind: document.InvalidInputKind, Op: "convert", Path: filename, Err: err}
	}
	res, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, err
	}
	res.Metadata.FileSize = int64(len(data))
	return res, nil
}

// newResult fills in the metadata every converter shares.
func newResult(filename, converter, content string, pages []document.PageInfo) *document.ConversionResult {
	res := &document.ConversionResult{
		Content: content,
		Pages:   pages,
		Metadata: document.ConversionMetadata{
			FileName:            filename,
			FilePath:            filename,
			FileType:            document.FileType(filename),
			FileSize:            int64(len(content)),
			ConversionTimestamp: document.UnixSeconds(time.Now()),
			ConverterUsed:       converter,
		},
	}
	for i := range res.Pages {
		res.Pages[i].TableCount = tableguard.CountTables(res.Pages[i].Content)
	}
	if len(pages) == 0 {
		res.Metadata.TotalTables = tableguard.CountTables(content)
	}
	res.Finalize()
	return res
}

// markdownTable renders rows as a pipe table with the first row as header.
// Short rows are padded so every row has the same column count.
func markdownTable(rows [][]string) string {
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return ""
	}
	var b strings.Builder
	writeRow := func(r []string) {
		b.WriteString("|")
		for i := range cols {
			cell := ""
			if i < len(r) {
				cell = tableCell(r[i])
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}
	writeRow(rows[0])
	b.WriteString("|" + strings.Repeat("---|", cols) + "\n")
	for _, r := range rows[1:] {
		writeRow(r)
	}
	return b.String()
}

func tableCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
