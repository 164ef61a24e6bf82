package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/hierchunk/internal/document"
)

// CSVParser renders a CSV file as one Markdown table under a title heading.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*document.ConversionResult, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	title := strings.TrimSuffix(filename, ".csv")
	var content string
	if len(records) > 0 {
		content = "# " + title + "\n\n" + markdownTable(records)
	}
	res := newResult(filename, "csv", content, nil)
	res.Metadata.AdditionalInfo = map[string]any{"rows": max(len(records)-1, 0)}
	return res, nil
}
