package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/hierchunk/internal/document"
	"github.com/dgallion1/hierchunk/internal/tableguard"
	"github.com/fumiama/go-docx"
)

func TestForFile(t *testing.T) {
	for _, name := range []string{"a.txt", "a.md", "A.MARKDOWN", "a.csv", "a.html", "a.htm", "a.pdf", "a.docx"} {
		if _, err := ForFile(name); err != nil {
			t.Errorf("%s: unexpected error: %v", name, err)
		}
		if !IsSupportedExtension(name) {
			t.Errorf("%s should be supported", name)
		}
	}
	if _, err := ForFile("a.exe"); err == nil {
		t.Error("expected error for .exe")
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.md")
	if err := os.WriteFile(path, []byte("# Guide\n\nhello"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Convert(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Metadata.FilePath != path {
		t.Errorf("expected file path %q, got %q", path, res.Metadata.FilePath)
	}
	if res.Metadata.FileSize != int64(len("# Guide\n\nhello")) {
		t.Errorf("unexpected file size %d", res.Metadata.FileSize)
	}

	_, err = Convert(filepath.Join(dir, "missing.md"))
	if !errors.Is(err, document.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	_, err = ConvertBytes([]byte("x"), "x.exe")
	if !errors.Is(err, document.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestCSVParser(t *testing.T) {
	input := "name,qty,note\nwidget,3,has | pipe\ngadget,5\n"
	res, err := (&CSVParser{}).Parse(strings.NewReader(input), "stock.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "# stock\n\n" +
		"| name | qty | note |\n" +
		"|---|---|---|\n" +
		"| widget | 3 | has \\| pipe |\n" +
		"| gadget | 5 |  |\n"
	if res.Content != want {
		t.Errorf("expected\n%s\ngot\n%s", want, res.Content)
	}
	if res.Metadata.TotalTables != 1 {
		t.Errorf("expected 1 table, got %d", res.Metadata.TotalTables)
	}
	if got := res.Metadata.AdditionalInfo["rows"]; got != 2 {
		t.Errorf("expected 2 rows, got %v", got)
	}
}

func TestHTMLParser(t *testing.T) {
	input := `<html><head><title>Report</title><style>p{}</style></head><body>
<nav>menu</nav>
<h1>Overview</h1>
<p>First   line<br>second line</p>
<h2>Numbers</h2>
<table>
  <thead><tr><th>k</th><th>v</th></tr></thead>
  <tbody><tr><td>a</td><td>1</td></tr><tr><td>b</td><td>2</td></tr></tbody>
</table>
<ul><li>one</li><li>two</li></ul>
<script>alert(1)</script>
</body></html>`

	res, err := (&HTMLParser{}).Parse(strings.NewReader(input), "report.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "# Overview\n\n" +
		"First line second line\n\n" +
		"## Numbers\n\n" +
		"| k | v |\n|---|---|\n| a | 1 |\n| b | 2 |\n\n" +
		"- one\n\n- two"
	if res.Content != want {
		t.Errorf("expected\n%q\ngot\n%q", want, res.Content)
	}
	if got := res.Metadata.AdditionalInfo["title"]; got != "Report" {
		t.Errorf("expected title %q, got %v", "Report", got)
	}
	if strings.Contains(res.Content, "menu") || strings.Contains(res.Content, "alert") {
		t.Error("non-content elements should be skipped")
	}
	if len(tableguard.Detect(res.Content)) != 1 {
		t.Error("table should be detected in output")
	}
}

func TestDOCXMarkdown(t *testing.T) {
	para := func(style, text string) *docx.Paragraph {
		p := &docx.Paragraph{
			Children: []any{&docx.Run{Children: []any{&docx.Text{Text: text}}}},
		}
		if style != "" {
			p.Properties = &docx.ParagraphProperties{Style: &docx.Style{Val: style}}
		}
		return p
	}
	cell := func(text string) *docx.WTableCell {
		return &docx.WTableCell{Paragraphs: []*docx.Paragraph{para("", text)}}
	}
	table := &docx.Table{TableRows: []*docx.WTableRow{
		{TableCells: []*docx.WTableCell{cell("col"), cell("val")}},
		{TableCells: []*docx.WTableCell{cell("x"), cell("9")}},
	}}

	got := docxMarkdown([]any{
		para("Heading1", "Intro"),
		para("", "Body text."),
		para("", "   "),
		para("heading 2", "Data"),
		table,
	})
	want := "# Intro\n\nBody text.\n\n## Data\n\n| col | val |\n|---|---|\n| x | 9 |"
	if got != want {
		t.Errorf("expected\n%q\ngot\n%q", want, got)
	}
}

func TestDOCXHeadingLevel(t *testing.T) {
	tests := map[string]int{
		"Heading1":  1,
		"heading 3": 3,
		"Heading 6": 6,
		"Heading7":  0,
		"Title":     0,
		"Heading12": 0,
	}
	for style, want := range tests {
		p := &docx.Paragraph{Properties: &docx.ParagraphProperties{Style: &docx.Style{Val: style}}}
		if got := docxHeadingLevel(p); got != want {
			t.Errorf("%q: expected %d, got %d", style, want, got)
		}
	}
	if docxHeadingLevel(&docx.Paragraph{}) != 0 {
		t.Error("paragraph without style should not be a heading")
	}
}

func TestSplitPages(t *testing.T) {
	pages := splitPages("page one\f\f  \fpage four\n")
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].PageNumber != 1 || pages[1].PageNumber != 4 {
		t.Errorf("page numbers should follow form feeds, got %d and %d", pages[0].PageNumber, pages[1].PageNumber)
	}
	if pages[1].Content != "page four" {
		t.Errorf("unexpected content %q", pages[1].Content)
	}
}

func TestNewResult_Pages(t *testing.T) {
	pages := []document.PageInfo{
		document.NewPage(1, "", "intro"),
		document.NewPage(2, "", "| a |\n|---|\n| 1 |"),
	}
	res := newResult("x.pdf", "pdf", "intro\n\n| a |\n|---|\n| 1 |", pages)
	if res.Metadata.TotalPages != 2 {
		t.Errorf("expected 2 pages, got %d", res.Metadata.TotalPages)
	}
	if res.Metadata.TotalTables != 1 {
		t.Errorf("expected 1 table, got %d", res.Metadata.TotalTables)
	}
	if res.Pages[1].TableCount != 1 {
		t.Errorf("expected page 2 to hold the table, got %d", res.Pages[1].TableCount)
	}
}
