package parser

import (
	"strings"
	"testing"
)

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.  \n\n\n\nSecond paragraph.\r\n\r\nThird paragraph."
	p := &TextParser{}
	res, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	if res.Content != want {
		t.Errorf("expected %q, got %q", want, res.Content)
	}
	if res.Metadata.ConverterUsed != "text" {
		t.Errorf("expected converter %q, got %q", "text", res.Metadata.ConverterUsed)
	}
	if got := res.Metadata.AdditionalInfo["paragraphs"]; got != 3 {
		t.Errorf("expected 3 paragraphs, got %v", got)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	res, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Content != "" {
		t.Errorf("expected empty content, got %q", res.Content)
	}
}

func TestTextParser_WhitespaceOnly(t *testing.T) {
	p := &TextParser{}
	res, err := p.Parse(strings.NewReader("   \n\n  \t  \n\n"), "blank.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Content != "" {
		t.Errorf("expected empty content, got %q", res.Content)
	}
}
