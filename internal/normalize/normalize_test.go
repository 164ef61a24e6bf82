package normalize

import (
	"strings"
	"testing"

	"github.com/dgallion1/hierchunk/internal/tableguard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_PreservesColumnCount(t *testing.T) {
	input := "|A|B|C|D|E|F|G|H|\n|---|---|---|---|---|---|---|---|\n|1|2|3|4|5|6|7|8|"
	out := Normalize(input)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)

	header := tableguard.Cells(lines[0])
	sep := tableguard.Cells(lines[1])
	assert.Len(t, header, 8)
	assert.Len(t, sep, 8)
	for i, c := range sep {
		assert.NotEmpty(t, c, "separator cell %d", i)
		assert.NotEmpty(t, header[i], "header cell %d", i)
	}
}

func TestNormalize_MessySeparatorKeepsColumns(t *testing.T) {
	input := "| a | b | c | d |\n| :-- | - | --: |---|\n| 1 | 2 | 3 | 4 |"
	out := Normalize(input)
	assert.Equal(t, "|a|b|c|d|\n|:---|---|---:|---|\n|1|2|3|4|\n", out)
}

func TestNormalize_Idempotent(t *testing.T) {
	samples := []string{
		"",
		"   \n\t\n",
		"# Title\n\nSome text.  \n\n\n\nMore text.",
		"<p>Hello<br>World</p>",
		"<<b>i>nested</i>",
		"x\r\ny\r\n",
		"|a|b|\n|-|-|\n|  1 |2|\n# H\ntext",
		"| a<br>b | c |\n|:---:|---|\n| 1 | 2 |\nafter the table",
		"```\n|  a  |  b |\n|---|---|\n```\n\n\n\nend",
		"<!-- comment -->\n" + tableguard.StartMarker + "\n| a |\n|---|\n" + tableguard.EndMarker,
		"See <https://example.com> for details <span class=\"x\">inline</span>.",
		"| a |  | b |\n|---||---|\n| 1 |  | 2 |",
	}
	for _, s := range samples {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input %q", s)
	}
}

func TestNormalize_HTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"br becomes newline", "<p>Hello<br>World</p>", "Hello\nWorld\n"},
		{"self closing br", "a<br/>b<BR />c", "a\nb\nc\n"},
		{"br in table row", "| a<br>b | c |\n|---|---|\n| 1 | 2 |", "|a b|c|\n|---|---|\n|1|2|\n"},
		{"nested remnants", "<<b>i>nested</i>", "nested\n"},
		{"comments removed", "<!-- note -->kept", "kept\n"},
		{"autolink kept", "See <https://x.io> now", "See <https://x.io> now\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_KeepsSentinels(t *testing.T) {
	in := tableguard.StartMarker + "\n| a |\n|---|\n| 1 |\n" + tableguard.EndMarker
	out := Normalize(in)
	assert.Contains(t, out, tableguard.StartMarker)
	assert.Contains(t, out, tableguard.EndMarker)
}

func TestNormalize_Whitespace(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize(" \n\t \n"))
	assert.Equal(t, "a\n\nb\n", Normalize("\n\na   \n\n\n\n\nb  \n\n"))
	assert.Equal(t, "x\ny\n", Normalize("x\r\ny\r\n"))
}

func TestNormalize_BlankLineAfterTable(t *testing.T) {
	out := Normalize("| a |\n|---|\n| 1 |\ntext")
	assert.Equal(t, "|a|\n|---|\n|1|\n\ntext\n", out)
}

func TestNormalize_CodeFenceUntouched(t *testing.T) {
	out := Normalize("```\n|  a  |  b |\n```")
	assert.Equal(t, "```\n|  a  |  b |\n```\n", out)
}

func TestNormalizer_OptionsDisabled(t *testing.T) {
	n := New(Options{})
	out := n.Normalize("<b>x</b>\n\n\n\n| a  |  b |")
	assert.Equal(t, "<b>x</b>\n\n\n\n| a  |  b |\n", out)
}
