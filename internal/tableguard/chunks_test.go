package tableguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type piece struct {
	text    string
	flagged bool
	merged  int
}

func (p piece) Text() string       { return p.text }
func (p piece) FlaggedTable() bool { return p.flagged }

func TestIsTableChunk(t *testing.T) {
	tests := []struct {
		name string
		in   piece
		want bool
	}{
		{"markers", piece{text: StartMarker + "\n| a |"}, true},
		{"detected", piece{text: "| a | b |\n|---|---|\n| 1 | 2 |"}, true},
		{"row fragment", piece{text: "| 3 | 4 |\n| 5 | 6 |"}, true},
		{"flagged", piece{text: "plain", flagged: true}, true},
		{"prose", piece{text: "Just a sentence."}, false},
		{"mixed prose and row", piece{text: "Intro line\n| 3 | 4 |"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTableChunk(tt.in))
		})
	}
}

func TestSeparate_KeepsOrder(t *testing.T) {
	in := []piece{
		{text: "one"},
		{text: "| a | b |\n| c | d |"},
		{text: "two"},
		{text: "x", flagged: true},
	}
	tables, regular := Separate(in)
	require.Len(t, tables, 2)
	require.Len(t, regular, 2)
	assert.Equal(t, "| a | b |\n| c | d |", tables[0].text)
	assert.Equal(t, "x", tables[1].text)
	assert.Equal(t, "one", regular[0].text)
	assert.Equal(t, "two", regular[1].text)
}

func TestMergeTableChunks_GroupsByMarkers(t *testing.T) {
	in := []piece{
		{text: StartMarker + "\n| a |"},
		{text: "| b |"},
		{text: "| c |\n" + EndMarker},
		{text: StartMarker + "\n| x |\n|---|\n" + EndMarker},
		{text: "| orphan |"},
	}
	combine := func(group []piece, content string) piece {
		return piece{text: content, flagged: true, merged: len(group)}
	}
	out := MergeTableChunks(in, combine)
	require.Len(t, out, 3)

	assert.Equal(t, "| a |\n| b |\n| c |", out[0].text)
	assert.Equal(t, 3, out[0].merged)
	assert.Equal(t, "| x |\n|---|", out[1].text)
	assert.Equal(t, 1, out[1].merged)
	assert.Equal(t, "| orphan |", out[2].text)
	assert.Equal(t, 1, out[2].merged)
}

func TestMergeTableChunks_UnclosedGroupFlushed(t *testing.T) {
	in := []piece{
		{text: StartMarker + "\n| a |"},
		{text: "| b |"},
	}
	out := MergeTableChunks(in, func(group []piece, content string) piece {
		return piece{text: content, merged: len(group)}
	})
	require.Len(t, out, 1)
	assert.Equal(t, "| a |\n| b |", out[0].text)
	assert.Equal(t, 2, out[0].merged)
}

func TestDescribe(t *testing.T) {
	info := Describe(StartMarker + "\n| a | b |\n|---|---|\n| 1 | 2 |\n" + EndMarker)
	assert.Equal(t, 2, info.RowCount)
	assert.True(t, info.HasSeparator)
	assert.Equal(t, 2, info.MarkerCount)
}

func TestStats(t *testing.T) {
	in := []piece{
		{text: "plain prose"},
		{text: "| a | b |\n|---|---|\n| 1 | 2 |"},
		{text: "flagged", flagged: true},
	}
	s := Stats(in)
	assert.Equal(t, 2, s.TableChunks)
	assert.Equal(t, 29+7, s.TotalLength)
	assert.Equal(t, 29, s.LargestTable)
	assert.InDelta(t, 18.0, s.AvgLength, 0.001)

	assert.Zero(t, Stats([]piece{{text: "x"}}).AvgLength)
}
