package hierarchy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/hierchunk/internal/document"
)

func TestSplitFlat_MergesTableFragments(t *testing.T) {
	b := newTestBuilder(t, func(c *Config) {
		c.FlatChunkSize = 200
		c.FlatChunkOverlap = 20
		c.TablePolicy = "rows"
	})
	table := dataTable(12)
	res := document.FromText("flat.md", "# Intro\n\nSome opening words for the report.\n\n## Table\n\n"+table)

	chunks := b.SplitFlat(res, nil)
	require.NotEmpty(t, chunks)

	tables := 0
	for _, c := range chunks {
		assert.NotContains(t, c.Content, "TABLE_START")
		assert.NotContains(t, c.Content, "TABLE_END")
		if c.Metadata.IsTable {
			tables++
			assert.Contains(t, c.Content, "|12|item 12|")
			assert.Contains(t, c.Content, "|1|item 1|")
		}
	}
	assert.Equal(t, 1, tables, "the oversized table is kept as one chunk")

	st := FlatStatistics(chunks)
	assert.Equal(t, len(chunks), st.TotalChunks)
	assert.Equal(t, 1, st.TableChunks)
	assert.Equal(t, st.TotalChunks-1, st.RegularChunks)
}

func TestSplitFlat_EstimatesPages(t *testing.T) {
	ref := &document.ConversionResult{
		Pages: []document.PageInfo{
			document.NewPage(1, "", "Solar panels convert sunlight into electricity using photovoltaic cells."),
			document.NewPage(2, "", "Wind turbines harvest kinetic energy from moving air masses."),
		},
	}
	text := "# Solar\n\nSolar panels convert sunlight into electricity using photovoltaic cells.\n\n" +
		"# Wind\n\nWind turbines harvest kinetic energy from moving air masses."

	b := newTestBuilder(t, nil)
	chunks := b.SplitFlat(document.FromText("energy.md", text), ref)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Metadata.PageNumber)
	assert.Equal(t, 2, chunks[1].Metadata.PageNumber)

	chunks = b.SplitFlat(document.FromText("energy.md", text), nil)
	for _, c := range chunks {
		assert.Zero(t, c.Metadata.PageNumber)
	}
}

func TestSplitFlat_Pages(t *testing.T) {
	res := &document.ConversionResult{
		Metadata: document.ConversionMetadata{FileName: "p.pdf"},
		Pages: []document.PageInfo{
			document.NewPage(1, "One", "# A\n\n"+strings.Repeat("alpha ", 20)),
			document.NewPage(2, "Two", "# B\n\n"+strings.Repeat("beta ", 20)),
		},
	}
	b := newTestBuilder(t, nil)
	chunks := b.SplitFlat(res, nil)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Two", chunks[1].Metadata.PageTitle)
	assert.Equal(t, "B", chunks[1].Metadata.Headers["Header 1"])
}

func TestEstimatePage(t *testing.T) {
	pages := []document.PageInfo{
		{PageNumber: 4, Content: "red green blue"},
		{PageNumber: 5, Content: "red green blue yellow"},
	}
	assert.Equal(t, 5, EstimatePage("RED green blue yellow", pages))
	assert.Zero(t, EstimatePage("nothing in common", pages))
	assert.Zero(t, EstimatePage("", pages))
	assert.Zero(t, EstimatePage("red", nil))
}
