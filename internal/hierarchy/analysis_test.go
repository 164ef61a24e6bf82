package hierarchy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parentOfSize(id string, size int) *ParentChunk {
	return &ParentChunk{Chunk: Chunk{ID: id, Size: size}}
}

func childOfSize(id, parent string, size int, table bool) *ChildChunk {
	return &ChildChunk{Chunk: Chunk{ID: id, Size: size}, ParentChunkID: parent, IsTableChunk: table}
}

func TestAnalyze(t *testing.T) {
	parents := []*ParentChunk{parentOfSize("p1", 1000), parentOfSize("p2", 600)}
	children := []*ChildChunk{
		childOfSize("c1", "p1", 300, false),
		childOfSize("c2", "p1", 450, true),
		childOfSize("c3", "p1", 120, true),
		childOfSize("c4", "p2", 1200, true),
	}
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	a := Analyze(parents, children, at)

	assert.Equal(t, 2, a.TotalParentChunks)
	assert.Equal(t, 4, a.TotalChildChunks)
	assert.Equal(t, 2.0, a.AvgChildrenPerParent)
	assert.Equal(t, SizeStats{Min: 600, Max: 1000, Avg: 800, Median: 1000}, a.ParentSizeStats)
	assert.Equal(t, SizeStats{Min: 120, Max: 1200, Avg: 517.5, Median: 450}, a.ChildSizeStats)

	ts := a.TableHandlingStats
	assert.Equal(t, 3, ts.TotalTableChunks)
	assert.Equal(t, 1, ts.TotalRegularChunks)
	assert.InDelta(t, 0.75, ts.TableChunkRatio, 1e-9)
	assert.InDelta(t, 590.0, ts.AvgTableSize, 1e-9)
	assert.Equal(t, 1200, ts.LargestTableSize)
	assert.Equal(t, 1, ts.TableFragmentationCount)

	// ideal 800, actual 517.5
	assert.InDelta(t, 1-282.5/800, a.GroupingEfficiency, 1e-9)
	assert.Equal(t, at, a.Timestamp)

	require.Len(t, a.SizeDistribution, 6)
	labels := make([]string, 0, 6)
	counts := make([]int, 0, 6)
	for _, b := range a.SizeDistribution {
		labels = append(labels, b.Label)
		counts = append(counts, b.Count)
	}
	assert.Equal(t, []string{"0-200", "200-400", "400-600", "600-800", "800-1000", "1000+"}, labels)
	assert.Equal(t, []int{1, 1, 1, 0, 0, 1}, counts)
}

func TestAnalyze_EfficiencyClamped(t *testing.T) {
	parents := []*ParentChunk{parentOfSize("p1", 100)}
	children := []*ChildChunk{childOfSize("c1", "p1", 500, false)}
	assert.Zero(t, Analyze(parents, children, time.Time{}).GroupingEfficiency)

	children = []*ChildChunk{childOfSize("c1", "p1", 100, false)}
	assert.Equal(t, 1.0, Analyze(parents, children, time.Time{}).GroupingEfficiency)

	assert.Zero(t, Analyze(parents, nil, time.Time{}).GroupingEfficiency)
	assert.Zero(t, Analyze([]*ParentChunk{parentOfSize("p", 0)}, children, time.Time{}).GroupingEfficiency)
}

func TestAnalyze_Empty(t *testing.T) {
	a := Analyze(nil, nil, time.Time{})
	assert.Zero(t, a.AvgChildrenPerParent)
	assert.Equal(t, SizeStats{}, a.ChildSizeStats)
	assert.Zero(t, a.TableHandlingStats.TableChunkRatio)
	for _, b := range a.SizeDistribution {
		assert.Zero(t, b.Count)
	}
}

func TestAnalyze_ZeroChildParentsVisible(t *testing.T) {
	parents := []*ParentChunk{parentOfSize("p1", 50), parentOfSize("p2", 50), parentOfSize("p3", 50)}
	children := []*ChildChunk{childOfSize("c1", "p1", 50, false)}
	a := Analyze(parents, children, time.Time{})
	assert.Less(t, a.AvgChildrenPerParent, 1.0)
}
