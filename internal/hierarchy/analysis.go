package hierarchy

import (
	"math"
	"slices"
	"strconv"
	"time"
)

var sizeBins = []Bin{
	{Min: 0, Max: 200},
	{Min: 200, Max: 400},
	{Min: 400, Max: 600},
	{Min: 600, Max: 800},
	{Min: 800, Max: 1000},
	{Min: 1000, Max: -1},
}

// Analyze summarises a finished chunk set. It is a pure function of its
// arguments; at is stamped into the result.
func Analyze(parents []*ParentChunk, children []*ChildChunk, at time.Time) GroupingAnalysis {
	parentSizes := make([]int, len(parents))
	for i, p := range parents {
		parentSizes[i] = p.Size
	}
	childSizes := make([]int, len(children))
	for i, c := range children {
		childSizes[i] = c.Size
	}

	a := GroupingAnalysis{
		TotalParentChunks:  len(parents),
		TotalChildChunks:   len(children),
		ParentSizeStats:    sizeStats(parentSizes),
		ChildSizeStats:     sizeStats(childSizes),
		TableHandlingStats: tableStats(children),
		GroupingEfficiency: efficiency(parentSizes, childSizes),
		SizeDistribution:   distribution(childSizes),
		Timestamp:          at,
	}
	if len(parents) > 0 {
		a.AvgChildrenPerParent = float64(len(children)) / float64(len(parents))
	}
	return a
}

func sizeStats(sizes []int) SizeStats {
	if len(sizes) == 0 {
		return SizeStats{}
	}
	sorted := slices.Clone(sizes)
	slices.Sort(sorted)
	total := 0
	for _, s := range sorted {
		total += s
	}
	return SizeStats{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Avg:    float64(total) / float64(len(sorted)),
		Median: float64(sorted[len(sorted)/2]),
	}
}

func tableStats(children []*ChildChunk) TableStats {
	var st TableStats
	perParent := make(map[string]int)
	total := 0
	for _, c := range children {
		if !c.IsTableChunk {
			st.TotalRegularChunks++
			continue
		}
		st.TotalTableChunks++
		total += c.Size
		st.LargestTableSize = max(st.LargestTableSize, c.Size)
		perParent[c.ParentChunkID]++
	}
	if n := len(children); n > 0 {
		st.TableChunkRatio = float64(st.TotalTableChunks) / float64(n)
	}
	if st.TotalTableChunks > 0 {
		st.AvgTableSize = float64(total) / float64(st.TotalTableChunks)
	}
	for _, n := range perParent {
		if n > 1 {
			st.TableFragmentationCount++
		}
	}
	return st
}

// efficiency compares the average child size with the average parent size.
// It is advisory only and always within [0, 1].
func efficiency(parentSizes, childSizes []int) float64 {
	if len(parentSizes) == 0 || len(childSizes) == 0 {
		return 0
	}
	parentTotal, childTotal := 0, 0
	for _, s := range parentSizes {
		parentTotal += s
	}
	for _, s := range childSizes {
		childTotal += s
	}
	if parentTotal == 0 {
		return 0
	}
	ideal := float64(parentTotal) / float64(len(parentSizes))
	actual := float64(childTotal) / float64(len(childSizes))
	e := 1 - math.Abs(actual-ideal)/ideal
	return math.Max(0, math.Min(1, e))
}

func distribution(sizes []int) []Bin {
	bins := slices.Clone(sizeBins)
	for i := range bins {
		if bins[i].Max < 0 {
			bins[i].Label = strconv.Itoa(bins[i].Min) + "+"
		} else {
			bins[i].Label = strconv.Itoa(bins[i].Min) + "-" + strconv.Itoa(bins[i].Max)
		}
	}
	for _, s := range sizes {
		for i := range bins {
			if s >= bins[i].Min && (bins[i].Max < 0 || s < bins[i].Max) {
				bins[i].Count++
				break
			}
		}
	}
	return bins
}
