package vision

import (
	"sort"

	"gocv.io/x/gocv"
)

// DefaultKeepCount is how many of the best matches FilterMatches keeps.
const DefaultKeepCount = 15

// Match pairs a query descriptor with its nearest reference descriptor.
// Lower Distance means more similar.
type Match struct {
	QueryIdx int
	TrainIdx int
	Distance float64
}

// DescriptorMatcher does brute-force nearest neighbour matching of binary
// descriptors using the Hamming distance. There is no cross-check: several
// query descriptors may share the same reference descriptor.
type DescriptorMatcher struct {
	bf gocv.BFMatcher
}

// NewDescriptorMatcher allocates the native matcher. Call Close when done.
func NewDescriptorMatcher() *DescriptorMatcher {
	return &DescriptorMatcher{bf: gocv.NewBFMatcherWithParams(gocv.NormHamming, false)}
}

// Match finds, for every row of query, the closest row of reference.
// Either set being empty yields no matches.
func (m *DescriptorMatcher) Match(query, reference gocv.Mat) []Match {
	if query.Empty() || reference.Empty() {
		return nil
	}

	dmatches := m.bf.Match(query, reference)
	matches := make([]Match, 0, len(dmatches))
	for _, dm := range dmatches {
		matches = append(matches, Match{
			QueryIdx: dm.QueryIdx,
			TrainIdx: dm.TrainIdx,
			Distance: dm.Distance,
		})
	}
	return matches
}

// Close releases the native matcher.
func (m *DescriptorMatcher) Close() error {
	return m.bf.Close()
}

// FilterMatches sorts matches by ascending distance and keeps the first
// keepCount of them (all of them if there are fewer). A keepCount of zero or
// less means DefaultKeepCount. The input slice is left untouched.
func FilterMatches(matches []Match, keepCount int) []Match {
	if keepCount <= 0 {
		keepCount = DefaultKeepCount
	}

	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Distance < sorted[j].Distance
	})

	if len(sorted) > keepCount {
		sorted = sorted[:keepCount]
	}
	return sorted
}
