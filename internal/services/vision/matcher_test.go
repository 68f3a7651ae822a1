package vision

import (
	"reflect"
	"testing"

	"gocv.io/x/gocv"
)

func sampleMatches(n int) []Match {
	matches := make([]Match, n)
	for i := range matches {
		// Distances cycle so that ties are present.
		matches[i] = Match{QueryIdx: i, TrainIdx: n - i, Distance: float64((i * 7) % 11)}
	}
	return matches
}

func TestFilterMatches_Length(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		keepCount int
		expected  int
	}{
		{"more than keep", 40, 15, 15},
		{"fewer than keep", 9, 15, 9},
		{"exactly keep", 15, 15, 15},
		{"empty", 0, 15, 0},
		{"zero keep uses default", 40, 0, DefaultKeepCount},
		{"negative keep uses default", 40, -3, DefaultKeepCount},
		{"custom keep", 40, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterMatches(sampleMatches(tt.count), tt.keepCount)
			if len(got) != tt.expected {
				t.Errorf("FilterMatches kept %d, expected %d", len(got), tt.expected)
			}
		})
	}
}

func TestFilterMatches_SortedAndStable(t *testing.T) {
	got := FilterMatches(sampleMatches(30), 20)

	for i := 1; i < len(got); i++ {
		if got[i].Distance < got[i-1].Distance {
			t.Fatalf("matches not sorted at %d: %v then %v", i, got[i-1], got[i])
		}
		if got[i].Distance == got[i-1].Distance && got[i].QueryIdx < got[i-1].QueryIdx {
			t.Errorf("tie at distance %v broke input order: %d before %d", got[i].Distance, got[i-1].QueryIdx, got[i].QueryIdx)
		}
	}
}

func TestFilterMatches_KeepsBest(t *testing.T) {
	matches := []Match{
		{QueryIdx: 0, Distance: 90},
		{QueryIdx: 1, Distance: 10},
		{QueryIdx: 2, Distance: 50},
		{QueryIdx: 3, Distance: 20},
	}

	got := FilterMatches(matches, 2)
	if len(got) != 2 || got[0].QueryIdx != 1 || got[1].QueryIdx != 3 {
		t.Errorf("FilterMatches = %v, expected queries 1 and 3", got)
	}
}

func TestFilterMatches_DoesNotMutateInput(t *testing.T) {
	matches := sampleMatches(25)
	before := make([]Match, len(matches))
	copy(before, matches)

	FilterMatches(matches, 10)

	if !reflect.DeepEqual(matches, before) {
		t.Error("FilterMatches reordered its input")
	}
}

func TestFilterMatches_Idempotent(t *testing.T) {
	once := FilterMatches(sampleMatches(50), 15)
	twice := FilterMatches(once, 15)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second filter changed the result:\n%v\n%v", once, twice)
	}
}

func TestDescriptorMatcher_EmptySets(t *testing.T) {
	matcher := NewDescriptorMatcher()
	defer matcher.Close()

	empty := gocv.NewMat()
	defer empty.Close()
	desc := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(7, 0, 0, 0), 5, 61, gocv.MatTypeCV8U)
	defer desc.Close()

	if got := matcher.Match(empty, desc); len(got) != 0 {
		t.Errorf("empty query gave %d matches", len(got))
	}
	if got := matcher.Match(desc, empty); len(got) != 0 {
		t.Errorf("empty reference gave %d matches", len(got))
	}
}

func TestDescriptorMatcher_OneMatchPerQuery(t *testing.T) {
	detector := NewFeatureDetector()
	defer detector.Close()
	matcher := NewDescriptorMatcher()
	defer matcher.Close()

	img := SyntheticPattern(320, 240, 3)
	defer img.Close()

	features, err := detector.Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	defer features.Close()
	if features.Empty() {
		t.Fatal("synthetic pattern produced no keypoints")
	}

	matches := matcher.Match(features.Descriptors, features.Descriptors)
	if len(matches) != features.Len() {
		t.Fatalf("got %d matches for %d queries", len(matches), features.Len())
	}
	for _, m := range matches {
		if m.Distance != 0 {
			t.Errorf("self match of %d has distance %v", m.QueryIdx, m.Distance)
		}
		if m.TrainIdx < 0 || m.TrainIdx >= features.Len() {
			t.Errorf("train index %d out of range", m.TrainIdx)
		}
	}
}
