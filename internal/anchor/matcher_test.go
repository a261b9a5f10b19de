package anchor

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFindBestMatchExactRelocation(t *testing.T) {
	// The annotated sentence shifted right by an insertion earlier in
	// the document; the match must follow it at full confidence.
	doc := "The cat sat happily. The dog ran."
	m := NewMatcher(DefaultConfig())

	got := m.FindBestMatch(doc, "The dog ran.", &Span{From: 13, To: 25})
	if got.Start != 21 || got.End != 33 {
		t.Errorf("expected span (21,33), got (%d,%d)", got.Start, got.End)
	}
	if !almostEqual(got.Similarity, 1.0) {
		t.Errorf("expected similarity 1.0, got %f", got.Similarity)
	}
}

func TestFindBestMatchEmptyInputs(t *testing.T) {
	m := NewMatcher(DefaultConfig())

	for _, target := range []string{"", "   ", "\n\t"} {
		if got := m.FindBestMatch("some document text", target, nil); got.Found() {
			t.Errorf("untokenizable target %q should not match, got %+v", target, got)
		}
	}
	if got := m.FindBestMatch("", "The dog ran.", nil); got.Found() {
		t.Errorf("empty document should not match, got %+v", got)
	}
}

func TestFindBestMatchDeterministicFirstOccurrence(t *testing.T) {
	// The target appears twice; with no prior position the scan must
	// stop at the first occurrence, and repeated runs must agree.
	doc := "alpha beta gamma. alpha beta gamma."
	m := NewMatcher(DefaultConfig())

	first := m.FindBestMatch(doc, "alpha beta gamma.", nil)
	if first.Start != 0 || first.End != 17 {
		t.Fatalf("expected first occurrence (0,17), got (%d,%d)", first.Start, first.End)
	}
	if first.Similarity < 0.9 {
		t.Fatalf("expected early-exit quality match, got %f", first.Similarity)
	}
	for i := 0; i < 5; i++ {
		again := m.FindBestMatch(doc, "alpha beta gamma.", nil)
		if again != first {
			t.Fatalf("run %d diverged: %+v vs %+v", i, again, first)
		}
	}
}

func TestFindBestMatchPriorPositionBreaksTies(t *testing.T) {
	// Both halves score 2/3 for this target; the prior position near
	// the second occurrence must pull the match there.
	doc := "red fox jumps over and red fox leaps"
	m := NewMatcher(DefaultConfig())

	withPrior := m.FindBestMatch(doc, "red fox dances", &Span{From: 23, To: 36})
	if withPrior.Start != 22 || withPrior.End != 36 {
		t.Errorf("expected tie broken toward prior, got (%d,%d)", withPrior.Start, withPrior.End)
	}
	if !almostEqual(withPrior.Similarity, 2.0/3.0) {
		t.Errorf("expected similarity 2/3, got %f", withPrior.Similarity)
	}

	withoutPrior := m.FindBestMatch(doc, "red fox dances", nil)
	if withoutPrior.Start != 0 {
		t.Errorf("without prior the first candidate wins, got start %d", withoutPrior.Start)
	}
}

func TestFindBestMatchExactSubstringScoresFull(t *testing.T) {
	docs := []struct {
		doc    string
		target string
	}{
		{"Meeting notes from Tuesday about the budget review.", "about the budget"},
		{"first line\nsecond line\nthird line", "second line"},
	}
	m := NewMatcher(DefaultConfig())
	for _, tc := range docs {
		got := m.FindBestMatch(tc.doc, tc.target, nil)
		if !got.Found() {
			t.Errorf("exact substring %q not found in %q", tc.target, tc.doc)
			continue
		}
		if !almostEqual(got.Similarity, 1.0) {
			t.Errorf("exact substring %q scored %f, want 1.0", tc.target, got.Similarity)
		}
	}
}

func TestFindBestMatchSurvivesWhitespaceNoise(t *testing.T) {
	// Word content is unchanged but the formatting differs; the wider
	// candidate windows must still recover the passage.
	doc := "Summary:  the   quarterly   numbers   improved  again."
	m := NewMatcher(DefaultConfig())

	got := m.FindBestMatch(doc, "the quarterly numbers improved", nil)
	if !got.Found() {
		t.Fatal("expected a match despite whitespace noise")
	}
	if got.Similarity < 0.9 {
		t.Errorf("expected high similarity, got %f", got.Similarity)
	}
}

func TestWindowLengthsFloorAndDedupe(t *testing.T) {
	m := NewMatcher(DefaultConfig())

	lengths := m.windowLengths(3)
	// 3 and 3-5 both floor to 5; 13 and 23 stay.
	want := []int{5, 13, 23}
	if len(lengths) != len(want) {
		t.Fatalf("windowLengths(3) = %v, want %v", lengths, want)
	}
	for i := range want {
		if lengths[i] != want[i] {
			t.Fatalf("windowLengths(3) = %v, want %v", lengths, want)
		}
	}
}

func TestMatcherConfigDefaults(t *testing.T) {
	m := NewMatcher(Config{})
	def := DefaultConfig()
	if m.cfg.RefreshThreshold != def.RefreshThreshold ||
		m.cfg.EarlyExitThreshold != def.EarlyExitThreshold ||
		m.cfg.MinWindow != def.MinWindow {
		t.Errorf("zero config should fall back to defaults, got %+v", m.cfg)
	}
}
