package anchor

// Span is a byte-offset range into the live document.
type Span struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Match is the outcome of a passage search. A Start of -1 and a
// Similarity of 0 mean no usable match was found; callers check for the
// sentinel rather than an error, because "no match" is an expected
// outcome (the annotated sentence may simply have been deleted).
type Match struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Similarity float64 `json:"similarity"`
}

// NoMatch is the sentinel returned when nothing usable was found.
var NoMatch = Match{Start: -1, End: -1, Similarity: 0}

// Found reports whether the match points at a real span.
func (m Match) Found() bool {
	return m.Start >= 0
}

// Config carries the matcher thresholds. The values are tunable rather
// than buried in the scan so tests and callers can tighten or relax
// them per document.
type Config struct {
	// RefreshThreshold is the minimum similarity at which a refresh
	// adopts a new anchor position. Below it the previous anchor is
	// kept and the annotation is flagged as possibly stale.
	RefreshThreshold float64
	// EarlyExitThreshold stops the window scan as soon as a candidate
	// scores at least this high.
	EarlyExitThreshold float64
	// MinWindow floors the candidate window lengths.
	MinWindow int
}

// DefaultConfig returns the thresholds the product ships with.
func DefaultConfig() Config {
	return Config{
		RefreshThreshold:   0.7,
		EarlyExitThreshold: 0.9,
		MinWindow:          5,
	}
}

// Matcher locates the best approximate match for a target passage
// inside a document. The search is a greedy windowed word-overlap scan,
// not edit distance: the dominant real-world perturbation is markdown
// and whitespace noise that preserves word identity, not arbitrary
// character edits.
type Matcher struct {
	cfg Config
}

// withDefaults fills zero-valued threshold fields from DefaultConfig.
func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.RefreshThreshold <= 0 {
		cfg.RefreshThreshold = def.RefreshThreshold
	}
	if cfg.EarlyExitThreshold <= 0 {
		cfg.EarlyExitThreshold = def.EarlyExitThreshold
	}
	if cfg.MinWindow <= 0 {
		cfg.MinWindow = def.MinWindow
	}
	return cfg
}

// NewMatcher creates a matcher with the given thresholds. Zero-valued
// fields fall back to the defaults.
func NewMatcher(cfg Config) *Matcher {
	return &Matcher{cfg: cfg.withDefaults()}
}

// FindBestMatch scans docText for the span that best matches
// targetText. When prior is non-nil, ties in similarity are broken by
// preferring the candidate whose center is closest to the prior span's
// center; otherwise the first candidate found wins. Scan order is
// fixed (window lengths in declaration order, then increasing
// position), so repeated runs on identical input return the same span.
func (m *Matcher) FindBestMatch(docText, targetText string, prior *Span) Match {
	targetWords := SliceWords(targetText)
	if len(targetWords) == 0 {
		return NoMatch
	}

	targetSet := make(map[string]struct{}, len(targetWords))
	for _, w := range targetWords {
		targetSet[w] = struct{}{}
	}

	best := NoMatch
	docLen := len(docText)

	for _, windowLen := range m.windowLengths(len(targetText)) {
		if windowLen > docLen {
			continue
		}
		for pos := 0; pos+windowLen <= docLen; pos++ {
			similarity := overlap(targetSet, docText[pos:pos+windowLen])
			if similarity == 0 {
				continue
			}
			candidate := Match{Start: pos, End: pos + windowLen, Similarity: similarity}
			if similarity > best.Similarity {
				best = candidate
			} else if similarity == best.Similarity && prior != nil && closerToPrior(candidate, best, *prior) {
				best = candidate
			}
			if best.Similarity >= m.cfg.EarlyExitThreshold {
				return best
			}
		}
	}
	return best
}

// windowLengths builds the candidate window sizes: the target length
// itself plus slop for formatting differences that change character
// count without changing word content. Duplicates after flooring are
// dropped so each length scans once.
func (m *Matcher) windowLengths(targetLen int) []int {
	raw := []int{targetLen, targetLen + 10, targetLen + 20, targetLen - 5}
	lengths := make([]int, 0, len(raw))
	seen := make(map[int]struct{}, len(raw))
	for _, l := range raw {
		if l < m.cfg.MinWindow {
			l = m.cfg.MinWindow
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		lengths = append(lengths, l)
	}
	return lengths
}

// overlap computes the duplicate-insensitive word-overlap similarity
// |target intersect window| / |target| over lowercase word forms.
func overlap(targetSet map[string]struct{}, window string) float64 {
	windowWords := SliceWords(window)
	if len(windowWords) == 0 {
		return 0
	}
	windowSet := make(map[string]struct{}, len(windowWords))
	for _, w := range windowWords {
		windowSet[w] = struct{}{}
	}
	hits := 0
	for w := range targetSet {
		if _, ok := windowSet[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(targetSet))
}

func closerToPrior(candidate, current Match, prior Span) bool {
	priorCenter := prior.From + (prior.To-prior.From)/2
	return centerDistance(candidate, priorCenter) < centerDistance(current, priorCenter)
}

func centerDistance(m Match, center int) int {
	mid := m.Start + (m.End-m.Start)/2
	if mid > center {
		return mid - center
	}
	return center - mid
}
