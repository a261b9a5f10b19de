package anchor

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Annotation is a comment or AI suggestion attached to a span of
// document text. SelectedText is immutable after creation; re-anchoring
// only ever moves Anchor and recomputes Similarity.
type Annotation struct {
	ID           string          `json:"id"`
	SelectedText string          `json:"selectedText"`
	Anchor       Span            `json:"anchor"`
	Similarity   float64         `json:"similarity"`
	Resolved     bool            `json:"resolved"`
	// Metadata is opaque to the engine (comment body, suggestion
	// payload, author) and round-tripped unchanged.
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Stale reports whether the last refresh failed to relocate the
// annotation with enough confidence.
func (a Annotation) Stale(threshold float64) bool {
	return !a.Resolved && a.Similarity < threshold
}

// DuplicateIDError reports an Add with an id already in the store. It
// indicates a caller bug and is never retried.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("annotation %q already registered", e.ID)
}

// InvalidRangeError reports an anchor outside [0, documentLength] or
// with from > to at registration time.
type InvalidRangeError struct {
	From   int
	To     int
	Length int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid anchor range [%d,%d] for document of length %d", e.From, e.To, e.Length)
}

// Store is the in-memory registry mapping annotation ids to their
// current anchors. It is not safe for concurrent use on its own; the
// Controller that owns it serializes access.
type Store struct {
	cfg         Config
	matcher     *Matcher
	annotations map[string]*Annotation
}

// NewStore creates an empty registry using cfg's thresholds.
func NewStore(cfg Config) *Store {
	cfg = cfg.withDefaults()
	return &Store{
		cfg:         cfg,
		matcher:     NewMatcher(cfg),
		annotations: make(map[string]*Annotation),
	}
}

// Add registers a new annotation anchored at [from,to) in doc. The
// selected text is captured from the document at registration time and
// never changes afterwards.
func (s *Store) Add(doc *TextIndex, id string, from, to int, metadata json.RawMessage) (Annotation, error) {
	if from < 0 || to < from || to > doc.Len() {
		return Annotation{}, &InvalidRangeError{From: from, To: to, Length: doc.Len()}
	}
	if _, exists := s.annotations[id]; exists {
		return Annotation{}, &DuplicateIDError{ID: id}
	}
	ann := &Annotation{
		ID:           id,
		SelectedText: doc.TextBetween(from, to),
		Anchor:       Span{From: from, To: to},
		Similarity:   1.0,
		Metadata:     metadata,
	}
	s.annotations[id] = ann
	return *ann, nil
}

// Restore rehydrates a previously persisted annotation, trusting its
// recorded anchor and selected text.
func (s *Store) Restore(ann Annotation) error {
	if _, exists := s.annotations[ann.ID]; exists {
		return &DuplicateIDError{ID: ann.ID}
	}
	copied := ann
	s.annotations[ann.ID] = &copied
	return nil
}

// Remove deletes the annotation. Removing an absent id is a no-op, not
// an error.
func (s *Store) Remove(id string) {
	delete(s.annotations, id)
}

// Resolve marks the annotation dismissed. Resolved annotations are
// excluded from matching but retained until explicitly removed, so the
// UI can still show resolution history. Returns false if absent.
func (s *Store) Resolve(id string) bool {
	ann, ok := s.annotations[id]
	if !ok {
		return false
	}
	ann.Resolved = true
	return true
}

// Get returns a copy of the annotation, or nil if absent.
func (s *Store) Get(id string) *Annotation {
	ann, ok := s.annotations[id]
	if !ok {
		return nil
	}
	copied := *ann
	return &copied
}

// Len returns the number of registered annotations.
func (s *Store) Len() int {
	return len(s.annotations)
}

// RefreshAll re-matches every unresolved annotation against the new
// document text. A match at or above the refresh threshold moves the
// anchor; below it the previous anchor is kept and only the (low)
// similarity is recorded, so the rendering layer can flag the
// annotation as possibly stale instead of silently relocating it to a
// bad guess. The returned list is a copy sorted by id, including
// resolved and untouched annotations, so the caller can re-render
// deterministically.
func (s *Store) RefreshAll(docText string) []Annotation {
	doc := BuildIndex(docText)
	for _, ann := range s.annotations {
		if !ann.Resolved && ann.SelectedText != "" {
			prior := ann.Anchor
			match := s.matcher.FindBestMatch(docText, ann.SelectedText, &prior)
			if match.Found() && match.Similarity >= s.cfg.RefreshThreshold {
				ann.Anchor = Span{From: match.Start, To: match.End}
			}
			ann.Similarity = match.Similarity
		}
		clampAnchor(ann, doc.Len())
	}
	return s.Snapshot()
}

// Snapshot returns a copy of every annotation, sorted by id. The
// internal map is never handed out, so a renderer can iterate the
// result while a later refresh mutates the store.
func (s *Store) Snapshot() []Annotation {
	out := make([]Annotation, 0, len(s.annotations))
	for _, ann := range s.annotations {
		out = append(out, *ann)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// clampAnchor pulls an anchor back inside the document when the text
// shrank below it. Shrinking takes precedence over the keep-previous-
// anchor rule: an out-of-range anchor is unusable for rendering.
func clampAnchor(ann *Annotation, docLen int) {
	if ann.Anchor.To > docLen {
		ann.Anchor.To = docLen
	}
	if ann.Anchor.From > ann.Anchor.To {
		ann.Anchor.From = ann.Anchor.To
	}
	if ann.Anchor.From < 0 {
		ann.Anchor.From = 0
	}
}
