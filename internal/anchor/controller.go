package anchor

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync"
)

// DecorationEventType distinguishes incremental updates from full
// replacements of the decoration set.
type DecorationEventType string

const (
	DecorationAdd     DecorationEventType = "ADD"
	DecorationRemove  DecorationEventType = "REMOVE"
	DecorationRefresh DecorationEventType = "REFRESH"
)

// Decoration is a renderable highlight span for an active annotation.
type Decoration struct {
	ID         string  `json:"id"`
	From       int     `json:"from"`
	To         int     `json:"to"`
	Similarity float64 `json:"similarity"`
	// Stale marks an annotation the last refresh could not relocate
	// with enough confidence; the UI shows a "possibly outdated" badge
	// instead of dropping it.
	Stale bool `json:"stale"`
}

// DecorationEvent is delivered to the rendering layer. ADD and REMOVE
// carry a single decoration; REFRESH carries the full replacement set.
type DecorationEvent struct {
	Type        DecorationEventType `json:"type"`
	Decorations []Decoration        `json:"decorations"`
}

// Controller bridges document-change events and the anchor store to
// the set of renderable spans. All operations run to completion
// synchronously and are serialized by an internal mutex, so an
// in-flight refresh always assigns its final anchor state before the
// next document change is processed. Subscribers are invoked in
// delivery order while that lock is held and must not call back into
// the controller.
type Controller struct {
	mu    sync.Mutex
	cfg   Config
	store *Store
	doc   *TextIndex

	decorationSubs []func(DecorationEvent)
	activationSubs []func(id string)
}

// NewController creates a controller over its own store, seeded with
// the current document text. Each document gets its own controller and
// store; nothing here is process-global, so multiple documents and
// tests run isolated.
func NewController(cfg Config, documentText string) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:   cfg,
		store: NewStore(cfg),
		doc:   BuildIndex(documentText),
	}
}

// SubscribeDecorations registers a callback for decoration events.
func (c *Controller) SubscribeDecorations(fn func(DecorationEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decorationSubs = append(c.decorationSubs, fn)
}

// SubscribeActivations registers a callback fired when a rendered span
// is activated (clicked) so the UI can open the matching panel.
func (c *Controller) SubscribeActivations(fn func(id string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activationSubs = append(c.activationSubs, fn)
}

// Activate reports a user interaction with the rendered span for id.
func (c *Controller) Activate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fn := range c.activationSubs {
		fn(id)
	}
}

// OnAnnotationCreated registers a new annotation and emits a single
// incremental decoration add. No refresh is needed: the position is
// exact at creation time.
func (c *Controller) OnAnnotationCreated(id string, from, to int, metadata json.RawMessage) (Annotation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ann, err := c.store.Add(c.doc, id, from, to, metadata)
	if err != nil {
		return Annotation{}, err
	}
	c.emit(DecorationEvent{Type: DecorationAdd, Decorations: []Decoration{c.decoration(ann)}})
	return ann, nil
}

// Restore rehydrates a persisted annotation without emitting events,
// used when a controller is rebuilt from storage.
func (c *Controller) Restore(ann Annotation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Restore(ann)
}

// OnAnnotationRemoved removes the annotation and emits a single
// incremental decoration removal. Removing an unknown id is a no-op.
func (c *Controller) OnAnnotationRemoved(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store.Get(id) == nil {
		return
	}
	c.store.Remove(id)
	c.emit(DecorationEvent{Type: DecorationRemove, Decorations: []Decoration{{ID: id}}})
}

// OnAnnotationResolved dismisses the annotation: it drops out of the
// active decoration set but stays in the store for history. Returns
// false if the id is unknown.
func (c *Controller) OnAnnotationResolved(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.store.Resolve(id) {
		return false
	}
	c.emit(DecorationEvent{Type: DecorationRemove, Decorations: []Decoration{{ID: id}}})
	return true
}

// OnDocumentChanged refreshes every anchor against the new text and
// emits one full decoration-set replacement. The returned list is the
// complete post-refresh annotation state.
func (c *Controller) OnDocumentChanged(newText string) []Annotation {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc = BuildIndex(newText)
	annotations := c.store.RefreshAll(newText)

	decorations := make([]Decoration, 0, len(annotations))
	for _, ann := range annotations {
		if ann.Resolved {
			continue
		}
		decorations = append(decorations, c.decoration(ann))
	}
	c.emit(DecorationEvent{Type: DecorationRefresh, Decorations: decorations})
	return annotations
}

// Annotations returns a snapshot of the store, sorted by id.
func (c *Controller) Annotations() []Annotation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Snapshot()
}

// Get returns a copy of one annotation, or nil.
func (c *Controller) Get(id string) *Annotation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Get(id)
}

// DocumentText returns the text of the current snapshot.
func (c *Controller) DocumentText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Text()
}

// LocatePassage finds text in the current document for one-shot uses:
// placing a brand-new annotation or applying an AI-suggested
// replacement. Tiers, cheapest first: exact substring, whitespace-
// normalized search, markdown-stripped search, windowed fuzzy scan,
// and finally a contiguous word-sequence heuristic that accepts 80% of
// a three-or-more-word target. A miss returns the -1 sentinel, never
// an error.
func (c *Controller) LocatePassage(text string) Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	return locate(c.doc, NewMatcher(c.cfg), text, c.cfg.RefreshThreshold)
}

func locate(doc *TextIndex, matcher *Matcher, text string, threshold float64) Match {
	if strings.TrimSpace(text) == "" {
		return NoMatch
	}

	if idx := strings.Index(doc.Text(), text); idx >= 0 {
		return Match{Start: idx, End: idx + len(text), Similarity: 1.0}
	}

	if m := findNormalized(doc.Text(), text); m.Found() {
		return m
	}

	if stripped := stripMarkdown(text); stripped != text {
		if idx := strings.Index(doc.Text(), stripped); idx >= 0 {
			return Match{Start: idx, End: idx + len(stripped), Similarity: 1.0}
		}
		if m := findNormalized(doc.Text(), stripped); m.Found() {
			return m
		}
	}

	if m := matcher.FindBestMatch(doc.Text(), text, nil); m.Found() && m.Similarity >= threshold {
		return m
	}

	return findWordSequence(doc, text)
}

// findNormalized searches for target with whitespace runs treated as
// equivalent, so line wrapping and indentation changes do not break
// exact lookups. Offsets come back in original document coordinates.
func findNormalized(docText, target string) Match {
	words := strings.Fields(target)
	if len(words) == 0 {
		return NoMatch
	}
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = regexp.QuoteMeta(w)
	}
	re, err := regexp.Compile(`(?s)` + strings.Join(parts, `\s+`))
	if err != nil {
		return NoMatch
	}
	loc := re.FindStringIndex(docText)
	if loc == nil {
		return NoMatch
	}
	return Match{Start: loc[0], End: loc[1], Similarity: 1.0}
}

// stripMarkdown drops the inline markdown syntax characters that most
// often differ between the annotated text and the rendered document.
func stripMarkdown(text string) string {
	replacer := strings.NewReplacer("**", "", "__", "", "*", "", "_", "", "`", "", "~~", "", "#", "")
	return strings.TrimSpace(replacer.Replace(text))
}

// findWordSequence slides a word-aligned window over the document and
// accepts the first position where at least 80% of the target's words
// match in order. Targets shorter than three words are rejected: too
// little signal to trust a partial sequence.
func findWordSequence(doc *TextIndex, target string) Match {
	targetWords := SliceWords(target)
	if len(targetWords) < 3 {
		return NoMatch
	}
	docWords := doc.spans
	if len(docWords) < len(targetWords) {
		return NoMatch
	}
	required := (len(targetWords)*8 + 9) / 10 // ceil(0.8 * n)
	for i := 0; i+len(targetWords) <= len(docWords); i++ {
		hits := 0
		for j, tw := range targetWords {
			if docWords[i+j].word == tw {
				hits++
			}
		}
		if hits >= required {
			return Match{
				Start:      docWords[i].from,
				End:        docWords[i+len(targetWords)-1].to,
				Similarity: float64(hits) / float64(len(targetWords)),
			}
		}
	}
	return NoMatch
}

func (c *Controller) decoration(ann Annotation) Decoration {
	return Decoration{
		ID:         ann.ID,
		From:       ann.Anchor.From,
		To:         ann.Anchor.To,
		Similarity: ann.Similarity,
		Stale:      ann.Stale(c.cfg.RefreshThreshold),
	}
}

func (c *Controller) emit(ev DecorationEvent) {
	for _, fn := range c.decorationSubs {
		fn(ev)
	}
}
