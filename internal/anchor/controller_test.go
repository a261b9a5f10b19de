package anchor

import (
	"encoding/json"
	"testing"
)

func collectEvents(c *Controller) *[]DecorationEvent {
	events := &[]DecorationEvent{}
	c.SubscribeDecorations(func(ev DecorationEvent) {
		*events = append(*events, ev)
	})
	return events
}

func TestControllerEmitsIncrementalAdd(t *testing.T) {
	c := NewController(DefaultConfig(), "The cat sat. The dog ran.")
	events := collectEvents(c)

	ann, err := c.OnAnnotationCreated("ann_1", 13, 25, json.RawMessage(`{"body":"hm"}`))
	if err != nil {
		t.Fatalf("OnAnnotationCreated failed: %v", err)
	}
	if ann.SelectedText != "The dog ran." {
		t.Errorf("SelectedText = %q", ann.SelectedText)
	}

	if len(*events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(*events))
	}
	ev := (*events)[0]
	if ev.Type != DecorationAdd {
		t.Errorf("event type = %s, want ADD", ev.Type)
	}
	if len(ev.Decorations) != 1 || ev.Decorations[0].From != 13 || ev.Decorations[0].To != 25 {
		t.Errorf("decoration = %+v", ev.Decorations)
	}
	if ev.Decorations[0].Stale {
		t.Error("freshly created decoration must not be stale")
	}
}

func TestControllerEmitsIncrementalRemove(t *testing.T) {
	c := NewController(DefaultConfig(), "The cat sat. The dog ran.")
	if _, err := c.OnAnnotationCreated("ann_1", 13, 25, nil); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	events := collectEvents(c)

	c.OnAnnotationRemoved("ann_1")
	c.OnAnnotationRemoved("ann_1") // second removal is silent

	if len(*events) != 1 {
		t.Fatalf("expected exactly 1 REMOVE event, got %d", len(*events))
	}
	if (*events)[0].Type != DecorationRemove {
		t.Errorf("event type = %s", (*events)[0].Type)
	}
}

func TestControllerRefreshReplacesDecorationSet(t *testing.T) {
	c := NewController(DefaultConfig(), "The cat sat. The dog ran.")
	if _, err := c.OnAnnotationCreated("ann_1", 13, 25, nil); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := c.OnAnnotationCreated("ann_2", 0, 11, nil); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	events := collectEvents(c)

	annotations := c.OnDocumentChanged("The cat sat happily. The dog ran.")
	if len(annotations) != 2 {
		t.Fatalf("expected 2 annotations back, got %d", len(annotations))
	}

	if len(*events) != 1 {
		t.Fatalf("expected 1 REFRESH event, got %d", len(*events))
	}
	ev := (*events)[0]
	if ev.Type != DecorationRefresh {
		t.Fatalf("event type = %s, want REFRESH", ev.Type)
	}
	if len(ev.Decorations) != 2 {
		t.Fatalf("refresh should carry the full set, got %d", len(ev.Decorations))
	}
	for _, d := range ev.Decorations {
		if d.ID == "ann_1" && (d.From != 21 || d.To != 33) {
			t.Errorf("ann_1 decoration = %+v, want (21,33)", d)
		}
	}
}

func TestControllerFlagsStaleAnnotations(t *testing.T) {
	c := NewController(DefaultConfig(), "The cat sat. The dog ran.")
	if _, err := c.OnAnnotationCreated("ann_1", 13, 25, nil); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	events := collectEvents(c)

	c.OnDocumentChanged("The cat sat. The cat sat again.")

	ev := (*events)[0]
	if len(ev.Decorations) != 1 {
		t.Fatalf("expected 1 decoration, got %d", len(ev.Decorations))
	}
	d := ev.Decorations[0]
	if !d.Stale {
		t.Error("annotation should be flagged stale, not dropped")
	}
	if d.From != 13 || d.To != 25 {
		t.Errorf("stale decoration kept wrong anchor: %+v", d)
	}
}

func TestControllerResolvedAnnotationsLeaveDecorationSet(t *testing.T) {
	c := NewController(DefaultConfig(), "The cat sat. The dog ran.")
	if _, err := c.OnAnnotationCreated("ann_1", 13, 25, nil); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !c.OnAnnotationResolved("ann_1") {
		t.Fatal("resolve returned false")
	}
	if c.OnAnnotationResolved("missing") {
		t.Error("resolving unknown id should return false")
	}
	events := collectEvents(c)

	c.OnDocumentChanged("The cat sat. The dog ran. And more.")
	if len((*events)[0].Decorations) != 0 {
		t.Errorf("resolved annotation still decorated: %+v", (*events)[0].Decorations)
	}
	if got := c.Get("ann_1"); got == nil || !got.Resolved {
		t.Errorf("resolved annotation should stay in the store: %+v", got)
	}
}

func TestLocatePassageExact(t *testing.T) {
	c := NewController(DefaultConfig(), "The cat sat. The dog ran.")
	got := c.LocatePassage("The dog ran.")
	if got.Start != 13 || got.End != 25 || !almostEqual(got.Similarity, 1.0) {
		t.Errorf("LocatePassage = %+v, want (13,25,1.0)", got)
	}
}

func TestLocatePassageNormalizedWhitespace(t *testing.T) {
	c := NewController(DefaultConfig(), "alpha beta\n  gamma delta")
	got := c.LocatePassage("beta gamma")
	if got.Start != 6 || got.End != 18 {
		t.Errorf("LocatePassage = %+v, want (6,18)", got)
	}
}

func TestLocatePassageMarkdownStripped(t *testing.T) {
	// The annotation was taken from markdown source but the document
	// holds the rendered text; the stripped-target tier must find it.
	c := NewController(DefaultConfig(), "This is an important note here.")
	got := c.LocatePassage("**important** note")
	if !got.Found() {
		t.Fatal("markdown-insensitive lookup failed")
	}
	if got.Start != 11 || got.End != 25 {
		t.Errorf("LocatePassage = %+v, want (11,25)", got)
	}
}

func TestLocatePassageWordSequenceFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RefreshThreshold = 0.85 // force past the fuzzy tier
	c := NewController(cfg, "zzz one two three four six zzz")

	got := c.LocatePassage("one two three four five")
	if !got.Found() {
		t.Fatal("word-sequence fallback failed")
	}
	if got.Start != 4 || got.End != 26 {
		t.Errorf("LocatePassage = %+v, want (4,26)", got)
	}
	if !almostEqual(got.Similarity, 0.8) {
		t.Errorf("similarity = %f, want 0.8", got.Similarity)
	}
}

func TestLocatePassageTotalMiss(t *testing.T) {
	c := NewController(DefaultConfig(), "short doc")
	for _, target := range []string{"", "   ", "completely absent words"} {
		if got := c.LocatePassage(target); got.Found() {
			t.Errorf("LocatePassage(%q) = %+v, want no match", target, got)
		}
	}
}

func TestControllerActivationCallback(t *testing.T) {
	c := NewController(DefaultConfig(), "doc")
	var activated []string
	c.SubscribeActivations(func(id string) {
		activated = append(activated, id)
	})

	c.Activate("ann_7")
	if len(activated) != 1 || activated[0] != "ann_7" {
		t.Errorf("activations = %v", activated)
	}
}

func TestControllerRefreshIsDeterministic(t *testing.T) {
	build := func() []Annotation {
		c := NewController(DefaultConfig(), "The cat sat. The dog ran.")
		if _, err := c.OnAnnotationCreated("ann_1", 13, 25, nil); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if _, err := c.OnAnnotationCreated("ann_2", 0, 11, nil); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		return c.OnDocumentChanged("The cat sat happily. The dog ran.")
	}

	first := build()
	for i := 0; i < 3; i++ {
		again := build()
		for j := range first {
			if again[j].ID != first[j].ID || again[j].Anchor != first[j].Anchor || !almostEqual(again[j].Similarity, first[j].Similarity) {
				t.Fatalf("run %d diverged at %d: %+v vs %+v", i, j, again[j], first[j])
			}
		}
	}
}
