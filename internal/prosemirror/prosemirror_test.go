package prosemirror

import (
	"encoding/json"
	"strings"
	"testing"
)

const sampleDoc = `{
	"type": "doc",
	"content": [
		{"type": "heading", "attrs": {"level": 2}, "content": [{"type": "text", "text": "Title"}]},
		{"type": "paragraph", "content": [
			{"type": "text", "text": "The cat sat. "},
			{"type": "text", "text": "The dog ran.", "marks": [{"type": "bold"}]}
		]},
		{"type": "paragraph", "content": [{"type": "text", "text": "Closing line."}]}
	]
}`

func TestToTextFlattensBlocks(t *testing.T) {
	got := ToText(json.RawMessage(sampleDoc))
	want := "Title\nThe cat sat. The dog ran.\nClosing line."
	if got != want {
		t.Errorf("ToText = %q, want %q", got, want)
	}
}

func TestToTextIgnoresMarks(t *testing.T) {
	// Bold/italic marks change rendering, not the text substrate the
	// anchors are computed against.
	plain := `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"same words"}]}]}`
	marked := `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"same words","marks":[{"type":"italic"}]}]}]}`
	if ToText(json.RawMessage(plain)) != ToText(json.RawMessage(marked)) {
		t.Error("marks must not affect extracted text")
	}
}

func TestToTextHandlesGarbage(t *testing.T) {
	for _, raw := range []string{"", "null", "{}", `{"type":""}`, "not json"} {
		if got := ToText(json.RawMessage(raw)); got != "" {
			t.Errorf("ToText(%q) = %q, want empty", raw, got)
		}
	}
}

func TestToHTMLRendersMarks(t *testing.T) {
	got := ToHTML(json.RawMessage(sampleDoc))
	for _, want := range []string{"<h2>Title</h2>", "<strong>The dog ran.</strong>", "<p>Closing line.</p>"} {
		if !strings.Contains(got, want) {
			t.Errorf("ToHTML output missing %q:\n%s", want, got)
		}
	}
}

func TestToHTMLEscapes(t *testing.T) {
	doc := `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"<script>"}]}]}`
	got := ToHTML(json.RawMessage(doc))
	if strings.Contains(got, "<script>") {
		t.Errorf("unescaped HTML in output: %s", got)
	}
}

func TestFromTextRoundTrip(t *testing.T) {
	text := "first line\nsecond line"
	raw := FromText(text)
	if raw == nil {
		t.Fatal("FromText returned nil")
	}
	if got := ToText(raw); got != text {
		t.Errorf("round trip = %q, want %q", got, text)
	}
}
