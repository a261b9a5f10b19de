// Package anchor keeps annotations attached to the right span of text
// while the underlying document is being edited. It re-locates each
// annotation's original text inside the mutated document with an
// approximate word-overlap search and feeds the updated spans to the
// rendering layer as decorations.
package anchor

import (
	"strings"
	"unicode"
)

// TextIndex is a snapshot of the document text plus its tokenized form.
// It is rebuilt on every refresh pass; documents are small enough (tens
// of KB) that incremental indexing is not worth the bookkeeping.
type TextIndex struct {
	text string
	// spans is the word-tokenized form with byte offsets retained, so
	// offset-aware consumers (the word-sequence fallback) reuse the one
	// tokenization pass instead of re-deriving it per lookup.
	spans []wordSpan
}

// BuildIndex tokenizes text into the matching substrate.
func BuildIndex(text string) *TextIndex {
	return &TextIndex{
		text:  text,
		spans: sliceWordSpans(text),
	}
}

// Len returns the document length in bytes.
func (ix *TextIndex) Len() int {
	return len(ix.text)
}

// Text returns the full document text.
func (ix *TextIndex) Text() string {
	return ix.text
}

// Words returns the document's token list, equal to SliceWords over the
// full text.
func (ix *TextIndex) Words() []string {
	words := make([]string, len(ix.spans))
	for i, span := range ix.spans {
		words[i] = span.word
	}
	return words
}

// TextBetween extracts the substring between two byte offsets, clamping
// both ends into the valid range.
func (ix *TextIndex) TextBetween(from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(ix.text) {
		to = len(ix.text)
	}
	if from >= to {
		return ""
	}
	return ix.text[from:to]
}

// SliceWords lowercases text and splits it on whitespace runs, dropping
// empty tokens. It is pure: the same input always yields the same list.
func SliceWords(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// wordSpan is a token plus its byte offsets in the original text.
type wordSpan struct {
	word string
	from int
	to   int
}

// sliceWordSpans is SliceWords with byte offsets retained, used by the
// contiguous word-sequence fallback in LocatePassage.
func sliceWordSpans(text string) []wordSpan {
	var spans []wordSpan
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, wordSpan{word: strings.ToLower(text[start:i]), from: start, to: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, wordSpan{word: strings.ToLower(text[start:]), from: start, to: len(text)})
	}
	return spans
}
