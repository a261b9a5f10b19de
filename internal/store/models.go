package store

import (
	"encoding/json"
	"time"
)

type Document struct {
	ID        string
	Title     string
	Content   json.RawMessage // ProseMirror JSON
	Text      string          // extracted plain text, the anchoring substrate
	Version   int
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Annotation is the persisted form of an anchored comment or AI
// suggestion. SelectedText is immutable after insert; refreshes only
// touch the anchor columns and similarity.
type Annotation struct {
	ID           string
	DocumentID   string
	Author       string
	Kind         string // "comment" or "suggestion"
	SelectedText string
	AnchorFrom   int
	AnchorTo     int
	Similarity   float64
	Resolved     bool
	Metadata     json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AnnotationEvent is an append-only audit record of annotation
// lifecycle transitions: created, reanchored, stale, resolved,
// removed, applied.
type AnnotationEvent struct {
	ID           int64
	AnnotationID string
	DocumentID   string
	Kind         string
	Detail       string
	CreatedAt    time.Time
}

const (
	AnnotationKindComment    = "comment"
	AnnotationKindSuggestion = "suggestion"

	EventCreated    = "created"
	EventReanchored = "reanchored"
	EventStale      = "stale"
	EventResolved   = "resolved"
	EventRemoved    = "removed"
	EventApplied    = "applied"
)
