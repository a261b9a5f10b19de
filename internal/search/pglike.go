package search

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"marginalia/api/internal/store"
)

// PgLike implements Searcher with a plain ILIKE scan over the
// annotations table. It is the fallback when Meilisearch is not
// configured or unhealthy; good enough for the data volumes a single
// workspace produces.
type PgLike struct {
	store *store.PostgresStore
}

// NewPgLike creates the Postgres fallback searcher.
func NewPgLike(s *store.PostgresStore) *PgLike {
	return &PgLike{store: s}
}

// Healthy always returns true; if Postgres is down the whole app is
// down anyway.
func (p *PgLike) Healthy() bool {
	return true
}

// Search scans annotations for the query text.
func (p *PgLike) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	if q.FilterType == ResultDocument {
		// Document titles are not worth a dedicated fallback query;
		// Meilisearch covers them when available.
		return nil, 0, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	annotations, err := p.store.SearchAnnotationsLike(ctx, q.Text, q.Limit)
	if err != nil {
		return nil, 0, err
	}

	var results []Result
	for _, ann := range annotations {
		if q.FilterDocumentID != "" && ann.DocumentID != q.FilterDocumentID {
			continue
		}
		if !q.IncludeResolved && ann.Resolved {
			continue
		}
		results = append(results, Result{
			Type:       ResultAnnotation,
			ID:         ann.ID,
			Title:      ann.Author,
			Snippet:    snippetFor(ann),
			DocumentID: ann.DocumentID,
			Kind:       ann.Kind,
			Resolved:   ann.Resolved,
		})
	}
	return results, len(results), nil
}

// snippetFor prefers the comment body from metadata over the raw
// selected text.
func snippetFor(ann store.Annotation) string {
	if len(ann.Metadata) > 0 {
		var meta struct {
			Body string `json:"body"`
		}
		if err := json.Unmarshal(ann.Metadata, &meta); err == nil && strings.TrimSpace(meta.Body) != "" {
			return meta.Body
		}
	}
	return ann.SelectedText
}
