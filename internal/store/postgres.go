package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, version, updated_by, created_at, updated_at
		FROM documents
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Version, &doc.UpdatedBy, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (Document, error) {
	var doc Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, text, version, updated_by, created_at, updated_at
		FROM documents WHERE id=$1
	`, id).Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Text, &doc.Version, &doc.UpdatedBy, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) InsertDocument(ctx context.Context, doc Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, content, text, version, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, doc.ID, doc.Title, doc.Content, doc.Text, doc.Version, doc.UpdatedBy)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// UpdateDocumentContent replaces content and text and bumps the
// version. The expectedVersion guard rejects lost updates when two
// editors race; the loser re-reads and retries.
func (s *PostgresStore) UpdateDocumentContent(ctx context.Context, id string, content []byte, text, updatedBy string, expectedVersion int) (int, error) {
	var newVersion int
	err := s.db.QueryRowContext(ctx, `
		UPDATE documents
		SET content=$2, text=$3, updated_by=$4, version=version+1, updated_at=NOW()
		WHERE id=$1 AND version=$5
		RETURNING version
	`, id, content, text, updatedBy, expectedVersion).Scan(&newVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("document %s at version %d: %w", id, expectedVersion, ErrVersionConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("update document content: %w", err)
	}
	return newVersion, nil
}

var ErrVersionConflict = errors.New("version conflict")

func (s *PostgresStore) InsertAnnotation(ctx context.Context, ann Annotation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO annotations (id, document_id, author, kind, selected_text, anchor_from, anchor_to, similarity, resolved, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, ann.ID, ann.DocumentID, ann.Author, ann.Kind, ann.SelectedText, ann.AnchorFrom, ann.AnchorTo, ann.Similarity, ann.Resolved, nullableJSON(ann.Metadata))
	if err != nil {
		return fmt.Errorf("insert annotation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAnnotation(ctx context.Context, id string) (Annotation, error) {
	var ann Annotation
	var metadata []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, author, kind, selected_text, anchor_from, anchor_to, similarity, resolved, COALESCE(metadata, 'null'), created_at, updated_at
		FROM annotations WHERE id=$1
	`, id).Scan(&ann.ID, &ann.DocumentID, &ann.Author, &ann.Kind, &ann.SelectedText, &ann.AnchorFrom, &ann.AnchorTo, &ann.Similarity, &ann.Resolved, &metadata, &ann.CreatedAt, &ann.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Annotation{}, ErrNotFound
	}
	if err != nil {
		return Annotation{}, fmt.Errorf("get annotation: %w", err)
	}
	ann.Metadata = metadata
	return ann, nil
}

func (s *PostgresStore) ListAnnotations(ctx context.Context, documentID string, includeResolved bool) ([]Annotation, error) {
	query := `
		SELECT id, document_id, author, kind, selected_text, anchor_from, anchor_to, similarity, resolved, COALESCE(metadata, 'null'), created_at, updated_at
		FROM annotations WHERE document_id=$1
	`
	if !includeResolved {
		query += ` AND resolved=FALSE`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	var annotations []Annotation
	for rows.Next() {
		var ann Annotation
		var metadata []byte
		if err := rows.Scan(&ann.ID, &ann.DocumentID, &ann.Author, &ann.Kind, &ann.SelectedText, &ann.AnchorFrom, &ann.AnchorTo, &ann.Similarity, &ann.Resolved, &metadata, &ann.CreatedAt, &ann.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		ann.Metadata = metadata
		annotations = append(annotations, ann)
	}
	return annotations, rows.Err()
}

// UpdateAnnotationAnchor writes a refreshed anchor back. Selected text
// is deliberately not an argument: it never changes after creation.
func (s *PostgresStore) UpdateAnnotationAnchor(ctx context.Context, id string, from, to int, similarity float64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE annotations SET anchor_from=$2, anchor_to=$3, similarity=$4, updated_at=NOW()
		WHERE id=$1
	`, id, from, to, similarity)
	if err != nil {
		return fmt.Errorf("update annotation anchor: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ResolveAnnotation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE annotations SET resolved=TRUE, updated_at=NOW() WHERE id=$1
	`, id)
	if err != nil {
		return fmt.Errorf("resolve annotation: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteAnnotation(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM annotations WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete annotation: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertAnnotationEvent(ctx context.Context, ev AnnotationEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO annotation_events (annotation_id, document_id, kind, detail)
		VALUES ($1, $2, $3, $4)
	`, ev.AnnotationID, ev.DocumentID, ev.Kind, ev.Detail)
	if err != nil {
		return fmt.Errorf("insert annotation event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAnnotationEvents(ctx context.Context, documentID string, limit int) ([]AnnotationEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, annotation_id, document_id, kind, detail, created_at
		FROM annotation_events WHERE document_id=$1
		ORDER BY id DESC LIMIT $2
	`, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list annotation events: %w", err)
	}
	defer rows.Close()

	var events []AnnotationEvent
	for rows.Next() {
		var ev AnnotationEvent
		if err := rows.Scan(&ev.ID, &ev.AnnotationID, &ev.DocumentID, &ev.Kind, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan annotation event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// SearchAnnotationsLike is the Postgres fallback behind the search
// facade when Meilisearch is not configured or unhealthy.
func (s *PostgresStore) SearchAnnotationsLike(ctx context.Context, query string, limit int) ([]Annotation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, author, kind, selected_text, anchor_from, anchor_to, similarity, resolved, COALESCE(metadata, 'null'), created_at, updated_at
		FROM annotations
		WHERE selected_text ILIKE '%' || $1 || '%' OR metadata::text ILIKE '%' || $1 || '%'
		ORDER BY updated_at DESC LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search annotations: %w", err)
	}
	defer rows.Close()

	var annotations []Annotation
	for rows.Next() {
		var ann Annotation
		var metadata []byte
		if err := rows.Scan(&ann.ID, &ann.DocumentID, &ann.Author, &ann.Kind, &ann.SelectedText, &ann.AnchorFrom, &ann.AnchorTo, &ann.Similarity, &ann.Resolved, &metadata, &ann.CreatedAt, &ann.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		ann.Metadata = metadata
		annotations = append(annotations, ann)
	}
	return annotations, rows.Err()
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
