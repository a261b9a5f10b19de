// Package export renders a document together with its annotation
// appendix to HTML and optionally stores the artifact in object
// storage.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"marginalia/api/internal/prosemirror"
	"marginalia/api/internal/store"
)

// DataStore is the slice of persistence the exporter needs.
type DataStore interface {
	GetDocument(ctx context.Context, id string) (store.Document, error)
	ListAnnotations(ctx context.Context, documentID string, includeResolved bool) ([]store.Annotation, error)
}

// Result is a finished export: the HTML itself, plus a download URL
// when object storage is configured.
type Result struct {
	HTML        string `json:"-"`
	ObjectKey   string `json:"objectKey,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// Service renders exports. uploader may be nil when MinIO is not
// configured; exports are then returned inline only.
type Service struct {
	store      DataStore
	uploader   *Uploader
	staleBelow float64
}

// NewService creates an export service.
func NewService(dataStore DataStore, uploader *Uploader, staleBelow float64) *Service {
	return &Service{store: dataStore, uploader: uploader, staleBelow: staleBelow}
}

// Export renders the document and uploads the artifact when storage is
// available. An upload failure degrades to an inline-only result
// rather than failing the export.
func (s *Service) Export(ctx context.Context, documentID string, includeResolved bool) (Result, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return Result{}, fmt.Errorf("get document: %w", err)
	}
	annotations, err := s.store.ListAnnotations(ctx, documentID, includeResolved)
	if err != nil {
		return Result{}, fmt.Errorf("list annotations: %w", err)
	}

	data := TemplateData{
		Title:       doc.Title,
		ContentHTML: template.HTML(prosemirror.ToHTML(doc.Content)),
		Version:     doc.Version,
		UpdatedAt:   doc.UpdatedAt,
	}
	for _, ann := range annotations {
		data.Annotations = append(data.Annotations, TemplateAnnotation{
			Author:       ann.Author,
			Kind:         ann.Kind,
			SelectedText: ann.SelectedText,
			Body:         metadataBody(ann.Metadata),
			Resolved:     ann.Resolved,
			Stale:        !ann.Resolved && ann.Similarity < s.staleBelow,
		})
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return Result{}, fmt.Errorf("render export: %w", err)
	}

	result := Result{HTML: buf.String()}
	if s.uploader != nil {
		key := fmt.Sprintf("%s/v%d-%d.html", documentID, doc.Version, time.Now().Unix())
		url, err := s.uploader.Put(ctx, key, "text/html", buf.Bytes())
		if err != nil {
			return result, fmt.Errorf("upload export: %w", err)
		}
		result.ObjectKey = key
		result.DownloadURL = url
	}
	return result, nil
}

func metadataBody(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var meta struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return ""
	}
	return strings.TrimSpace(meta.Body)
}
