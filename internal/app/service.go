package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"marginalia/api/internal/anchor"
	"marginalia/api/internal/auth"
	"marginalia/api/internal/config"
	"marginalia/api/internal/export"
	"marginalia/api/internal/notify"
	"marginalia/api/internal/prosemirror"
	"marginalia/api/internal/revision"
	"marginalia/api/internal/search"
	"marginalia/api/internal/store"
	"marginalia/api/internal/suggest"
	"marginalia/api/internal/util"
)

type Session struct {
	UserID   string
	UserName string
}

type dataStore interface {
	Ping(ctx context.Context) error
	ListDocuments(context.Context) ([]store.Document, error)
	GetDocument(context.Context, string) (store.Document, error)
	InsertDocument(context.Context, store.Document) error
	UpdateDocumentContent(ctx context.Context, id string, content []byte, text, updatedBy string, expectedVersion int) (int, error)
	InsertAnnotation(context.Context, store.Annotation) error
	GetAnnotation(context.Context, string) (store.Annotation, error)
	ListAnnotations(ctx context.Context, documentID string, includeResolved bool) ([]store.Annotation, error)
	UpdateAnnotationAnchor(ctx context.Context, id string, from, to int, similarity float64) error
	ResolveAnnotation(context.Context, string) error
	DeleteAnnotation(context.Context, string) error
	InsertAnnotationEvent(context.Context, store.AnnotationEvent) error
	ListAnnotationEvents(ctx context.Context, documentID string, limit int) ([]store.AnnotationEvent, error)
}

type revisioner interface {
	EnsureRepo(documentID, text, author string) error
	Commit(documentID, text, author, message string) (revision.CommitInfo, error)
	History(documentID string, limit int) ([]revision.CommitInfo, error)
	TextAt(documentID, hash string) (string, error)
}

type searcher interface {
	Search(q search.Query) search.Response
	IndexDocument(ctx context.Context, doc search.DocumentRecord)
	IndexAnnotation(ctx context.Context, ann search.AnnotationRecord)
	DeleteAnnotation(ctx context.Context, id string)
}

type suggester interface {
	Enabled() bool
	RequestReplacement(ctx context.Context, selectedText, surrounding, instruction string) (string, error)
}

type exporter interface {
	Export(ctx context.Context, documentID string, includeResolved bool) (export.Result, error)
}

type changeBus interface {
	PublishDocumentChanged(ctx context.Context, documentID string, version int) error
}

type Service struct {
	cfg       config.Config
	store     dataStore
	revisions revisioner
	search    searcher
	suggest   suggester
	export    exporter
	bus       changeBus

	anchorCfg anchor.Config

	// One controller per document, built lazily from persisted state.
	// The controller serializes refreshes for its document; this mutex
	// only guards the map itself.
	ctrlMu      sync.Mutex
	controllers map[string]*anchor.Controller
}

func New(
	cfg config.Config,
	dataStore *store.PostgresStore,
	revisions *revision.Service,
	searchService *search.Service,
	suggestService *suggest.Service,
	exportService *export.Service,
	bus *notify.Bus,
) *Service {
	anchorCfg := anchor.DefaultConfig()
	if cfg.RefreshThreshold > 0 {
		anchorCfg.RefreshThreshold = cfg.RefreshThreshold
	}
	if cfg.EarlyExitThreshold > 0 {
		anchorCfg.EarlyExitThreshold = cfg.EarlyExitThreshold
	}
	return &Service{
		cfg:         cfg,
		store:       dataStore,
		revisions:   revisions,
		search:      searchService,
		suggest:     suggestService,
		export:      exportService,
		bus:         bus,
		anchorCfg:   anchorCfg,
		controllers: make(map[string]*anchor.Controller),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SessionFromToken(_ context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: claims.Sub, UserName: claims.Name}, nil
}

// controller returns the document's live engine, rebuilding it from
// storage on first access. The rebuild restores every persisted
// annotation, resolved ones included, so history survives restarts.
func (s *Service) controller(ctx context.Context, documentID string) (*anchor.Controller, error) {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	if ctrl, ok := s.controllers[documentID]; ok {
		return ctrl, nil
	}

	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	annotations, err := s.store.ListAnnotations(ctx, documentID, true)
	if err != nil {
		return nil, err
	}

	ctrl := anchor.NewController(s.anchorCfg, doc.Text)
	for _, ann := range annotations {
		restored := anchor.Annotation{
			ID:           ann.ID,
			SelectedText: ann.SelectedText,
			Anchor:       anchor.Span{From: ann.AnchorFrom, To: ann.AnchorTo},
			Similarity:   ann.Similarity,
			Resolved:     ann.Resolved,
			Metadata:     ann.Metadata,
		}
		if err := ctrl.Restore(restored); err != nil {
			return nil, fmt.Errorf("restore annotation %s: %w", ann.ID, err)
		}
	}
	s.controllers[documentID] = ctrl
	return ctrl, nil
}

// DropController discards the cached engine for a document. Called when
// another instance publishes a change so the next access reloads the
// authoritative state from storage.
func (s *Service) DropController(documentID string) {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	delete(s.controllers, documentID)
}

type DocumentSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Version   int       `json:"version"`
	UpdatedBy string    `json:"updatedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type DocumentDetail struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Content     json.RawMessage     `json:"content"`
	Text        string              `json:"text"`
	Version     int                 `json:"version"`
	UpdatedBy   string              `json:"updatedBy"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Annotations []AnnotationPayload `json:"annotations"`
}

type AnnotationPayload struct {
	ID           string          `json:"id"`
	DocumentID   string          `json:"documentId"`
	Author       string          `json:"author"`
	Kind         string          `json:"kind"`
	SelectedText string          `json:"selectedText"`
	Anchor       anchor.Span     `json:"anchor"`
	Similarity   float64         `json:"similarity"`
	Stale        bool            `json:"stale"`
	Resolved     bool            `json:"resolved"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type UpdateResult struct {
	Version     int                 `json:"version"`
	Revision    revision.CommitInfo `json:"revision"`
	Annotations []AnnotationPayload `json:"annotations"`
}

type LocateResult struct {
	Found      bool    `json:"found"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Similarity float64 `json:"similarity"`
}

type EventPayload struct {
	ID           int64     `json:"id"`
	AnnotationID string    `json:"annotationId"`
	Kind         string    `json:"kind"`
	Detail       string    `json:"detail"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (s *Service) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		items = append(items, DocumentSummary{
			ID:        doc.ID,
			Title:     doc.Title,
			Version:   doc.Version,
			UpdatedBy: doc.UpdatedBy,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return items, nil
}

func (s *Service) CreateDocument(ctx context.Context, title string, content json.RawMessage, author string) (DocumentDetail, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return DocumentDetail{}, validationError("title is required")
	}
	if len(content) == 0 {
		content = prosemirror.FromText("")
	}
	text := prosemirror.ToText(content)

	doc := store.Document{
		ID:        util.NewID("doc"),
		Title:     title,
		Content:   content,
		Text:      text,
		Version:   1,
		UpdatedBy: author,
	}
	if err := s.store.InsertDocument(ctx, doc); err != nil {
		return DocumentDetail{}, fmt.Errorf("insert document: %w", err)
	}
	if err := s.revisions.EnsureRepo(doc.ID, text, author); err != nil {
		return DocumentDetail{}, fmt.Errorf("init revision history: %w", err)
	}
	s.search.IndexDocument(ctx, search.DocumentRecord{ID: doc.ID, Title: doc.Title})

	return DocumentDetail{
		ID:          doc.ID,
		Title:       doc.Title,
		Content:     doc.Content,
		Text:        doc.Text,
		Version:     doc.Version,
		UpdatedBy:   doc.UpdatedBy,
		Annotations: []AnnotationPayload{},
	}, nil
}

func (s *Service) GetDocument(ctx context.Context, id string) (DocumentDetail, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return DocumentDetail{}, err
	}
	annotations, err := s.store.ListAnnotations(ctx, id, true)
	if err != nil {
		return DocumentDetail{}, err
	}
	detail := DocumentDetail{
		ID:          doc.ID,
		Title:       doc.Title,
		Content:     doc.Content,
		Text:        doc.Text,
		Version:     doc.Version,
		UpdatedBy:   doc.UpdatedBy,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		Annotations: make([]AnnotationPayload, 0, len(annotations)),
	}
	for _, ann := range annotations {
		detail.Annotations = append(detail.Annotations, s.annotationPayload(ann))
	}
	return detail, nil
}

// UpdateDocumentContent is the single write path for document text. It
// bumps the version under an optimistic guard, refreshes every anchor
// against the new text, persists moved anchors, records stale
// transitions, commits the revision, and broadcasts the change.
func (s *Service) UpdateDocumentContent(ctx context.Context, id string, content json.RawMessage, expectedVersion int, author string) (UpdateResult, error) {
	if len(content) == 0 {
		return UpdateResult{}, validationError("content is required")
	}
	ctrl, err := s.controller(ctx, id)
	if err != nil {
		return UpdateResult{}, err
	}
	text := prosemirror.ToText(content)

	newVersion, err := s.store.UpdateDocumentContent(ctx, id, content, text, author, expectedVersion)
	if err != nil {
		return UpdateResult{}, err
	}

	before := make(map[string]anchor.Span)
	for _, ann := range ctrl.Annotations() {
		before[ann.ID] = ann.Anchor
	}

	refreshed := ctrl.OnDocumentChanged(text)
	for _, ann := range refreshed {
		if ann.Resolved {
			continue
		}
		if err := s.store.UpdateAnnotationAnchor(ctx, ann.ID, ann.Anchor.From, ann.Anchor.To, ann.Similarity); err != nil {
			log.Printf("app: persist anchor %s: %v", ann.ID, err)
		}
		if prev, ok := before[ann.ID]; ok && prev != ann.Anchor {
			s.recordEvent(ctx, ann.ID, id, store.EventReanchored,
				fmt.Sprintf("[%d,%d) -> [%d,%d) similarity %.2f", prev.From, prev.To, ann.Anchor.From, ann.Anchor.To, ann.Similarity))
		}
		if ann.Stale(s.anchorCfg.RefreshThreshold) {
			s.recordEvent(ctx, ann.ID, id, store.EventStale,
				fmt.Sprintf("similarity %.2f below threshold %.2f", ann.Similarity, s.anchorCfg.RefreshThreshold))
		}
	}

	commit, err := s.revisions.Commit(id, text, author, fmt.Sprintf("Update to version %d", newVersion))
	if err != nil {
		log.Printf("app: commit revision for %s: %v", id, err)
	}
	if err := s.bus.PublishDocumentChanged(ctx, id, newVersion); err != nil {
		log.Printf("app: publish change for %s: %v", id, err)
	}

	current, err := s.store.ListAnnotations(ctx, id, false)
	if err != nil {
		return UpdateResult{}, err
	}
	result := UpdateResult{
		Version:     newVersion,
		Revision:    commit,
		Annotations: make([]AnnotationPayload, 0, len(current)),
	}
	for _, ann := range current {
		result.Annotations = append(result.Annotations, s.annotationPayload(ann))
	}
	return result, nil
}

type CreateAnnotationInput struct {
	From     int             `json:"from"`
	To       int             `json:"to"`
	Kind     string          `json:"kind"`
	Metadata json.RawMessage `json:"metadata"`
}

func (s *Service) CreateAnnotation(ctx context.Context, documentID string, input CreateAnnotationInput, author string) (AnnotationPayload, error) {
	kind := input.Kind
	if kind == "" {
		kind = store.AnnotationKindComment
	}
	if kind != store.AnnotationKindComment && kind != store.AnnotationKindSuggestion {
		return AnnotationPayload{}, validationError("kind must be comment or suggestion")
	}

	ctrl, err := s.controller(ctx, documentID)
	if err != nil {
		return AnnotationPayload{}, err
	}

	id := util.NewID("ann")
	ann, err := ctrl.OnAnnotationCreated(id, input.From, input.To, input.Metadata)
	if err != nil {
		return AnnotationPayload{}, err
	}

	record := store.Annotation{
		ID:           ann.ID,
		DocumentID:   documentID,
		Author:       author,
		Kind:         kind,
		SelectedText: ann.SelectedText,
		AnchorFrom:   ann.Anchor.From,
		AnchorTo:     ann.Anchor.To,
		Similarity:   ann.Similarity,
		Metadata:     input.Metadata,
	}
	if err := s.store.InsertAnnotation(ctx, record); err != nil {
		ctrl.OnAnnotationRemoved(ann.ID)
		return AnnotationPayload{}, fmt.Errorf("insert annotation: %w", err)
	}
	s.recordEvent(ctx, ann.ID, documentID, store.EventCreated, fmt.Sprintf("[%d,%d)", ann.Anchor.From, ann.Anchor.To))
	s.indexAnnotation(ctx, record)

	return s.annotationPayload(record), nil
}

func (s *Service) ListAnnotations(ctx context.Context, documentID string, includeResolved bool) ([]AnnotationPayload, error) {
	annotations, err := s.store.ListAnnotations(ctx, documentID, includeResolved)
	if err != nil {
		return nil, err
	}
	items := make([]AnnotationPayload, 0, len(annotations))
	for _, ann := range annotations {
		items = append(items, s.annotationPayload(ann))
	}
	return items, nil
}

func (s *Service) ResolveAnnotation(ctx context.Context, id string) (AnnotationPayload, error) {
	ann, err := s.store.GetAnnotation(ctx, id)
	if err != nil {
		return AnnotationPayload{}, err
	}
	if ann.Resolved {
		return s.annotationPayload(ann), nil
	}

	ctrl, err := s.controller(ctx, ann.DocumentID)
	if err != nil {
		return AnnotationPayload{}, err
	}
	ctrl.OnAnnotationResolved(id)

	if err := s.store.ResolveAnnotation(ctx, id); err != nil {
		return AnnotationPayload{}, err
	}
	s.recordEvent(ctx, id, ann.DocumentID, store.EventResolved, "")
	ann.Resolved = true
	s.indexAnnotation(ctx, ann)
	return s.annotationPayload(ann), nil
}

func (s *Service) RemoveAnnotation(ctx context.Context, id string) error {
	ann, err := s.store.GetAnnotation(ctx, id)
	if err != nil {
		return err
	}
	ctrl, err := s.controller(ctx, ann.DocumentID)
	if err != nil {
		return err
	}
	ctrl.OnAnnotationRemoved(id)

	if err := s.store.DeleteAnnotation(ctx, id); err != nil {
		return err
	}
	s.recordEvent(ctx, id, ann.DocumentID, store.EventRemoved, "")
	s.search.DeleteAnnotation(ctx, id)
	return nil
}

func (s *Service) Locate(ctx context.Context, documentID, text string) (LocateResult, error) {
	ctrl, err := s.controller(ctx, documentID)
	if err != nil {
		return LocateResult{}, err
	}
	m := ctrl.LocatePassage(text)
	return LocateResult{
		Found:      m.Found(),
		Start:      m.Start,
		End:        m.End,
		Similarity: m.Similarity,
	}, nil
}

// Suggest locates the selected passage, asks the model for a
// replacement, and records it as an unresolved suggestion annotation.
// The proposed text lives in the annotation metadata until applied.
func (s *Service) Suggest(ctx context.Context, documentID, selectedText, instruction, author string) (AnnotationPayload, error) {
	if !s.suggest.Enabled() {
		return AnnotationPayload{}, domainError(http.StatusServiceUnavailable, "SUGGESTIONS_DISABLED", "No suggestion model is configured", nil)
	}
	ctrl, err := s.controller(ctx, documentID)
	if err != nil {
		return AnnotationPayload{}, err
	}

	m := ctrl.LocatePassage(selectedText)
	if !m.Found() {
		return AnnotationPayload{}, domainError(http.StatusUnprocessableEntity, "PASSAGE_NOT_FOUND", "Selected text could not be located in the document", nil)
	}

	docText := ctrl.DocumentText()
	replacement, err := s.suggest.RequestReplacement(ctx, docText[m.Start:m.End], surrounding(docText, m.Start, m.End), instruction)
	if err != nil {
		return AnnotationPayload{}, fmt.Errorf("request replacement: %w", err)
	}

	metadata, err := json.Marshal(map[string]string{
		"replacement": replacement,
		"instruction": instruction,
	})
	if err != nil {
		return AnnotationPayload{}, fmt.Errorf("marshal suggestion metadata: %w", err)
	}

	return s.CreateAnnotation(ctx, documentID, CreateAnnotationInput{
		From:     m.Start,
		To:       m.End,
		Kind:     store.AnnotationKindSuggestion,
		Metadata: metadata,
	}, author)
}

// ApplySuggestion splices the stored replacement into the document at
// the suggestion's current anchor and runs the normal content-update
// path, then resolves the suggestion.
func (s *Service) ApplySuggestion(ctx context.Context, annotationID, author string) (UpdateResult, error) {
	ann, err := s.store.GetAnnotation(ctx, annotationID)
	if err != nil {
		return UpdateResult{}, err
	}
	if ann.Kind != store.AnnotationKindSuggestion {
		return UpdateResult{}, domainError(http.StatusUnprocessableEntity, "NOT_A_SUGGESTION", "Only suggestion annotations can be applied", nil)
	}
	if ann.Resolved {
		return UpdateResult{}, domainError(http.StatusConflict, "ALREADY_APPLIED", "Suggestion is already resolved", nil)
	}

	var meta struct {
		Replacement string `json:"replacement"`
	}
	if len(ann.Metadata) > 0 {
		_ = json.Unmarshal(ann.Metadata, &meta)
	}
	if strings.TrimSpace(meta.Replacement) == "" {
		return UpdateResult{}, domainError(http.StatusUnprocessableEntity, "NO_REPLACEMENT", "Suggestion carries no replacement text", nil)
	}

	ctrl, err := s.controller(ctx, ann.DocumentID)
	if err != nil {
		return UpdateResult{}, err
	}

	// Prefer the live anchor; fall back to a fresh lookup when the last
	// refresh lost confidence in it.
	span := anchor.Span{From: ann.AnchorFrom, To: ann.AnchorTo}
	if live := ctrl.Get(annotationID); live != nil {
		span = live.Anchor
		if live.Stale(s.anchorCfg.RefreshThreshold) {
			m := ctrl.LocatePassage(ann.SelectedText)
			if !m.Found() {
				return UpdateResult{}, domainError(http.StatusConflict, "STALE_SUGGESTION", "The suggested span no longer exists in the document", nil)
			}
			span = anchor.Span{From: m.Start, To: m.End}
		}
	}

	doc, err := s.store.GetDocument(ctx, ann.DocumentID)
	if err != nil {
		return UpdateResult{}, err
	}
	docText := ctrl.DocumentText()
	if span.From < 0 || span.To > len(docText) || span.From > span.To {
		return UpdateResult{}, domainError(http.StatusConflict, "STALE_SUGGESTION", "The suggested span no longer exists in the document", nil)
	}
	newText := docText[:span.From] + meta.Replacement + docText[span.To:]

	result, err := s.UpdateDocumentContent(ctx, ann.DocumentID, prosemirror.FromText(newText), doc.Version, author)
	if err != nil {
		return UpdateResult{}, err
	}

	ctrl.OnAnnotationResolved(annotationID)
	if err := s.store.ResolveAnnotation(ctx, annotationID); err != nil {
		log.Printf("app: resolve applied suggestion %s: %v", annotationID, err)
	}
	s.recordEvent(ctx, annotationID, ann.DocumentID, store.EventApplied, fmt.Sprintf("replaced [%d,%d)", span.From, span.To))
	ann.Resolved = true
	s.indexAnnotation(ctx, ann)
	return result, nil
}

func (s *Service) Search(_ context.Context, text, filterType, documentID string, includeResolved bool, limit, offset int) search.Response {
	return s.search.Search(search.Query{
		Text:             text,
		FilterType:       search.ResultType(filterType),
		FilterDocumentID: documentID,
		IncludeResolved:  includeResolved,
		Limit:            limit,
		Offset:           offset,
	})
}

func (s *Service) Export(ctx context.Context, documentID string, includeResolved bool) (export.Result, error) {
	return s.export.Export(ctx, documentID, includeResolved)
}

func (s *Service) Revisions(ctx context.Context, documentID string, limit int) ([]revision.CommitInfo, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.revisions.History(documentID, limit)
}

func (s *Service) RevisionText(ctx context.Context, documentID, hash string) (string, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return "", err
	}
	return s.revisions.TextAt(documentID, hash)
}

func (s *Service) Events(ctx context.Context, documentID string, limit int) ([]EventPayload, error) {
	events, err := s.store.ListAnnotationEvents(ctx, documentID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]EventPayload, 0, len(events))
	for _, ev := range events {
		items = append(items, EventPayload{
			ID:           ev.ID,
			AnnotationID: ev.AnnotationID,
			Kind:         ev.Kind,
			Detail:       ev.Detail,
			CreatedAt:    ev.CreatedAt,
		})
	}
	return items, nil
}

func (s *Service) annotationPayload(ann store.Annotation) AnnotationPayload {
	return AnnotationPayload{
		ID:           ann.ID,
		DocumentID:   ann.DocumentID,
		Author:       ann.Author,
		Kind:         ann.Kind,
		SelectedText: ann.SelectedText,
		Anchor:       anchor.Span{From: ann.AnchorFrom, To: ann.AnchorTo},
		Similarity:   ann.Similarity,
		Stale:        !ann.Resolved && ann.Similarity < s.anchorCfg.RefreshThreshold,
		Resolved:     ann.Resolved,
		Metadata:     ann.Metadata,
		CreatedAt:    ann.CreatedAt,
		UpdatedAt:    ann.UpdatedAt,
	}
}

func (s *Service) recordEvent(ctx context.Context, annotationID, documentID, kind, detail string) {
	err := s.store.InsertAnnotationEvent(ctx, store.AnnotationEvent{
		AnnotationID: annotationID,
		DocumentID:   documentID,
		Kind:         kind,
		Detail:       detail,
	})
	if err != nil {
		log.Printf("app: record %s event for %s: %v", kind, annotationID, err)
	}
}

func (s *Service) indexAnnotation(ctx context.Context, ann store.Annotation) {
	body := ann.SelectedText
	if len(ann.Metadata) > 0 {
		var meta struct {
			Body string `json:"body"`
		}
		if err := json.Unmarshal(ann.Metadata, &meta); err == nil && meta.Body != "" {
			body = body + " " + meta.Body
		}
	}
	s.search.IndexAnnotation(ctx, search.AnnotationRecord{
		ID:         ann.ID,
		DocumentID: ann.DocumentID,
		Author:     ann.Author,
		Kind:       ann.Kind,
		Body:       body,
		Resolved:   ann.Resolved,
	})
}

// surrounding cuts a context window around the located span for the
// suggestion prompt.
func surrounding(text string, start, end int) string {
	const margin = 240
	from := start - margin
	if from < 0 {
		from = 0
	}
	to := end + margin
	if to > len(text) {
		to = len(text)
	}
	return text[from:to]
}
