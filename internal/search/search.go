package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultDocument   ResultType = "document"
	ResultAnnotation ResultType = "annotation"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type       ResultType `json:"type"`
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Snippet    string     `json:"snippet"`
	DocumentID string     `json:"documentId"`
	Kind       string     `json:"kind,omitempty"`
	Resolved   bool       `json:"resolved,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text             string
	FilterType       ResultType // empty = all types
	FilterDocumentID string
	IncludeResolved  bool
	Limit            int
	Offset           int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// DocumentRecord is the data we index for a document.
type DocumentRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// AnnotationRecord is the data we index for an annotation. Body is the
// selected text plus whatever comment body the metadata carried.
type AnnotationRecord struct {
	ID         string `json:"id"`
	DocumentID string `json:"documentId"`
	Author     string `json:"author"`
	Kind       string `json:"kind"`
	Body       string `json:"body"`
	Resolved   bool   `json:"resolved"`
}
