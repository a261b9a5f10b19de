package search

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type recordedRequest struct {
	method string
	path   string
}

// fakeMeiliServer answers just enough of the Meilisearch HTTP API for
// the client to consider itself healthy and accept task submissions.
func fakeMeiliServer(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, recordedRequest{method: r.Method, path: r.URL.Path})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"available"}`))
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"taskUid":1,"status":"enqueued"}`))
	}))

	snapshot := func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
	return server, snapshot
}

func TestMeiliDeleteAnnotationIssuesDelete(t *testing.T) {
	server, requests := fakeMeiliServer(t)
	defer server.Close()

	m := NewMeili(server.URL, "")
	defer m.Close()
	if !m.Healthy() {
		t.Fatal("client should be healthy against the fake server")
	}

	if err := m.DeleteAnnotation("ann_1"); err != nil {
		t.Fatalf("DeleteAnnotation failed: %v", err)
	}

	found := false
	for _, req := range requests() {
		if req.method == http.MethodDelete && strings.HasSuffix(req.path, "/indexes/"+idxAnnotations+"/documents/ann_1") {
			found = true
		}
	}
	if !found {
		t.Errorf("no DELETE for ann_1 recorded, requests = %v", requests())
	}
}

func TestMeiliIndexAnnotationPostsToAnnotationIndex(t *testing.T) {
	server, requests := fakeMeiliServer(t)
	defer server.Close()

	m := NewMeili(server.URL, "")
	defer m.Close()

	err := m.IndexAnnotation(AnnotationRecord{ID: "ann_1", DocumentID: "doc_1", Body: "The dog ran."})
	if err != nil {
		t.Fatalf("IndexAnnotation failed: %v", err)
	}

	found := false
	for _, req := range requests() {
		if req.method == http.MethodPost && strings.Contains(req.path, "/indexes/"+idxAnnotations+"/documents") {
			found = true
		}
	}
	if !found {
		t.Errorf("no document POST recorded, requests = %v", requests())
	}
}
