package revision

import (
	"strings"
	"testing"
)

func TestEnsureRepoIsIdempotent(t *testing.T) {
	svc := New(t.TempDir())

	if err := svc.EnsureRepo("doc_1", "baseline text", "alice"); err != nil {
		t.Fatalf("EnsureRepo failed: %v", err)
	}
	if err := svc.EnsureRepo("doc_1", "different text", "bob"); err != nil {
		t.Fatalf("second EnsureRepo failed: %v", err)
	}

	history, err := svc.History("doc_1", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 baseline commit, got %d", len(history))
	}
}

func TestCommitAndHistory(t *testing.T) {
	svc := New(t.TempDir())
	if err := svc.EnsureRepo("doc_1", "v1", "alice"); err != nil {
		t.Fatalf("EnsureRepo failed: %v", err)
	}

	info, err := svc.Commit("doc_1", "v2", "bob", "Edited intro")
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if info.Author != "bob" || !strings.Contains(info.Message, "Edited intro") {
		t.Errorf("unexpected commit info %+v", info)
	}

	history, err := svc.History("doc_1", 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(history))
	}
	if history[0].Hash != info.Hash {
		t.Errorf("newest commit first: got %s, want %s", history[0].Hash, info.Hash)
	}
}

func TestTextAtRecoversOldContent(t *testing.T) {
	svc := New(t.TempDir())
	if err := svc.EnsureRepo("doc_1", "the original sentence", "alice"); err != nil {
		t.Fatalf("EnsureRepo failed: %v", err)
	}

	history, err := svc.History("doc_1", 1)
	if err != nil || len(history) != 1 {
		t.Fatalf("History failed: %v (%d entries)", err, len(history))
	}
	baseline := history[0].Hash

	if _, err := svc.Commit("doc_1", "completely rewritten", "bob", "Rewrite"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	text, err := svc.TextAt("doc_1", baseline)
	if err != nil {
		t.Fatalf("TextAt failed: %v", err)
	}
	if text != "the original sentence" {
		t.Errorf("TextAt = %q, want original text", text)
	}
}

func TestHistoryLimit(t *testing.T) {
	svc := New(t.TempDir())
	if err := svc.EnsureRepo("doc_1", "v1", "alice"); err != nil {
		t.Fatalf("EnsureRepo failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := svc.Commit("doc_1", "v", "alice", "edit"); err != nil {
			t.Fatalf("Commit %d failed: %v", i, err)
		}
	}

	history, err := svc.History("doc_1", 2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected limit of 2, got %d", len(history))
	}
}
