package docstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
)

type fakeStore struct {
	docs  []project.RetrievedDocument
	err   error
	delay time.Duration
	calls int
}

func (f *fakeStore) Add(ctx context.Context, docs []project.Document) ([]string, error) {
	return nil, nil
}

func (f *fakeStore) Query(ctx context.Context, code, query string, k int) ([]project.RetrievedDocument, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.docs, f.err
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                   { return nil }

func TestRetrievePreservesOrderAndRanks(t *testing.T) {
	s := &fakeStore{docs: []project.RetrievedDocument{
		{ID: "a", Text: "first", Rank: 9},
		{ID: "b", Text: "second", Rank: 3},
		{ID: "c", Text: "third"},
	}}
	docs, ok := NewRetriever(s, time.Second).Retrieve(context.Background(), "P1", "leakage", 2)
	if !ok {
		t.Fatal("expected ok")
	}
	if len(docs) != 2 {
		t.Fatalf("expected k=2 results, got %d", len(docs))
	}
	if docs[0].ID != "a" || docs[0].Rank != 1 || docs[1].ID != "b" || docs[1].Rank != 2 {
		t.Errorf("unexpected docs %+v", docs)
	}
}

func TestRetrieveFailureIsEmpty(t *testing.T) {
	s := &fakeStore{err: errors.New("connection refused")}
	docs, ok := NewRetriever(s, time.Second).Retrieve(context.Background(), "P1", "q", 5)
	if ok {
		t.Error("expected degraded result")
	}
	if docs == nil || len(docs) != 0 {
		t.Errorf("expected empty non-nil list, got %v", docs)
	}
}

func TestRetrieveTimeout(t *testing.T) {
	s := &fakeStore{delay: time.Second}
	docs, ok := NewRetriever(s, 10*time.Millisecond).Retrieve(context.Background(), "P1", "q", 5)
	if ok || len(docs) != 0 {
		t.Errorf("expected timeout fallback, got %v/%v", docs, ok)
	}
}

func TestRetrieveNoop(t *testing.T) {
	docs, ok := NewRetriever(nil, time.Second).Retrieve(context.Background(), "P1", "q", 5)
	if ok || len(docs) != 0 {
		t.Errorf("expected noop fallback, got %v/%v", docs, ok)
	}
}

func TestRetrieveSkipsBlankQuery(t *testing.T) {
	s := &fakeStore{}
	docs, ok := NewRetriever(s, time.Second).Retrieve(context.Background(), "P1", "  ", 5)
	if !ok || len(docs) != 0 || s.calls != 0 {
		t.Errorf("expected no store call, got %v/%v calls=%d", docs, ok, s.calls)
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID("project-001"), NewID("project-001")
	if !strings.HasPrefix(a, "project-001-doc-") {
		t.Errorf("unexpected id %q", a)
	}
	if a == b {
		t.Error("expected unique ids")
	}
}

func TestTexts(t *testing.T) {
	got := Texts([]project.RetrievedDocument{{Text: "x"}, {Text: "y"}})
	if len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Errorf("unexpected texts %v", got)
	}
	if Texts(nil) == nil {
		t.Error("expected non-nil slice")
	}
}
