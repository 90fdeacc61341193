package chroma

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
)

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{float64(i), 1}
	}
	return out, nil
}

type fakeChroma struct {
	creates atomic.Int32
	added   map[string]any
	query   map[string]any
}

func (f *fakeChroma) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		f.creates.Add(1)
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["name"] != "project_documents" || body["get_or_create"] != true {
			t.Errorf("unexpected create body %v", body)
		}
		w.Write([]byte(`{"id":"col-1","name":"project_documents"}`))
	})
	mux.HandleFunc("POST /api/v1/collections/col-1/add", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&f.added)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`true`))
	})
	mux.HandleFunc("POST /api/v1/collections/col-1/query", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&f.query)
		w.Write([]byte(`{
			"ids": [["P1-doc-a", "P1-doc-b"]],
			"documents": [["Leakage is high.", "Baseline is modest."]],
			"metadatas": [[{"project_id":"P1","type":"risk_analysis","version":"2"}, {"project_id":"P1","type":"pdd"}]],
			"distances": [[0.1, 0.4]]
		}`))
	})
	mux.HandleFunc("GET /api/v1/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"nanosecond heartbeat": 1}`))
	})
	return mux
}

func TestAddAndQuery(t *testing.T) {
	fc := &fakeChroma{}
	srv := httptest.NewServer(fc.handler(t))
	defer srv.Close()

	c := New(srv.URL+"/", "project_documents", fakeEmbedder{})
	ctx := context.Background()

	ids, err := c.Add(ctx, []project.Document{
		{ProjectCode: "P1", Text: "Leakage is high.", Source: project.DocumentSource{Type: "risk_analysis"}},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(ids) != 1 || !strings.HasPrefix(ids[0], "P1-doc-") {
		t.Errorf("unexpected ids %v", ids)
	}
	metas := fc.added["metadatas"].([]any)
	if metas[0].(map[string]any)["project_id"] != "P1" {
		t.Errorf("expected project_id metadata, got %v", metas[0])
	}

	docs, err := c.Query(ctx, "P1", "leakage?", 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 || docs[0].Text != "Leakage is high." || docs[1].Rank != 2 {
		t.Errorf("unexpected docs %+v", docs)
	}
	if docs[0].Source.Type != "risk_analysis" || docs[0].Source.Version != "2" {
		t.Errorf("unexpected source %+v", docs[0].Source)
	}
	where := fc.query["where"].(map[string]any)
	if where["project_id"] != "P1" || fc.query["n_results"] != float64(5) {
		t.Errorf("unexpected query body %v", fc.query)
	}
	if got := fc.creates.Load(); got != 1 {
		t.Errorf("expected collection resolved once, got %d", got)
	}
}

func TestQueryEmbedFailure(t *testing.T) {
	fc := &fakeChroma{}
	srv := httptest.NewServer(fc.handler(t))
	defer srv.Close()

	c := New(srv.URL, "project_documents", fakeEmbedder{err: errors.New("ollama down")})
	if _, err := c.Query(context.Background(), "P1", "q", 5); err == nil {
		t.Error("expected embedding error")
	}
}

func TestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "project_documents", fakeEmbedder{})
	if _, err := c.Query(context.Background(), "P1", "q", 5); err == nil {
		t.Error("expected error from failing server")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Error("expected ping error")
	}
}

func TestPing(t *testing.T) {
	fc := &fakeChroma{}
	srv := httptest.NewServer(fc.handler(t))
	defer srv.Close()

	if err := New(srv.URL, "project_documents", fakeEmbedder{}).Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
}
