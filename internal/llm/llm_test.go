package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Model   string `json:"model"`
			Stream  bool   `json:"stream"`
			Options struct {
				NumPredict int `json:"num_predict"`
			} `json:"options"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Model != "llama3" || body.Stream || body.Options.NumPredict != 250 {
			t.Errorf("unexpected request: %+v", body)
		}
		w.Write([]byte(`{"message":{"role":"assistant","content":"Forest cover is declining."}}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider("llama3", srv.URL+"/")
	out, err := p.Generate(context.Background(), "prompt", 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Forest cover is declining." {
		t.Errorf("unexpected output %q", out)
	}
}

func TestOllamaGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewOllamaProvider("llama3", srv.URL).Generate(context.Background(), "p", 10); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestOllamaIsConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama3:latest"}]}`))
	}))
	defer srv.Close()

	if !NewOllamaProvider("llama3:8b", srv.URL).IsConfigured() {
		t.Error("expected llama3 to be found")
	}
	if NewOllamaProvider("mistral", srv.URL).IsConfigured() {
		t.Error("expected mistral to be missing")
	}
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", srv.URL)
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 || vecs[1][0] != 0.3 {
		t.Errorf("unexpected embeddings %v", vecs)
	}

	if _, err := e.Embed(context.Background(), []string{"only one"}); err == nil {
		t.Error("expected count mismatch error")
	}
}

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured{}.Generate(context.Background(), "p", 10)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestOpenAIWithoutKey(t *testing.T) {
	t.Setenv("OFFSET_TEST_KEY", "")
	p, err := NewOpenAIProvider(context.Background(), "gpt-4o-mini", "", "OFFSET_TEST_KEY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.IsConfigured() {
		t.Error("expected unconfigured without key")
	}
	if _, err := p.Generate(context.Background(), "p", 10); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Risk is high."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	}))
	defer srv.Close()

	t.Setenv("OFFSET_TEST_KEY", "sk-test")
	p, err := NewOpenAIProvider(context.Background(), "gpt-4o-mini", srv.URL, "OFFSET_TEST_KEY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := p.Generate(context.Background(), "prompt", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Risk is high." {
		t.Errorf("unexpected output %q", out)
	}
}

type countingProvider struct{ calls int }

func (c *countingProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	c.calls++
	return "ok", nil
}

func (c *countingProvider) IsConfigured() bool { return true }

func TestLimitedRespectsContext(t *testing.T) {
	inner := &countingProvider{}
	p := NewLimited(inner, 1)

	if _, err := p.Generate(context.Background(), "p", 1); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Generate(ctx, "p", 1); err == nil {
		t.Error("expected second call to hit the deadline while queued")
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 delegated call, got %d", inner.calls)
	}
}

func TestNewLimitedDisabled(t *testing.T) {
	inner := &countingProvider{}
	if NewLimited(inner, 0) != Provider(inner) {
		t.Error("expected rpm 0 to return the provider unchanged")
	}
}

func TestCreateProviderUnset(t *testing.T) {
	p := CreateProvider(context.Background(), Options{})
	if _, ok := p.(Unconfigured); !ok {
		t.Errorf("expected Unconfigured, got %T", p)
	}
	p = CreateProvider(context.Background(), Options{Provider: "bogus"})
	if _, ok := p.(Unconfigured); !ok {
		t.Errorf("expected Unconfigured for unknown provider, got %T", p)
	}
}
