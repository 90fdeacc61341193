package narrative

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type mockProvider struct {
	response string
	err      error
	delay    time.Duration
	calls    int
	prompts  []string
}

func (m *mockProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("project-001", []string{"Doc A", "Doc B"}, " main risks? ")
	for _, want := range []string{"project-001", "main risks?", "Doc A\n\nDoc B", "Project Context:"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestBuildPromptNoPassages(t *testing.T) {
	p := BuildPrompt("project-001", nil, "q")
	if !strings.Contains(p, "Project Context:\n\n\n") {
		t.Errorf("expected empty context section:\n%s", p)
	}
}

func TestGenerateSuccess(t *testing.T) {
	m := &mockProvider{response: "  Leakage dominates.  "}
	text, ok := New(m, 0, time.Second).Generate(context.Background(), "P1", "prompt")
	if !ok || text != "Leakage dominates." {
		t.Errorf("unexpected result %q/%v", text, ok)
	}
	if m.calls != 1 {
		t.Errorf("expected 1 call, got %d", m.calls)
	}
}

func TestGenerateStripsEchoedPrompt(t *testing.T) {
	prompt := BuildPrompt("P1", []string{"ctx"}, "q")
	m := &mockProvider{response: prompt + "\n\nThe answer."}
	text, ok := New(m, 0, time.Second).Generate(context.Background(), "P1", prompt)
	if !ok || text != "The answer." {
		t.Errorf("unexpected result %q/%v", text, ok)
	}
}

func TestGenerateFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		provider *mockProvider
		timeout  time.Duration
	}{
		{"error", &mockProvider{err: errors.New("503")}, time.Second},
		{"empty", &mockProvider{response: "   "}, time.Second},
		{"echo only", &mockProvider{response: "prompt"}, time.Second},
		{"timeout", &mockProvider{response: "late", delay: time.Second}, 10 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := New(tt.provider, 0, tt.timeout).Generate(context.Background(), "P1", "prompt")
			if ok {
				t.Error("expected fallback")
			}
			if !IsFallback(text) {
				t.Errorf("expected a fallback sentence, got %q", text)
			}
		})
	}
}

func TestGenerateUnconfigured(t *testing.T) {
	text, ok := New(nil, 0, time.Second).Generate(context.Background(), "P1", "prompt")
	if ok || !IsFallback(text) {
		t.Errorf("expected fallback for nil provider, got %q/%v", text, ok)
	}
}

func TestFallbackSelection(t *testing.T) {
	g := New(&mockProvider{err: errors.New("down")}, 0, time.Second)
	for i := range Fallbacks {
		g.pick = func(n int) int { return i }
		text, _ := g.Generate(context.Background(), "P1", "prompt")
		if text != Fallbacks[i] {
			t.Errorf("pick %d: got %q", i, text)
		}
	}
}

func TestRenderHTML(t *testing.T) {
	got := RenderHTML("**High** leakage risk.\n\n<script>alert(1)</script>")
	if !strings.Contains(got, "<strong>High</strong>") {
		t.Errorf("expected bold markup, got %q", got)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("raw HTML must not pass through, got %q", got)
	}
}
