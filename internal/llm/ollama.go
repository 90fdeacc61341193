package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/logging"
)

const (
	ollamaProbeTimeout = 5 * time.Second
	ollamaTemperature  = 0.3
)

type ollamaBackend struct {
	model   string
	baseURL string
	client  *http.Client
}

func newOllamaBackend(model, baseURL string) ollamaBackend {
	return ollamaBackend{
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// OllamaProvider generates text with a local Ollama server. Request
// deadlines come from the caller's context.
type OllamaProvider struct {
	ollamaBackend
}

func NewOllamaProvider(model, baseURL string) *OllamaProvider {
	return &OllamaProvider{newOllamaBackend(model, baseURL)}
}

// IsConfigured reports whether the server answers and has the model pulled.
// Tags are compared without their suffix, so llama3:8b matches llama3:latest.
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), ollamaProbeTimeout)
	defer cancel()

	var tags tagsResponse
	if err := getJSON(ctx, o.client, o.baseURL+"/api/tags", &tags); err != nil {
		return false
	}
	want, _, _ := strings.Cut(o.model, ":")
	for _, m := range tags.Models {
		if name, _, _ := strings.Cut(m.Name, ":"); name == want {
			return true
		}
	}
	logging.Log.Warnf("Ollama model %q not found", o.model)
	return false
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	req := chatRequest{
		Model:    o.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Options:  chatOptions{NumPredict: maxTokens, Temperature: ollamaTemperature},
	}
	var resp chatResponse
	if err := postJSON(ctx, o.client, o.baseURL+"/api/chat", req, &resp); err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return resp.Message.Content, nil
}

// OllamaEmbedder computes passage embeddings for the Chroma document store.
type OllamaEmbedder struct {
	ollamaBackend
}

func NewOllamaEmbedder(model, baseURL string) *OllamaEmbedder {
	return &OllamaEmbedder{newOllamaBackend(model, baseURL)}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	var resp embedResponse
	if err := postJSON(ctx, e.client, e.baseURL+"/api/embed", embedRequest{Model: e.model, Input: texts}, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}
