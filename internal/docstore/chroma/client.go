// Package chroma is a document store backed by a Chroma server's REST API.
// Embeddings are computed client-side.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/docstore"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/llm"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
)

var _ docstore.Store = (*Client)(nil)

// Client talks to one Chroma collection.
type Client struct {
	baseURL    string
	collection string
	embedder   llm.Embedder
	http       *http.Client

	mu           sync.Mutex
	collectionID string
}

// New returns a client for collection on the server at baseURL. The
// collection is created on first use.
func New(baseURL, collection string, embedder llm.Embedder) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		embedder:   embedder,
		http:       &http.Client{},
	}
}

type metadata struct {
	ProjectID string `json:"project_id"`
	Type      string `json:"type,omitempty"`
	Version   string `json:"version,omitempty"`
}

// Add embeds and stores documents.
func (c *Client) Add(ctx context.Context, docs []project.Document) ([]string, error) {
	if len(docs) == 0 {
		return []string{}, nil
	}
	id, err := c.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(docs))
	ids := make([]string, len(docs))
	metas := make([]metadata, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
		ids[i] = docstore.NewID(d.ProjectCode)
		metas[i] = metadata{ProjectID: d.ProjectCode, Type: d.Source.Type, Version: d.Source.Version}
	}
	embeddings, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}

	body := map[string]any{
		"ids":        ids,
		"documents":  texts,
		"metadatas":  metas,
		"embeddings": embeddings,
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/add", body, nil); err != nil {
		return nil, fmt.Errorf("adding documents: %w", err)
	}
	return ids, nil
}

// Query returns the k nearest documents for the project.
func (c *Client) Query(ctx context.Context, projectCode, query string, k int) ([]project.RetrievedDocument, error) {
	if k <= 0 {
		return []project.RetrievedDocument{}, nil
	}
	id, err := c.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}
	embeddings, err := c.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	body := map[string]any{
		"query_embeddings": embeddings,
		"n_results":        k,
		"where":            map[string]string{"project_id": projectCode},
		"include":          []string{"documents", "metadatas", "distances"},
	}
	var result struct {
		IDs       [][]string   `json:"ids"`
		Documents [][]string   `json:"documents"`
		Metadatas [][]metadata `json:"metadatas"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/collections/"+id+"/query", body, &result); err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}

	docs := []project.RetrievedDocument{}
	if len(result.IDs) == 0 {
		return docs, nil
	}
	for i, docID := range result.IDs[0] {
		d := project.RetrievedDocument{ID: docID, ProjectCode: projectCode, Rank: i + 1}
		if len(result.Documents) > 0 && i < len(result.Documents[0]) {
			d.Text = result.Documents[0][i]
		}
		if len(result.Metadatas) > 0 && i < len(result.Metadatas[0]) {
			m := result.Metadatas[0][i]
			d.Source = project.DocumentSource{Type: m.Type, Version: m.Version}
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Ping checks the server heartbeat.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/v1/heartbeat", nil, nil)
}

func (c *Client) Close() error { return nil }

func (c *Client) ensureCollection(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collectionID != "" {
		return c.collectionID, nil
	}

	var result struct {
		ID string `json:"id"`
	}
	body := map[string]any{"name": c.collection, "get_or_create": true}
	if err := c.do(ctx, http.MethodPost, "/api/v1/collections", body, &result); err != nil {
		return "", fmt.Errorf("opening collection %q: %w", c.collection, err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("opening collection %q: empty id", c.collection)
	}
	c.collectionID = result.ID
	return c.collectionID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chroma request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("chroma returned %d: %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
