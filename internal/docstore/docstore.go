// Package docstore holds project documents and retrieves the passages most
// relevant to a question.
package docstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/fallback"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
)

// ErrUnavailable is returned by Noop and by callers that need a configured store.
var ErrUnavailable = errors.New("document store not available")

// Store is a document backend scoped by project code.
type Store interface {
	// Add stores documents and returns their ids in input order.
	Add(ctx context.Context, docs []project.Document) ([]string, error)
	// Query returns at most k passages for the project, best first.
	Query(ctx context.Context, projectCode, query string, k int) ([]project.RetrievedDocument, error)
	Ping(ctx context.Context) error
	Close() error
}

// Noop is the store used when no backend is configured.
type Noop struct{}

func (Noop) Add(ctx context.Context, docs []project.Document) ([]string, error) {
	return nil, ErrUnavailable
}

func (Noop) Query(ctx context.Context, projectCode, query string, k int) ([]project.RetrievedDocument, error) {
	return nil, ErrUnavailable
}

func (Noop) Ping(ctx context.Context) error { return ErrUnavailable }
func (Noop) Close() error                   { return nil }

// IsNoop reports whether s is the unconfigured store.
func IsNoop(s Store) bool {
	_, ok := s.(Noop)
	return ok
}

// NewID returns a document id of the form <projectCode>-doc-<uuid>.
func NewID(projectCode string) string {
	return projectCode + "-doc-" + uuid.NewString()
}

// Retriever answers retrieval requests without ever failing the caller.
type Retriever struct {
	store   Store
	timeout time.Duration
}

// NewRetriever wraps s. A nil store behaves like Noop.
func NewRetriever(s Store, timeout time.Duration) *Retriever {
	if s == nil {
		s = Noop{}
	}
	return &Retriever{store: s, timeout: timeout}
}

// Retrieve returns up to k passages for the project. Any failure yields an
// empty list and ok=false; ranks are renumbered 1..n in store order.
func (r *Retriever) Retrieve(ctx context.Context, projectCode, query string, k int) (docs []project.RetrievedDocument, ok bool) {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return []project.RetrievedDocument{}, true
	}
	docs, ok = fallback.Call(ctx, "retrieval", projectCode, r.timeout,
		func(ctx context.Context) ([]project.RetrievedDocument, error) {
			return r.store.Query(ctx, projectCode, query, k)
		},
		[]project.RetrievedDocument{},
	)
	if !ok {
		return []project.RetrievedDocument{}, false
	}
	if len(docs) > k {
		docs = docs[:k]
	}
	out := make([]project.RetrievedDocument, 0, len(docs))
	for i, d := range docs {
		d.Rank = i + 1
		out = append(out, d)
	}
	return out, true
}

// Texts returns the passage texts in rank order.
func Texts(docs []project.RetrievedDocument) []string {
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.Text)
	}
	return texts
}
