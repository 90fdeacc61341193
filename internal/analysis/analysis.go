// Package analysis composes project reports from the relational store, the
// document retriever and the narrative generator.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/docstore"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/logging"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/narrative"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/store"
)

// DefaultTopK is the number of passages retrieved per analysis.
const DefaultTopK = 5

// Retriever finds passages for a project. It never fails; ok is false when
// the result is a fallback.
type Retriever interface {
	Retrieve(ctx context.Context, projectCode, query string, k int) (docs []project.RetrievedDocument, ok bool)
}

// Generator writes the narrative for a prompt. It never fails; ok is false
// when the text is a fallback sentence.
type Generator interface {
	Generate(ctx context.Context, projectCode, prompt string) (text string, ok bool)
}

// Service holds the subsystem handles. They are set once by NewService and
// never reassigned, so a Service is safe for concurrent use.
type Service struct {
	store     store.RelationalStore
	retriever Retriever
	generator Generator
	topK      int
}

// NewService builds a Service. Nil optional subsystems are replaced by their
// unconfigured implementations.
func NewService(s store.RelationalStore, r Retriever, g Generator, topK int) *Service {
	if r == nil {
		r = docstore.NewRetriever(nil, 0)
	}
	if g == nil {
		g = narrative.New(nil, 0, 0)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{store: s, retriever: r, generator: g, topK: topK}
}

// ListProjects returns every project.
func (s *Service) ListProjects(ctx context.Context) ([]project.Project, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w: %w", project.ErrUpstreamUnavailable, err)
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return projects, nil
}

// Exists reports whether code names a project.
func (s *Service) Exists(ctx context.Context, code string) (bool, error) {
	return store.Exists(ctx, s.store, code)
}

// Details returns the relational records for a project.
func (s *Service) Details(ctx context.Context, code string) (*project.Details, error) {
	b, err := store.FetchBundle(ctx, s.store, code)
	if err != nil {
		return nil, err
	}
	d := project.NewDetails(b)
	return &d, nil
}

// Analyze composes the full report for code answering query. The relational
// bundle is mandatory; retrieval and generation degrade to empty context and
// a fallback narrative.
func (s *Service) Analyze(ctx context.Context, code, query string) (*project.AnalysisResponse, error) {
	code = strings.TrimSpace(code)
	query = strings.TrimSpace(query)
	if code == "" || query == "" {
		return nil, fmt.Errorf("project code and query are required: %w", project.ErrInvalidArgument)
	}

	ok, err := store.Exists(ctx, s.store, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("project %q: %w", code, project.ErrNotFound)
	}

	var (
		bundle   *project.Bundle
		docs     []project.RetrievedDocument
		text     string
		degraded project.Degraded
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := store.FetchBundle(gctx, s.store, code)
		if err != nil {
			return err
		}
		bundle = b
		return nil
	})
	g.Go(func() error {
		var retrieved, generated bool
		docs, retrieved = s.retriever.Retrieve(gctx, code, query, s.topK)
		prompt := narrative.BuildPrompt(code, docstore.Texts(docs), query)
		text, generated = s.generator.Generate(gctx, code, prompt)
		degraded = project.Degraded{Retrieval: !retrieved, Generation: !generated}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analyzing %q: %w", code, err)
	}

	if docs == nil {
		docs = []project.RetrievedDocument{}
	}
	deforestation, emissions := project.SplitSeries(bundle.TimeSeries)
	resp := &project.AnalysisResponse{
		Details:           project.NewDetails(bundle),
		DeforestationData: deforestation,
		EmissionsData:     emissions,
		Analysis:          text,
		AnalysisHTML:      narrative.RenderHTML(text),
		Context:           docstore.Texts(docs),
		Documents:         docs,
		Degraded:          degraded,
	}

	logging.Log.WithField("project_code", code).
		WithField("documents", len(docs)).
		WithField("degraded_retrieval", degraded.Retrieval).
		WithField("degraded_generation", degraded.Generation).
		Debug("analysis composed")
	return resp, nil
}
