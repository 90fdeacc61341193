package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
)

// Exists reports whether a project with the given code is present. A store
// failure is returned as ErrUpstreamUnavailable, never as false; a cancelled
// caller gets its context error instead.
func Exists(ctx context.Context, s RelationalStore, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, fmt.Errorf("project code is required: %w", project.ErrInvalidArgument)
	}
	ok, err := s.ProjectExists(ctx, code)
	if err != nil {
		return false, unavailable(ctx, fmt.Sprintf("checking project %q", code), err)
	}
	return ok, nil
}

// FetchBundle resolves code to its project row once and then reads the
// remaining records concurrently, keyed by the resolved internal id. Any
// failed sub-read fails the whole bundle.
func FetchBundle(ctx context.Context, s RelationalStore, code string) (*project.Bundle, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("project code is required: %w", project.ErrInvalidArgument)
	}

	p, err := s.GetProjectByCode(ctx, code)
	if err != nil {
		return nil, unavailable(ctx, fmt.Sprintf("resolving project %q", code), err)
	}
	if p == nil {
		return nil, fmt.Errorf("project %q: %w", code, project.ErrNotFound)
	}

	b := &project.Bundle{Project: *p}
	id := p.ID

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.GetSummary(gctx, id)
		if err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		if summary == nil {
			return fmt.Errorf("summary: no row for project %d", id)
		}
		b.Summary = *summary
		return nil
	})
	g.Go(func() error {
		metrics, err := s.ListRiskMetrics(gctx, id)
		if err != nil {
			return fmt.Errorf("risk metrics: %w", err)
		}
		b.RiskMetrics = metrics
		return nil
	})
	g.Go(func() error {
		points, err := s.ListTimeSeries(gctx, id)
		if err != nil {
			return fmt.Errorf("time series: %w", err)
		}
		b.TimeSeries = points
		return nil
	})
	g.Go(func() error {
		slices, err := s.ListLandUse(gctx, id)
		if err != nil {
			return fmt.Errorf("land use: %w", err)
		}
		b.LandUse = slices
		return nil
	})
	g.Go(func() error {
		shapes, err := s.ListGeoShapes(gctx, id)
		if err != nil {
			return fmt.Errorf("geo shapes: %w", err)
		}
		b.GeoShapes = shapes
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, unavailable(ctx, fmt.Sprintf("fetching bundle for %q", code), err)
	}
	return b, nil
}

// unavailable wraps a failed read as ErrUpstreamUnavailable, unless the
// caller's context ended, in which case the context error is returned so a
// disconnect is not reported as a store outage.
func unavailable(ctx context.Context, op string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%s: %w", op, cerr)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, project.ErrUpstreamUnavailable, err)
}
