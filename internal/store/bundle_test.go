package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
)

type mockStore struct {
	projects  map[string]*project.Project
	summaries map[int64]*project.Summary
	failOn    string
	failErr   error

	lookups atomic.Int32
	reads   atomic.Int32
}

func newMockStore() *mockStore {
	return &mockStore{
		projects: map[string]*project.Project{
			"P1": {ID: 7, Code: "P1", Name: "One"},
		},
		summaries: map[int64]*project.Summary{
			7: {Summary: "ok"},
		},
	}
}

func (m *mockStore) fail(op string) error {
	if m.failOn == op {
		if m.failErr != nil {
			return m.failErr
		}
		return errors.New(op + " failed")
	}
	return nil
}

func (m *mockStore) Ping(ctx context.Context) error  { return m.fail("ping") }
func (m *mockStore) Close(ctx context.Context) error { return nil }

func (m *mockStore) ListProjects(ctx context.Context) ([]project.Project, error) {
	return nil, m.fail("list")
}

func (m *mockStore) ProjectExists(ctx context.Context, code string) (bool, error) {
	m.lookups.Add(1)
	if err := m.fail("exists"); err != nil {
		return false, err
	}
	_, ok := m.projects[code]
	return ok, nil
}

func (m *mockStore) GetProjectByCode(ctx context.Context, code string) (*project.Project, error) {
	m.lookups.Add(1)
	if err := m.fail("project"); err != nil {
		return nil, err
	}
	return m.projects[code], nil
}

func (m *mockStore) GetSummary(ctx context.Context, id int64) (*project.Summary, error) {
	m.reads.Add(1)
	if err := m.fail("summary"); err != nil {
		return nil, err
	}
	return m.summaries[id], nil
}

func (m *mockStore) ListRiskMetrics(ctx context.Context, id int64) ([]project.RiskMetric, error) {
	m.reads.Add(1)
	if err := m.fail("risk"); err != nil {
		return nil, err
	}
	return []project.RiskMetric{{Category: "Leakage", Score: 130}}, nil
}

func (m *mockStore) ListTimeSeries(ctx context.Context, id int64) ([]project.TimeSeriesPoint, error) {
	m.reads.Add(1)
	return nil, m.fail("series")
}

func (m *mockStore) ListLandUse(ctx context.Context, id int64) ([]project.LandUseSlice, error) {
	m.reads.Add(1)
	return nil, m.fail("landuse")
}

func (m *mockStore) ListGeoShapes(ctx context.Context, id int64) ([]project.GeoShape, error) {
	m.reads.Add(1)
	return nil, m.fail("geo")
}

func TestFetchBundle(t *testing.T) {
	m := newMockStore()
	b, err := FetchBundle(context.Background(), m, "  P1 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Project.Code != "P1" || b.Summary.Summary != "ok" {
		t.Errorf("unexpected bundle: %+v", b)
	}
	if b.RiskMetrics[0].Score != 130 {
		t.Errorf("expected score passed through unclamped, got %v", b.RiskMetrics[0].Score)
	}
	if got := m.lookups.Load(); got != 1 {
		t.Errorf("expected 1 project lookup, got %d", got)
	}
	if got := m.reads.Load(); got != 5 {
		t.Errorf("expected 5 sub-reads, got %d", got)
	}
}

func TestFetchBundleNotFoundSkipsReads(t *testing.T) {
	m := newMockStore()
	_, err := FetchBundle(context.Background(), m, "NOPE")
	if !errors.Is(err, project.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := m.reads.Load(); got != 0 {
		t.Errorf("expected no sub-reads, got %d", got)
	}
}

func TestFetchBundleEmptyCode(t *testing.T) {
	m := newMockStore()
	_, err := FetchBundle(context.Background(), m, "   ")
	if !errors.Is(err, project.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if m.lookups.Load() != 0 {
		t.Error("expected no store access for empty code")
	}
}

func TestFetchBundleSubReadFailure(t *testing.T) {
	for _, op := range []string{"summary", "risk", "series", "landuse", "geo"} {
		t.Run(op, func(t *testing.T) {
			m := newMockStore()
			m.failOn = op
			b, err := FetchBundle(context.Background(), m, "P1")
			if !errors.Is(err, project.ErrUpstreamUnavailable) {
				t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
			}
			if b != nil {
				t.Error("expected no partial bundle")
			}
		})
	}
}

func TestFetchBundleMissingSummary(t *testing.T) {
	m := newMockStore()
	m.summaries = map[int64]*project.Summary{}
	_, err := FetchBundle(context.Background(), m, "P1")
	if !errors.Is(err, project.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestFetchBundleLookupFailure(t *testing.T) {
	m := newMockStore()
	m.failOn = "project"
	_, err := FetchBundle(context.Background(), m, "P1")
	if !errors.Is(err, project.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if errors.Is(err, project.ErrNotFound) {
		t.Error("store failure must not read as not found")
	}
}

func TestExists(t *testing.T) {
	m := newMockStore()
	ok, err := Exists(context.Background(), m, "P1")
	if err != nil || !ok {
		t.Errorf("expected P1 to exist, got %v, %v", ok, err)
	}
	ok, err = Exists(context.Background(), m, "P2")
	if err != nil || ok {
		t.Errorf("expected P2 absent, got %v, %v", ok, err)
	}
}

func TestExistsErrors(t *testing.T) {
	m := newMockStore()
	if _, err := Exists(context.Background(), m, ""); !errors.Is(err, project.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	cause := errors.New("connection refused")
	m.failOn = "exists"
	m.failErr = cause
	ok, err := Exists(context.Background(), m, "P1")
	if ok {
		t.Error("expected false on failure")
	}
	if !errors.Is(err, project.ErrUpstreamUnavailable) || !errors.Is(err, cause) {
		t.Errorf("expected wrapped upstream error, got %v", err)
	}
}

func TestCallerCancellationIsNotUnavailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, op := range []string{"exists", "project", "risk"} {
		t.Run(op, func(t *testing.T) {
			m := newMockStore()
			m.failOn = op
			m.failErr = ctx.Err()

			var err error
			if op == "exists" {
				_, err = Exists(ctx, m, "P1")
			} else {
				_, err = FetchBundle(ctx, m, "P1")
			}
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
			if errors.Is(err, project.ErrUpstreamUnavailable) {
				t.Errorf("cancellation reported as store outage: %v", err)
			}
		})
	}
}

func TestDeadlineIsNotUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	m := newMockStore()
	m.failOn = "project"
	m.failErr = errors.New("driver: interrupted")
	_, err := FetchBundle(ctx, m, "P1")
	if !errors.Is(err, context.DeadlineExceeded) || errors.Is(err, project.ErrUpstreamUnavailable) {
		t.Errorf("expected deadline error, got %v", err)
	}
}
