package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/store"
)

// These tests need a disposable database; set TEST_DATABASE_URL to run them.
func openTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	c, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	t.Cleanup(func() { c.Close(ctx) })
	return c
}

// uniqueCode returns a fresh project code that is deleted when the test ends.
func uniqueCode(t *testing.T, c *Client) string {
	t.Helper()
	code := "TEST-" + uuid.NewString()[:8]
	t.Cleanup(func() {
		c.pool.Exec(context.Background(), `DELETE FROM projects WHERE project_code = $1`, code)
	})
	return code
}

func testBundle(code string) project.Bundle {
	return project.Bundle{
		Project: project.Project{Code: code, Name: "PG Forest", Location: "Here", Coordinates: [2]float64{1, 2}},
		Summary: project.Summary{Summary: "s", Recommendations: []string{"r1"}},
		RiskMetrics: []project.RiskMetric{
			{Category: "Leakage", Score: 110, Impact: project.ImpactHigh, Likelihood: project.LikelihoodLikely},
		},
		TimeSeries: []project.TimeSeriesPoint{
			{Timestamp: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), MetricType: project.MetricEmissions, Value: 2},
			{Timestamp: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), MetricType: project.MetricEmissions, Value: 1},
		},
		LandUse: []project.LandUseSlice{{Category: "Forest", Value: 1}},
		GeoShapes: []project.GeoShape{{Geometry: project.NewPolygon([]project.Position{
			{0, 0}, {1, 0}, {1, 1}, {0, 0},
		})}},
	}
}

func TestSeedAndFetch(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()
	code := uniqueCode(t, c)

	inserted, err := c.SeedBundle(ctx, testBundle(code))
	if err != nil || !inserted {
		t.Fatalf("seed: inserted=%v err=%v", inserted, err)
	}
	inserted, err = c.SeedBundle(ctx, testBundle(code))
	if err != nil || inserted {
		t.Fatalf("duplicate seed: inserted=%v err=%v", inserted, err)
	}

	b, err := store.FetchBundle(ctx, c, code)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if b.RiskMetrics[0].Score != 110 {
		t.Errorf("expected unclamped score, got %v", b.RiskMetrics[0].Score)
	}
	if len(b.TimeSeries) != 2 || b.TimeSeries[0].Value != 1 {
		t.Errorf("expected ascending series, got %+v", b.TimeSeries)
	}
	if len(b.GeoShapes) != 1 || b.GeoShapes[0].Geometry.Kind != project.KindPolygon {
		t.Errorf("unexpected shapes: %+v", b.GeoShapes)
	}
}

func TestMissingProject(t *testing.T) {
	c := openTestClient(t)
	_, err := store.FetchBundle(context.Background(), c, "TEST-missing-"+uuid.NewString())
	if !errors.Is(err, project.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
