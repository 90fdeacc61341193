package store

import (
	"context"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
)

// RelationalStore is read access to project-scoped records. Lookups by code
// return (nil, nil) when the row is absent; every other error means the store
// could not answer.
type RelationalStore interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	ListProjects(ctx context.Context) ([]project.Project, error)
	ProjectExists(ctx context.Context, code string) (bool, error)
	GetProjectByCode(ctx context.Context, code string) (*project.Project, error)

	GetSummary(ctx context.Context, projectID int64) (*project.Summary, error)
	ListRiskMetrics(ctx context.Context, projectID int64) ([]project.RiskMetric, error)
	ListTimeSeries(ctx context.Context, projectID int64) ([]project.TimeSeriesPoint, error)
	ListLandUse(ctx context.Context, projectID int64) ([]project.LandUseSlice, error)
	ListGeoShapes(ctx context.Context, projectID int64) ([]project.GeoShape, error)
}

// Seeder loads a full bundle. It reports false when a project with the same
// code already exists.
type Seeder interface {
	SeedBundle(ctx context.Context, b project.Bundle) (bool, error)
}
