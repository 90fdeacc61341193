package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
)

const projectColumns = `id, project_code, name, description, location, longitude, latitude, status, start_date, end_date`

func (c *Client) ListProjects(ctx context.Context) ([]project.Project, error) {
	rows, err := c.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY project_code`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	projects := []project.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (c *Client) ProjectExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := c.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM projects WHERE project_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking project: %w", err)
	}
	return exists, nil
}

func (c *Client) GetProjectByCode(ctx context.Context, code string) (*project.Project, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE project_code = $1`, code)
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return p, nil
}

func (c *Client) GetSummary(ctx context.Context, projectID int64) (*project.Summary, error) {
	var s project.Summary
	var lastUpdated *time.Time
	err := c.pool.QueryRow(ctx, `
SELECT summary, recommendations, additional_insights, last_updated
FROM project_summary WHERE project_id = $1
`, projectID).Scan(&s.Summary, &s.Recommendations, &s.AdditionalInsights, &lastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting summary: %w", err)
	}
	if s.Recommendations == nil {
		s.Recommendations = []string{}
	}
	if lastUpdated != nil {
		s.LastUpdated = lastUpdated.UTC().Format(time.RFC3339)
	}
	return &s, nil
}

func (c *Client) ListRiskMetrics(ctx context.Context, projectID int64) ([]project.RiskMetric, error) {
	rows, err := c.pool.Query(ctx, `
SELECT category, score, impact, likelihood, description
FROM risk_summary_metrics WHERE project_id = $1 ORDER BY id
`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing risk metrics: %w", err)
	}
	defer rows.Close()

	metrics := []project.RiskMetric{}
	for rows.Next() {
		var m project.RiskMetric
		var impact, likelihood string
		if err := rows.Scan(&m.Category, &m.Score, &impact, &likelihood, &m.Description); err != nil {
			return nil, fmt.Errorf("scanning risk metric: %w", err)
		}
		m.Impact = project.Impact(impact)
		m.Likelihood = project.Likelihood(likelihood)
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

func (c *Client) ListTimeSeries(ctx context.Context, projectID int64) ([]project.TimeSeriesPoint, error) {
	rows, err := c.pool.Query(ctx, `
SELECT timestamp, metric_type, value
FROM time_series_data WHERE project_id = $1 ORDER BY timestamp, id
`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing time series: %w", err)
	}
	defer rows.Close()

	points := []project.TimeSeriesPoint{}
	for rows.Next() {
		var p project.TimeSeriesPoint
		var metric string
		if err := rows.Scan(&p.Timestamp, &metric, &p.Value); err != nil {
			return nil, fmt.Errorf("scanning time series: %w", err)
		}
		p.Timestamp = p.Timestamp.UTC()
		p.MetricType = project.MetricType(metric)
		points = append(points, p)
	}
	return points, rows.Err()
}

func (c *Client) ListLandUse(ctx context.Context, projectID int64) ([]project.LandUseSlice, error) {
	rows, err := c.pool.Query(ctx, `SELECT category, value FROM pie_chart_data WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing land use: %w", err)
	}
	defer rows.Close()

	slices := []project.LandUseSlice{}
	for rows.Next() {
		var s project.LandUseSlice
		if err := rows.Scan(&s.Category, &s.Value); err != nil {
			return nil, fmt.Errorf("scanning land use: %w", err)
		}
		slices = append(slices, s)
	}
	return slices, rows.Err()
}

func (c *Client) ListGeoShapes(ctx context.Context, projectID int64) ([]project.GeoShape, error) {
	rows, err := c.pool.Query(ctx, `SELECT id, geometry::text, properties::text FROM geo_data WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing geo shapes: %w", err)
	}
	defer rows.Close()

	shapes := []project.GeoShape{}
	for rows.Next() {
		var id int64
		var geometry, properties string
		if err := rows.Scan(&id, &geometry, &properties); err != nil {
			return nil, fmt.Errorf("scanning geo shape: %w", err)
		}
		shape, err := project.ParseGeoShape([]byte(geometry), []byte(properties))
		if err != nil {
			return nil, fmt.Errorf("geo shape %d: %w", id, err)
		}
		shapes = append(shapes, shape)
	}
	return shapes, rows.Err()
}

func scanProject(row pgx.Row) (*project.Project, error) {
	var p project.Project
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Location,
		&p.Coordinates[0], &p.Coordinates[1], &p.Status, &p.StartDate, &p.EndDate); err != nil {
		return nil, err
	}
	return &p, nil
}
