package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
)

const projectColumns = `id, project_code, name, description, location, longitude, latitude, status, start_date, end_date`

// ListProjects returns all projects ordered by code.
func (db *DB) ListProjects(ctx context.Context) ([]project.Project, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY project_code`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	projects := []project.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// ProjectExists reports whether a project with the given code exists.
func (db *DB) ProjectExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE project_code = ?`, code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking project: %w", err)
	}
	return n > 0, nil
}

// GetProjectByCode returns the project with the given code, or nil.
func (db *DB) GetProjectByCode(ctx context.Context, code string) (*project.Project, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE project_code = ?`, code)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return p, nil
}

// GetSummary returns the summary for a project, or nil.
func (db *DB) GetSummary(ctx context.Context, projectID int64) (*project.Summary, error) {
	var s project.Summary
	var recs string
	var lastUpdated sql.NullString
	err := db.conn.QueryRowContext(ctx,
		`SELECT summary, recommendations, additional_insights, last_updated
		FROM project_summary WHERE project_id = ?`, projectID,
	).Scan(&s.Summary, &recs, &s.AdditionalInsights, &lastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting summary: %w", err)
	}
	if err := json.Unmarshal([]byte(recs), &s.Recommendations); err != nil {
		return nil, fmt.Errorf("decoding recommendations: %w", err)
	}
	s.LastUpdated = lastUpdated.String
	return &s, nil
}

// ListRiskMetrics returns risk metrics in insertion order.
func (db *DB) ListRiskMetrics(ctx context.Context, projectID int64) ([]project.RiskMetric, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT category, score, impact, likelihood, description
		FROM risk_summary_metrics WHERE project_id = ? ORDER BY id`, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing risk metrics: %w", err)
	}
	defer rows.Close()

	metrics := []project.RiskMetric{}
	for rows.Next() {
		var m project.RiskMetric
		if err := rows.Scan(&m.Category, &m.Score, &m.Impact, &m.Likelihood, &m.Description); err != nil {
			return nil, fmt.Errorf("scanning risk metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// ListTimeSeries returns points ordered by timestamp ascending.
func (db *DB) ListTimeSeries(ctx context.Context, projectID int64) ([]project.TimeSeriesPoint, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT timestamp, metric_type, value
		FROM time_series_data WHERE project_id = ? ORDER BY timestamp, id`, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing time series: %w", err)
	}
	defer rows.Close()

	points := []project.TimeSeriesPoint{}
	for rows.Next() {
		var p project.TimeSeriesPoint
		var ts string
		if err := rows.Scan(&ts, &p.MetricType, &p.Value); err != nil {
			return nil, fmt.Errorf("scanning time series: %w", err)
		}
		p.Timestamp, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp %q: %w", ts, err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// ListLandUse returns land-use slices in insertion order.
func (db *DB) ListLandUse(ctx context.Context, projectID int64) ([]project.LandUseSlice, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT category, value FROM pie_chart_data WHERE project_id = ? ORDER BY id`, projectID,
	)
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

// ListGeoShapes returns validated GeoJSON features for a project.
func (db *DB) ListGeoShapes(ctx context.Context, projectID int64) ([]project.GeoShape, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, geometry, properties FROM geo_data WHERE project_id = ? ORDER BY id`, projectID,
	)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*project.Project, error) {
	var p project.Project
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Location,
		&p.Coordinates[0], &p.Coordinates[1], &p.Status, &p.StartDate, &p.EndDate); err != nil {
		return nil, err
	}
	return &p, nil
}
