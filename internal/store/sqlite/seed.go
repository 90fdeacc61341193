package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
)

// SeedBundle inserts a project and every record attached to it in one
// transaction. It returns false without writing when the code already exists.
func (db *DB) SeedBundle(ctx context.Context, b project.Bundle) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning seed: %w", err)
	}
	defer tx.Rollback()

	p := b.Project
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO projects
		(project_code, name, description, location, longitude, latitude, status, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Code, p.Name, p.Description, p.Location, p.Coordinates[0], p.Coordinates[1],
		p.Status, p.StartDate, p.EndDate,
	)
	if err != nil {
		return false, fmt.Errorf("inserting project %q: %w", p.Code, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}

	recs := b.Summary.Recommendations
	if recs == nil {
		recs = []string{}
	}
	recsJSON, err := json.Marshal(recs)
	if err != nil {
		return false, err
	}
	lastUpdated := b.Summary.LastUpdated
	if lastUpdated == "" {
		lastUpdated = time.Now().UTC().Format(time.RFC3339)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO project_summary (project_id, summary, recommendations, additional_insights, last_updated)
		VALUES (?, ?, ?, ?, ?)`,
		id, b.Summary.Summary, string(recsJSON), b.Summary.AdditionalInsights, lastUpdated,
	); err != nil {
		return false, fmt.Errorf("inserting summary: %w", err)
	}

	for _, m := range b.RiskMetrics {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO risk_summary_metrics (project_id, category, score, impact, likelihood, description)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, m.Category, m.Score, string(m.Impact), string(m.Likelihood), m.Description,
		); err != nil {
			return false, fmt.Errorf("inserting risk metric %q: %w", m.Category, err)
		}
	}

	for _, pt := range b.TimeSeries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO time_series_data (project_id, timestamp, metric_type, value) VALUES (?, ?, ?, ?)`,
			id, pt.Timestamp.UTC().Format(time.RFC3339), string(pt.MetricType), pt.Value,
		); err != nil {
			return false, fmt.Errorf("inserting time series point: %w", err)
		}
	}

	for _, s := range b.LandUse {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pie_chart_data (project_id, category, value) VALUES (?, ?, ?)`,
			id, s.Category, s.Value,
		); err != nil {
			return false, fmt.Errorf("inserting land use %q: %w", s.Category, err)
		}
	}

	for i, shape := range b.GeoShapes {
		geometry, err := json.Marshal(shape.Geometry)
		if err != nil {
			return false, fmt.Errorf("encoding geo shape %d: %w", i, err)
		}
		props := shape.Properties
		if props == nil {
			props = map[string]any{}
		}
		properties, err := json.Marshal(props)
		if err != nil {
			return false, fmt.Errorf("encoding geo properties %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO geo_data (project_id, geometry, properties) VALUES (?, ?, ?)`,
			id, string(geometry), string(properties),
		); err != nil {
			return false, fmt.Errorf("inserting geo shape %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing seed: %w", err)
	}
	return true, nil
}
