package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/project"
)

// SeedBundle inserts a project and its records in one transaction. It
// returns false when the project code is already present.
func (c *Client) SeedBundle(ctx context.Context, b project.Bundle) (bool, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning seed: %w", err)
	}
	defer tx.Rollback(ctx)

	p := b.Project
	var id int64
	err = tx.QueryRow(ctx, `
INSERT INTO projects (project_code, name, description, location, longitude, latitude, status, start_date, end_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (project_code) DO NOTHING
RETURNING id
`, p.Code, p.Name, p.Description, p.Location, p.Coordinates[0], p.Coordinates[1], p.Status, p.StartDate, p.EndDate).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inserting project %q: %w", p.Code, err)
	}

	recs := b.Summary.Recommendations
	if recs == nil {
		recs = []string{}
	}
	lastUpdated := time.Now().UTC()
	if b.Summary.LastUpdated != "" {
		if t, err := time.Parse(time.RFC3339, b.Summary.LastUpdated); err == nil {
			lastUpdated = t
		}
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO project_summary (project_id, summary, recommendations, additional_insights, last_updated)
VALUES ($1, $2, $3, $4, $5)
`, id, b.Summary.Summary, recs, b.Summary.AdditionalInsights, lastUpdated); err != nil {
		return false, fmt.Errorf("inserting summary: %w", err)
	}

	batch := &pgx.Batch{}
	for _, m := range b.RiskMetrics {
		batch.Queue(`INSERT INTO risk_summary_metrics (project_id, category, score, impact, likelihood, description) VALUES ($1, $2, $3, $4, $5, $6)`,
			id, m.Category, m.Score, string(m.Impact), string(m.Likelihood), m.Description)
	}
	for _, pt := range b.TimeSeries {
		batch.Queue(`INSERT INTO time_series_data (project_id, timestamp, metric_type, value) VALUES ($1, $2, $3, $4)`,
			id, pt.Timestamp.UTC(), string(pt.MetricType), pt.Value)
	}
	for _, s := range b.LandUse {
		batch.Queue(`INSERT INTO pie_chart_data (project_id, category, value) VALUES ($1, $2, $3)`,
			id, s.Category, s.Value)
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
		batch.Queue(`INSERT INTO geo_data (project_id, geometry, properties) VALUES ($1, $2::jsonb, $3::jsonb)`,
			id, string(geometry), string(properties))
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return false, fmt.Errorf("inserting project records: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing seed: %w", err)
	}
	return true, nil
}
