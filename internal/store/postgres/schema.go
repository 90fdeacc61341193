package postgres

import (
	"context"
	"fmt"
)

// EnsureSchema creates the project tables when absent. Every statement is
// idempotent, so it runs on each startup.
func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS projects (
    id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    project_code TEXT NOT NULL UNIQUE,
    name         TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    location     TEXT NOT NULL DEFAULT '',
    longitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
    latitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
    status       TEXT NOT NULL DEFAULT '',
    start_date   TEXT NOT NULL DEFAULT '',
    end_date     TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS project_summary (
    project_id          BIGINT PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
    summary             TEXT NOT NULL DEFAULT '',
    recommendations     TEXT[] NOT NULL DEFAULT '{}',
    additional_insights TEXT NOT NULL DEFAULT '',
    last_updated        TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS risk_summary_metrics (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    project_id  BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    category    TEXT NOT NULL,
    score       DOUBLE PRECISION NOT NULL,
    impact      TEXT NOT NULL,
    likelihood  TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS time_series_data (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    project_id  BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    timestamp   TIMESTAMPTZ NOT NULL,
    metric_type TEXT NOT NULL CHECK (metric_type IN ('deforestation', 'emissions')),
    value       DOUBLE PRECISION NOT NULL CHECK (value >= 0)
);

CREATE TABLE IF NOT EXISTS pie_chart_data (
    id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    category   TEXT NOT NULL,
    value      DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS geo_data (
    id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    geometry   JSONB NOT NULL,
    properties JSONB NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_risk_project ON risk_summary_metrics (project_id);
CREATE INDEX IF NOT EXISTS idx_series_project_ts ON time_series_data (project_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_pie_project ON pie_chart_data (project_id);
CREATE INDEX IF NOT EXISTS idx_geo_project ON geo_data (project_id);
`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
