package sqlite

import (
	"database/sql"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/sqlitemigrate"
)

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []sqlitemigrate.Migration{
	{
		Version:     1,
		Description: "initial project schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_code TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    longitude REAL NOT NULL DEFAULT 0,
    latitude REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT '',
    start_date TEXT NOT NULL DEFAULT '',
    end_date TEXT NOT NULL DEFAULT '',
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS project_summary (
    project_id INTEGER PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
    summary TEXT NOT NULL DEFAULT '',
    recommendations TEXT NOT NULL DEFAULT '[]',
    additional_insights TEXT NOT NULL DEFAULT '',
    last_updated TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS risk_summary_metrics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    category TEXT NOT NULL,
    score REAL NOT NULL,
    impact TEXT NOT NULL,
    likelihood TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS time_series_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    timestamp TEXT NOT NULL,
    metric_type TEXT NOT NULL CHECK(metric_type IN ('deforestation', 'emissions')),
    value REAL NOT NULL CHECK(value >= 0)
);

CREATE TABLE IF NOT EXISTS pie_chart_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    category TEXT NOT NULL,
    value REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS geo_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    geometry TEXT NOT NULL,
    properties TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_risk_project ON risk_summary_metrics(project_id);
CREATE INDEX IF NOT EXISTS idx_series_project_ts ON time_series_data(project_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_pie_project ON pie_chart_data(project_id);
CREATE INDEX IF NOT EXISTS idx_geo_project ON geo_data(project_id);
`)
			return err
		},
	},
}

func migrate(conn *sql.DB) error {
	return sqlitemigrate.Apply(conn, "project store", migrations)
}
