// Package sqlitemigrate applies versioned schema migrations to SQLite
// databases, tracking progress in PRAGMA user_version.
package sqlitemigrate

import (
	"database/sql"
	"fmt"

	"github.com/beckyxu-design/Carbon-Offset-Validation/internal/logging"
)

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// SchemaVersion reads PRAGMA user_version from the database.
func SchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// Latest returns the highest version in migrations.
func Latest(migrations []Migration) int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}

// Apply brings the database schema up to the latest version. migrations must
// be ordered by ascending Version.
func Apply(conn *sql.DB, name string, migrations []Migration) error {
	current, err := SchemaVersion(conn)
	if err != nil {
		return err
	}
	if current >= Latest(migrations) {
		return nil
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		logging.Log.Infof("applying %s migration %d: %s", name, m.Version, m.Description)

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if err := m.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		// Set user_version outside the transaction (modernc/sqlite requirement).
		// The DDL is idempotent, so a crash here only re-runs the migration.
		if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			return fmt.Errorf("setting version %d: %w", m.Version, err)
		}
	}

	return nil
}
