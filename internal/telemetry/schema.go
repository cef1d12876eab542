package telemetry

import (
	"database/sql"

	"codeberg.org/mutker/pentactl/internal/errors"
	"codeberg.org/mutker/pentactl/internal/logger"
)

// SchemaVersion is bumped whenever the snapshot table layout changes.
const SchemaVersion = 1

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS fan_snapshots (
    timestamp INTEGER NOT NULL,
    temperature REAL NOT NULL,
    computed_duty REAL NOT NULL,
    applied_duty REAL NOT NULL,
    fan_enabled INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fan_snapshots_timestamp
    ON fan_snapshots (timestamp);
`

const insertSnapshotSQL = `
INSERT INTO fan_snapshots
    (timestamp, temperature, computed_duty, applied_duty, fan_enabled)
VALUES (?, ?, ?, ?, ?)
`

// GetSchemaVersion returns the stored schema version, 0 for a fresh
// database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	var exists int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`,
	).Scan(&exists)
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	return version, nil
}

// ValidateAndUpdateSchema checks the schema version and recreates the
// tables when the database is new or the version does not match.
func ValidateAndUpdateSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	version, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}

	if version == SchemaVersion {
		return nil
	}

	log.Debug().
		Int("have", version).
		Int("want", SchemaVersion).
		Msg("Initializing telemetry schema")

	if version != 0 {
		if _, err := db.Exec(`DROP TABLE IF EXISTS fan_snapshots; DROP TABLE IF EXISTS schema_version`); err != nil {
			return errFactory.Wrap(ErrSchemaInitFailed, err)
		}
	}

	if _, err := db.Exec(createSchemaSQL); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, SchemaVersion); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	return nil
}
