package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// migrate creates the schema on a new database and upgrades older ones.
func (db *DB) migrate(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(ctx, tx); err != nil {
			return err
		}

		version, err := getSchemaVersion(ctx, tx)
		if err != nil {
			return err
		}
		if version == currentSchemaVersion {
			db.logger.Debug("Database schema is up to date", map[string]interface{}{
				"version": version,
			})
			return nil
		}
		if version > currentSchemaVersion {
			return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
		}

		if version < 1 {
			if err := createRecordsTable(ctx, tx, db.dialect); err != nil {
				return err
			}
		}

		if err := setSchemaVersion(ctx, tx, db, currentSchemaVersion); err != nil {
			return err
		}
		db.logger.Info("Database schema initialized", map[string]interface{}{
			"from_version": version,
			"to_version":   currentSchemaVersion,
			"dialect":      string(db.dialect),
		})
		return nil
	})
}

// getSchemaVersion returns 0 for a database without a version row.
func getSchemaVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	var version int
	err := tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(ctx context.Context, tx *sql.Tx, db *DB, version int) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, db.rebind("INSERT INTO schema_version (version) VALUES (?)"), version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createRecordsTable creates the records table holding analyses, execution
// blobs and the version pointer.
func createRecordsTable(ctx context.Context, tx *sql.Tx, dialect Dialect) error {
	blobType := "BLOB"
	if dialect == Postgres {
		blobType = "BYTEA"
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS records (
			kind TEXT NOT NULL,
			key TEXT NOT NULL,
			data %s NOT NULL,
			PRIMARY KEY (kind, key)
		)
	`, blobType))
	if err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}
	return nil
}
