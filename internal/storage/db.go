package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver registered as "pgx"
	_ "modernc.org/sqlite"             // Pure Go SQLite driver

	"tia/internal/logging"
)

// Dialect selects SQL differences between drivers.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// DB represents a database connection with transaction helpers
type DB struct {
	conn    *sql.DB
	dialect Dialect
	logger  *logging.Logger
}

// openSQLite opens or creates <dir>/tia.db.
func openSQLite(ctx context.Context, opts Options) (Backend, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("sqlite backend needs a directory")
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	dbPath := filepath.Join(opts.Dir, "tia.db")

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	return newDB(ctx, conn, SQLite, opts.Logger)
}

func openPostgres(ctx context.Context, opts Options) (Backend, error) {
	dsn := strings.TrimSpace(opts.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("postgres backend needs a dsn")
	}
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return newDB(ctx, conn, Postgres, opts.Logger)
}

func newDB(ctx context.Context, conn *sql.DB, dialect Dialect, logger *logging.Logger) (*DB, error) {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	db := &DB{conn: conn, dialect: dialect, logger: logger}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// WithTx executes a function within a transaction
// If the function returns an error, the transaction is rolled back
// Otherwise, the transaction is committed
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("failed to rollback transaction", map[string]interface{}{
				"error":          err.Error(),
				"rollback_error": rbErr.Error(),
			})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (db *DB) rebind(query string) string {
	if db.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) Get(ctx context.Context, kind Kind, key string) ([]byte, error) {
	var data []byte
	err := db.conn.QueryRowContext(ctx,
		db.rebind("SELECT data FROM records WHERE kind = ? AND key = ?"), string(kind), key,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("record lookup failed: %w", err)
	}
	return data, nil
}

func (db *DB) Put(ctx context.Context, kind Kind, key string, data []byte) error {
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO records (kind, key, data) VALUES (?, ?, ?)
		ON CONFLICT (kind, key) DO UPDATE SET data = excluded.data
	`), string(kind), key, data)
	if err != nil {
		return fmt.Errorf("record write failed: %w", err)
	}
	return nil
}

func (db *DB) Delete(ctx context.Context, kind Kind, key string) error {
	res, err := db.conn.ExecContext(ctx,
		db.rebind("DELETE FROM records WHERE kind = ? AND key = ?"), string(kind), key)
	if err != nil {
		return fmt.Errorf("record delete failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) List(ctx context.Context, kind Kind) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		db.rebind("SELECT key FROM records WHERE kind = ? ORDER BY key"), string(kind))
	if err != nil {
		return nil, fmt.Errorf("record listing failed: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
