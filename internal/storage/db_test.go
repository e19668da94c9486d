package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseInitialization(t *testing.T) {
	dir := t.TempDir()
	backend, err := openSQLite(context.Background(), Options{Dir: dir})
	require.NoError(t, err)
	db := backend.(*DB)
	defer db.Close()

	_, err = os.Stat(filepath.Join(dir, "tia.db"))
	require.NoError(t, err)

	var version int
	require.NoError(t, db.WithTx(context.Background(), func(tx *sql.Tx) error {
		version, err = getSchemaVersion(context.Background(), tx)
		return err
	}))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestDatabaseReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := openSQLite(ctx, Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, KindPointer, pointerKey, []byte("abc")))
	require.NoError(t, first.Close())

	second, err := openSQLite(ctx, Options{Dir: dir})
	require.NoError(t, err)
	defer second.Close()

	data, err := second.Get(ctx, KindPointer, pointerKey)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestDatabaseDeleteMissing(t *testing.T) {
	backend, err := openSQLite(context.Background(), Options{Dir: t.TempDir()})
	require.NoError(t, err)
	defer backend.Close()

	assert.ErrorIs(t, backend.Delete(context.Background(), KindAnalysis, "nope"), ErrNotFound)
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: Postgres}
	lite := &DB{dialect: SQLite}
	query := "SELECT data FROM records WHERE kind = ? AND key = ?"

	assert.Equal(t, "SELECT data FROM records WHERE kind = $1 AND key = $2", pg.rebind(query))
	assert.Equal(t, query, lite.rebind(query))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	backend, err := openSQLite(context.Background(), Options{Dir: t.TempDir()})
	require.NoError(t, err)
	db := backend.(*DB)
	defer db.Close()
	ctx := context.Background()

	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO records (kind, key, data) VALUES ('pointer', 'current', x'00')"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = db.Get(ctx, KindPointer, pointerKey)
	assert.ErrorIs(t, err, ErrNotFound)
}
