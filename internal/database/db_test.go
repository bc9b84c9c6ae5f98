package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "nested", "history.db"), Name: "history"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_CreatesDirectoryAndMigrates(t *testing.T) {
	db := newTestDB(t)

	assert.True(t, filepath.IsAbs(db.Path()))
	assert.Equal(t, "history", db.Name())

	require.NoError(t, db.Migrate())
	// Idempotent
	require.NoError(t, db.Migrate())

	var count int
	err := db.Conn().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'runs'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, db.HealthCheck(context.Background()))
	require.NoError(t, db.WALCheckpoint(""))
}

func TestMigrate_UnknownSchema(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "unknown"})
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, db.Migrate())
}

func TestNew_InMemory(t *testing.T) {
	db, err := New(Config{Path: ":memory:", Name: "history", Profile: ProfileCache})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())
	_, err = db.Conn().Exec("INSERT INTO runs (id, mode, status, assets, source, created_at) VALUES ('a', 'dual', 'completed', 'A,B', 'api', 1)")
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM runs").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTransaction(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())

	insert := func(tx *sql.Tx, id string) error {
		_, err := tx.Exec("INSERT INTO runs (id, mode, status, assets, source, created_at) VALUES (?, 'dual', 'completed', 'A', 'api', 1)", id)
		return err
	}

	require.NoError(t, WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		return insert(tx, "committed")
	}))

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if err := insert(tx, "rolled-back"); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction failed")

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_ = insert(tx, "panicked")
		panic("unexpected")
	})
	assert.ErrorContains(t, err, "panic in transaction")

	var ids []string
	rows, err := db.Conn().Query("SELECT id FROM runs ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"committed"}, ids)

	assert.Error(t, WithTransaction(nil, func(tx *sql.Tx) error { return nil }))
}

func TestBuildConnectionString(t *testing.T) {
	s := buildConnectionString("/data/history.db", ProfileStandard)
	assert.Contains(t, s, "/data/history.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, s, "synchronous(NORMAL)")

	s = buildConnectionString("file:test?mode=memory", ProfileCache)
	assert.Contains(t, s, "file:test?mode=memory&_pragma=journal_mode(WAL)")
	assert.Contains(t, s, "synchronous(OFF)")
}
