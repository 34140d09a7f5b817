package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN_Write(t *testing.T) {
	dsn := buildDSN("/tmp/bot.sqlite", ModeWrite)

	assert.Contains(t, dsn, "_journal_mode=WAL")
	assert.Contains(t, dsn, "_busy_timeout=5000")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.True(t, strings.HasPrefix(dsn, "/tmp/bot.sqlite?"))
}

func TestBuildDSN_Read(t *testing.T) {
	dsn := buildDSN("/tmp/bot.sqlite", ModeRead)

	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.NotContains(t, dsn, "_txlock")
}

func TestOpenSQLite_InvalidMode(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "bot.db"), Mode("invalid"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid SQLite mode")
}

func TestOpenSQLite_WriteIsSingleConnection(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "bot.db"), ModeWrite, 0)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", strings.ToLower(journalMode))

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestOpenSQLitePair_ReadPoolSize(t *testing.T) {
	writeDB, readDB, err := OpenSQLitePair(filepath.Join(t.TempDir(), "bot.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		readDB.Close()
		writeDB.Close()
	})

	assert.Equal(t, 1, writeDB.Stats().MaxOpenConnections)
	assert.Equal(t, 4, readDB.Stats().MaxOpenConnections)
}

func TestRunMigrations_CreatesTables(t *testing.T) {
	writeDB, _ := OpenTestSQLite(t)

	for _, table := range []string{
		"principals", "admins", "feature_groups", "commands", "entitlements",
		"group_memberships", "permission_levels", "resources", "audit_log",
	} {
		var name string
		err := writeDB.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
}

func TestInTx_RollsBackOnError(t *testing.T) {
	writeDB, _ := OpenTestSQLite(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := InTx(ctx, writeDB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO principals (kind, id) VALUES ('user', 'u1')`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, writeDB.QueryRow(`SELECT COUNT(*) FROM principals`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestInTx_Commits(t *testing.T) {
	writeDB, _ := OpenTestSQLite(t)
	ctx := context.Background()

	err := InTx(ctx, writeDB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO principals (kind, id) VALUES ('channel', 'c1')`)
		return err
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, writeDB.QueryRow(`SELECT COUNT(*) FROM principals`).Scan(&n))
	assert.Equal(t, 1, n)
}
