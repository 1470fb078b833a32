// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/votedesk/cliparse"
)

func openMemory(t *testing.T, name string) *sql.DB {
	t.Helper()
	conn, err := Open(context.Background(), cliparse.DatabaseSQLite, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestSQLiteDSN(t *testing.T) {
	require.Equal(t, "file:a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("file:a.db"))
	require.Equal(t, "file:a?mode=memory&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("file:a?mode=memory"))
	require.Equal(t, "file:a?_pragma=foreign_keys(0)", sqliteDSN("file:a?_pragma=foreign_keys(0)"))
}

func TestOpen_UnsupportedType(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	require.Error(t, err)
}

func TestMigrate_CreatesTablesAndIsIdempotent(t *testing.T) {
	conn := openMemory(t, "migrate_tests")
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, conn, cliparse.DatabaseSQLite))
	require.NoError(t, Migrate(ctx, conn, cliparse.DatabaseSQLite), "second run must be a no-op")

	for _, table := range []string{"app_user", "voting_topic", "candidate", "ballot", "user_voted_topic", "password_reset"} {
		var n int
		err := conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&n)
		require.NoError(t, err)
		require.Equal(t, 1, n, "table %s must exist", table)
	}
}

func TestMigrate_CandidateCascade(t *testing.T) {
	conn := openMemory(t, "cascade_tests")
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, conn, cliparse.DatabaseSQLite))

	_, err := conn.Exec(`INSERT INTO voting_topic (id, name, created_at, updated_at) VALUES ('t1', 'Topic', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO candidate (id, topic_id, ordinal, name, created_at, updated_at) VALUES ('c1', 't1', 0, 'A', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	_, err = conn.Exec(`DELETE FROM voting_topic WHERE id = 't1'`)
	require.NoError(t, err)

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM candidate`).Scan(&n))
	require.Equal(t, 0, n, "candidates must be removed with their topic")
}

func countRows(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	return n
}

func setupTxTable(t *testing.T, name string) *sql.DB {
	t.Helper()
	conn := openMemory(t, name)
	_, err := conn.Exec(`CREATE TABLE IF NOT EXISTS t (id INTEGER PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)
	return conn
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	conn := setupTxTable(t, "tx_commit")

	err := WithTx(context.Background(), conn, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('ok')`)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, countRows(t, conn), "must commit on success")
}

func TestWithTx_RollbackOnFnError(t *testing.T) {
	conn := setupTxTable(t, "tx_rollback")

	err := WithTx(context.Background(), conn, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('fail')`)
		require.NoError(t, e)
		return errors.New("boom")
	})
	require.Error(t, err)
	require.Equal(t, 0, countRows(t, conn), "must rollback when fn returns error")
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	conn := setupTxTable(t, "tx_panic")

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.Equal(t, 0, countRows(t, conn), "must rollback on panic")
	}()

	_ = WithTx(context.Background(), conn, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('panic')`)
		require.NoError(t, e)
		panic("kaput")
	})
}

func TestWithTx_BeginError(t *testing.T) {
	conn := setupTxTable(t, "tx_begin")
	require.NoError(t, conn.Close())

	err := WithTx(context.Background(), conn, func(ctx context.Context, tx DBTX) error {
		return nil
	})
	require.Error(t, err, "begin should fail when DB is closed")
}
