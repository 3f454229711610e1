package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestWithSQLTx_Commits(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE aggregated").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := WithSQLTx(context.Background(), db, SQLTxConfig{Fn: func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(context.Background(), "UPDATE aggregated SET x = 1")
		return execErr
	}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSQLTx_RollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := WithSQLTx(context.Background(), db, SQLTxConfig{Fn: func(*sql.Tx) error { return boom }})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSQLTx_RetriesUniqueViolation(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	calls := 0
	err := WithSQLTx(context.Background(), db, SQLTxConfig{
		Retries: 1,
		Fn: func(*sql.Tx) error {
			calls++
			if calls == 1 {
				return &pgconn.PgError{Code: pgerrcode.UniqueViolation}
			}
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSQLTx_DoesNotRetryOtherErrors(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	calls := 0
	err := WithSQLTx(context.Background(), db, SQLTxConfig{
		Retries: 3,
		Fn: func(*sql.Tx) error {
			calls++
			return &pgconn.PgError{Code: pgerrcode.UndefinedColumn}
		},
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(fmt.Errorf("upsert: %w", &pgconn.PgError{Code: pgerrcode.SerializationFailure})))
	assert.True(t, Retryable(&pgconn.PgError{Code: pgerrcode.DeadlockDetected}))
	assert.False(t, Retryable(&pgconn.PgError{Code: pgerrcode.UndefinedTable}))
	assert.False(t, Retryable(errors.New("plain")))
	assert.False(t, Retryable(nil))
}
