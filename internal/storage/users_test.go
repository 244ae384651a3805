package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wg-access-bot/internal/errors"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func expectEnsure(mock sqlmock.Sqlmock, telegramID int64, token interface{}) {
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(telegramID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, telegram_id, token FROM users`).
		WithArgs(telegramID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "telegram_id", "token"}).
			AddRow(1, telegramID, token))
}

func TestUserEnsureIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	expectEnsure(mock, 42, nil)
	expectEnsure(mock, 42, nil)

	first, err := repo.Ensure(context.Background(), 42)
	require.NoError(t, err)
	second, err := repo.Ensure(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkTokenSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	expectEnsure(mock, 42, nil)
	mock.ExpectQuery(`SELECT balance FROM access_tokens`).
		WithArgs("tok1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(100))
	mock.ExpectExec(`UPDATE users SET token`).
		WithArgs("tok1", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	balance, err := repo.LinkToken(context.Background(), 42, "tok1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkTokenAlreadyLinked(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	expectEnsure(mock, 42, "tok0")

	_, err := repo.LinkToken(context.Background(), 42, "tok1")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkTokenNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	expectEnsure(mock, 42, nil)
	mock.ExpectQuery(`SELECT balance FROM access_tokens`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.LinkToken(context.Background(), 42, "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlinkTokenWithoutLink(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	expectEnsure(mock, 42, nil)

	_, err := repo.UnlinkToken(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestUnlinkTokenClearsLink(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	expectEnsure(mock, 42, "tok0")
	mock.ExpectExec(`UPDATE users SET token = NULL`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	token, err := repo.UnlinkToken(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "tok0", token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkedTokenAbsent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM users u JOIN access_tokens t`).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	token, err := repo.LinkedToken(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestLinkedTokenPresent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	created := time.Now()
	mock.ExpectQuery(`FROM users u JOIN access_tokens t`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "token", "balance", "created_at"}).
			AddRow(1, "tok0", 70, created))

	token, err := repo.LinkedToken(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "tok0", token.Token)
	assert.Equal(t, int64(70), token.Balance)
}

func TestTelegramIDsWithoutCredit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`LEFT JOIN access_tokens`).
		WillReturnRows(sqlmock.NewRows([]string{"telegram_id"}).AddRow(42).AddRow(43))

	ids, err := repo.TelegramIDsWithoutCredit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{42, 43}, ids)
}
