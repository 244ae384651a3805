package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wg-access-bot/internal/errors"
)

var tokenColumns = []string{"id", "token", "balance", "created_at"}

func TestGenerateToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepository(db)

	created := time.Now()
	mock.ExpectQuery(`INSERT INTO access_tokens`).
		WithArgs(sqlmock.AnyArg(), int64(100)).
		WillReturnRows(sqlmock.NewRows(tokenColumns).
			AddRow(1, "f00dfeed", 100, created))

	token, err := repo.Generate(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), token.Balance)
	assert.NotEmpty(t, token.Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateTokenRejectsNegativeBalance(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewTokenRepository(db)

	_, err := repo.Generate(context.Background(), -1)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestAdjustBalance(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepository(db)

	mock.ExpectQuery(`UPDATE access_tokens SET balance = GREATEST`).
		WithArgs(int64(-30), "tok1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(70))

	balance, err := repo.AdjustBalance(context.Background(), "tok1", -30)
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustBalanceUnknownToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepository(db)

	mock.ExpectQuery(`UPDATE access_tokens SET balance = GREATEST`).
		WithArgs(int64(10), "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.AdjustBalance(context.Background(), "missing", 10)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestSetBalanceUnknownToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepository(db)

	mock.ExpectExec(`UPDATE access_tokens SET balance = \$1`).
		WithArgs(int64(50), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetBalance(context.Background(), "missing", 50)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestSetBalanceRejectsNegative(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewTokenRepository(db)

	err := repo.SetBalance(context.Background(), "tok1", -5)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestGetTokenNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepository(db)

	mock.ExpectQuery(`FROM access_tokens WHERE token`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestListTokens(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepository(db)

	created := time.Now()
	mock.ExpectQuery(`FROM access_tokens ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(tokenColumns).
			AddRow(1, "tok1", 70, created).
			AddRow(2, "tok2", 0, created))

	tokens, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "tok1", tokens[0].Token)
	assert.Equal(t, int64(70), tokens[0].Balance)
}
