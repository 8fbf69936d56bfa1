package repository

import (
	"context"
	"errors"
	"testing"

	"forum/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	repo := NewUserRepository(setupSQLiteDB(t))
	ctx := context.Background()

	user := &models.User{Username: "alice", PasswordHash: "hash-1"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hash-1", got.PasswordHash)

	missing, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserRepository_CreateDuplicateKeepsOriginal(t *testing.T) {
	t.Parallel()
	repo := NewUserRepository(setupSQLiteDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "alice", PasswordHash: "original"}))

	err := repo.Create(ctx, &models.User{Username: "alice", PasswordHash: "second"})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeDuplicateUsername))

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "original", got.PasswordHash)
}

func TestUserRepository_CreatePostgresUniqueViolation(t *testing.T) {
	t.Parallel()
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Username: "alice", PasswordHash: "h"})
	assert.True(t, models.IsCode(err, models.CodeDuplicateUsername))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUsernameStoreFailure(t *testing.T) {
	t.Parallel()
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE username = \$1`).
		WithArgs("alice", 1).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.GetByUsername(context.Background(), "alice")
	assert.True(t, models.IsCode(err, models.CodeStoreUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueConstraintError(t *testing.T) {
	t.Parallel()

	assert.True(t, isUniqueConstraintError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueConstraintError(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: users.username")))
	assert.False(t, isUniqueConstraintError(errors.New("connection refused")))
	assert.False(t, isUniqueConstraintError(nil))
}
