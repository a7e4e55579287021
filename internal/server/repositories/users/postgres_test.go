package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/moneo/internal/common"
	"github.com/dmitrijs2005/moneo/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

const insertQ = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*name,\s*email,\s*password_hash,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*$`

func sampleUser() *models.User {
	return &models.User{
		ID:           "6f1c1d1e-0000-4000-8000-000000000001",
		Name:         "Alice",
		Email:        "a@b.c",
		PasswordHash: "$2a$04$hash",
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	u := sampleUser()

	mock.ExpectExec(insertQ).
		WithArgs(u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), u))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	u := sampleUser()

	mock.ExpectExec(insertQ).
		WithArgs(u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), u)
	assert.ErrorIs(t, err, common.ErrEmailExists)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	u := sampleUser()

	mock.ExpectExec(insertQ).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), u)
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	u := sampleUser()

	q := `(?s)^SELECT\s+id,\s*name,\s*email,\s*password_hash,\s*created_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`
	rows := sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}).
		AddRow(u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	mock.ExpectQuery(q).WithArgs("a@b.c").WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+email`).WithArgs("ghost@b.c").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@b.c")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	u := sampleUser()

	q := `(?s)^SELECT\s+id,\s*name,\s*email,\s*password_hash,\s*created_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	rows := sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}).
		AddRow(u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	mock.ExpectQuery(q).WithArgs(u.ID).WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	mock.ExpectQuery(q).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	mock.ExpectQuery(q).WithArgs("boom").WillReturnError(errors.New("db err"))
	_, err = repo.GetByID(context.Background(), "boom")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u := sampleUser()

	require.NoError(t, repo.Create(ctx, u))
	assert.ErrorIs(t, repo.Create(ctx, &models.User{ID: "other", Email: u.Email}), common.ErrEmailExists)

	got, err := repo.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = repo.GetByEmail(ctx, "nope@x.y")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
