package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresRepository(db), mock
}

func TestCreateUser_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`^INSERT INTO users\(first_name, last_name, username, password\) VALUES\(\$1, \$2, \$3, \$4\) RETURNING id, created_at$`).
		WithArgs("Alice", "Smith", "alice", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, now))

	got, err := repo.CreateUser(context.Background(), &DBUser{FirstName: "Alice", LastName: "Smith", Username: "alice", Password: "hash"})
	require.NoError(t, err)
	assert.Equal(t, int32(7), got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, now, got.CreatedAt)
}

func TestCreateUser_Duplicate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`^INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.CreateUser(context.Background(), &DBUser{Username: "alice"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestCreateUser_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`^INSERT INTO users`).
		WillReturnError(errors.New("db down"))

	_, err := repo.CreateUser(context.Background(), &DBUser{Username: "alice"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateUsername)
	assert.Contains(t, err.Error(), "db down")
}

func TestGetUserByUsername(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()
	cols := []string{"id", "first_name", "last_name", "username", "password", "created_at"}

	mock.ExpectQuery(`^SELECT id, first_name, last_name, username, password, created_at FROM users WHERE username = \$1$`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "Alice", "Smith", "alice", "hash", now))
	mock.ExpectQuery(`FROM users WHERE username = \$1$`).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(cols))

	user, found, err := repo.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int32(1), user.ID)
	assert.Equal(t, "Alice", user.FirstName)

	user, found, err = repo.GetUserByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, user)
}

func TestGetUserByID_Error(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM users WHERE id = \$1$`).
		WithArgs(int32(3)).
		WillReturnError(sql.ErrConnDone)

	_, found, err := repo.GetUserByID(context.Background(), 3)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.False(t, found)
}

func TestCreateFolder(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`^INSERT INTO folders\(name, owner_id, created_at, modified_at\) VALUES\(\$1, \$2, \$3, \$3\) RETURNING id$`).
		WithArgs("Docs", int32(1), at).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))

	folder, err := repo.CreateFolder(context.Background(), 1, "Docs", at)
	require.NoError(t, err)
	assert.Equal(t, &DBFolder{ID: 4, Name: "Docs", OwnerID: 1, CreatedAt: at, ModifiedAt: at}, folder)
}

func TestListFoldersByOwner(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "name", "owner_id", "created_at", "modified_at", "count"}).
		AddRow(1, "A", 9, now, now, 0).
		AddRow(2, "B", 9, now, now, 3)
	mock.ExpectQuery(`(?s)SELECT f\.id, f\.name, f\.owner_id, f\.created_at, f\.modified_at, COUNT\(fl\.id\)\s+FROM folders f\s+LEFT JOIN files fl ON fl\.folder_id = f\.id\s+WHERE f\.owner_id = \$1\s+GROUP BY f\.id`).
		WithArgs(int32(9)).
		WillReturnRows(rows)

	folders, err := repo.ListFoldersByOwner(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, 0, folders[0].FileCount)
	assert.Equal(t, 3, folders[1].FileCount)
}

func TestRenameFolder(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	at := time.Now()

	mock.ExpectExec(`^UPDATE folders SET name = \$1, modified_at = \$2 WHERE id = \$3$`).
		WithArgs("New", at, int32(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^UPDATE folders SET name`).
		WithArgs("New", at, int32(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.RenameFolder(context.Background(), 2, "New", at))
	assert.ErrorIs(t, repo.RenameFolder(context.Background(), 3, "New", at), ErrNotFound)
}

func TestTouchFolder(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	at := time.Now()

	mock.ExpectExec(`^UPDATE folders SET modified_at = \$1 WHERE id = \$2$`).
		WithArgs(at, int32(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.TouchFolder(context.Background(), 2, at))
}

func TestDeleteFolder_Commit(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE FROM files WHERE folder_id = \$1$`).
		WithArgs(int32(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`^DELETE FROM folders WHERE id = \$1$`).
		WithArgs(int32(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, repo.DeleteFolder(context.Background(), 5))
}

func TestDeleteFolder_RollbackWhenMissing(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE FROM files WHERE folder_id = \$1$`).
		WithArgs(int32(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^DELETE FROM folders WHERE id = \$1$`).
		WithArgs(int32(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.DeleteFolder(context.Background(), 5), ErrNotFound)
}

func TestDeleteFolder_RollbackOnFilesError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`^DELETE FROM files WHERE folder_id = \$1$`).
		WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	err := repo.DeleteFolder(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestCreateAndGetFile(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`^INSERT INTO files\(name, size, path, folder_id\) VALUES\(\$1, \$2, \$3, \$4\) RETURNING id, created_at$`).
		WithArgs("a_1-2-2024_5.txt", int64(12), "/up/a_1-2-2024_5.txt", int32(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, now))
	mock.ExpectQuery(`^SELECT id, name, size, path, folder_id, created_at FROM files WHERE id = \$1$`).
		WithArgs(int32(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "size", "path", "folder_id", "created_at"}).
			AddRow(11, "a_1-2-2024_5.txt", 12, "/up/a_1-2-2024_5.txt", 3, now))

	created, err := repo.CreateFile(context.Background(), &DBFile{Name: "a_1-2-2024_5.txt", Size: 12, Path: "/up/a_1-2-2024_5.txt", FolderID: 3})
	require.NoError(t, err)
	assert.Equal(t, int32(11), created.ID)

	got, found, err := repo.GetFileByID(context.Background(), 11)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, *created, *got)
}

func TestListFilesByFolder(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM files WHERE folder_id = \$1 ORDER BY id$`).
		WithArgs(int32(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "size", "path", "folder_id", "created_at"}).
			AddRow(1, "a", 1, "/a", 3, now).
			AddRow(2, "b", 2, "/b", 3, now))

	files, err := repo.ListFilesByFolder(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Equal(t, "b", files[1].Name)
}

func TestDeleteFile_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`^DELETE FROM files WHERE id = \$1$`).
		WithArgs(int32(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.DeleteFile(context.Background(), 8), ErrNotFound)
}

func TestRunMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(ctx context.Context, d *sql.DB, dir string) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, RunMigrations(context.Background(), db))
	assert.Equal(t, ".", gotDir)

	gooseUp = func(ctx context.Context, d *sql.DB, dir string) error {
		return errors.New("boom")
	}
	assert.EqualError(t, RunMigrations(context.Background(), db), "boom")
}
