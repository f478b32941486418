package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

var _ Repository = (*PostgresRepository)(nil)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user *DBUser) (*DBUser, error) {
	stmt := `INSERT INTO users(first_name, last_name, username, password) VALUES($1, $2, $3, $4) RETURNING id, created_at`
	created := *user
	err := r.db.QueryRowContext(ctx, stmt, user.FirstName, user.LastName, user.Username, user.Password).
		Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &created, nil
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*DBUser, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, first_name, last_name, username, password, created_at FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id int32) (*DBUser, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, first_name, last_name, username, password, created_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*DBUser, bool, error) {
	user := &DBUser{}
	err := row.Scan(&user.ID, &user.FirstName, &user.LastName, &user.Username, &user.Password, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scan user: %w", err)
	}
	return user, true, nil
}

func (r *PostgresRepository) CreateFolder(ctx context.Context, ownerID int32, name string, at time.Time) (*DBFolder, error) {
	stmt := `INSERT INTO folders(name, owner_id, created_at, modified_at) VALUES($1, $2, $3, $3) RETURNING id`
	folder := &DBFolder{
		Name:       name,
		OwnerID:    ownerID,
		CreatedAt:  at,
		ModifiedAt: at,
	}
	if err := r.db.QueryRowContext(ctx, stmt, name, ownerID, at).Scan(&folder.ID); err != nil {
		return nil, fmt.Errorf("insert folder: %w", err)
	}
	return folder, nil
}

func (r *PostgresRepository) GetFolderByID(ctx context.Context, id int32) (*DBFolder, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, owner_id, created_at, modified_at FROM folders WHERE id = $1`, id)

	folder := &DBFolder{}
	err := row.Scan(&folder.ID, &folder.Name, &folder.OwnerID, &folder.CreatedAt, &folder.ModifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scan folder: %w", err)
	}
	return folder, true, nil
}

func (r *PostgresRepository) ListFoldersByOwner(ctx context.Context, ownerID int32) ([]DBFolder, error) {
	stmt := `SELECT f.id, f.name, f.owner_id, f.created_at, f.modified_at, COUNT(fl.id)
		FROM folders f
		LEFT JOIN files fl ON fl.folder_id = f.id
		WHERE f.owner_id = $1
		GROUP BY f.id
		ORDER BY f.name, f.id`
	rows, err := r.db.QueryContext(ctx, stmt, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer rows.Close()

	folders := []DBFolder{}
	for rows.Next() {
		var folder DBFolder
		err = rows.Scan(&folder.ID, &folder.Name, &folder.OwnerID, &folder.CreatedAt, &folder.ModifiedAt, &folder.FileCount)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

func (r *PostgresRepository) RenameFolder(ctx context.Context, id int32, name string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE folders SET name = $1, modified_at = $2 WHERE id = $3`, name, at, id)
	if err != nil {
		return fmt.Errorf("rename folder: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) TouchFolder(ctx context.Context, id int32, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE folders SET modified_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("touch folder: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) DeleteFolder(ctx context.Context, id int32) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin err: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM files WHERE folder_id = $1`, id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("delete files: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("delete folder: %w", err)
	}
	if err = expectOneRow(res); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepository) CreateFile(ctx context.Context, file *DBFile) (*DBFile, error) {
	stmt := `INSERT INTO files(name, size, path, folder_id) VALUES($1, $2, $3, $4) RETURNING id, created_at`
	created := *file
	err := r.db.QueryRowContext(ctx, stmt, file.Name, file.Size, file.Path, file.FolderID).
		Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}
	return &created, nil
}

func (r *PostgresRepository) GetFileByID(ctx context.Context, id int32) (*DBFile, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, size, path, folder_id, created_at FROM files WHERE id = $1`, id)

	file := &DBFile{}
	err := row.Scan(&file.ID, &file.Name, &file.Size, &file.Path, &file.FolderID, &file.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scan file: %w", err)
	}
	return file, true, nil
}

func (r *PostgresRepository) ListFilesByFolder(ctx context.Context, folderID int32) ([]DBFile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, size, path, folder_id, created_at FROM files WHERE folder_id = $1 ORDER BY id`, folderID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	files := []DBFile{}
	for rows.Next() {
		var file DBFile
		if err = rows.Scan(&file.ID, &file.Name, &file.Size, &file.Path, &file.FolderID, &file.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (r *PostgresRepository) DeleteFile(ctx context.Context, id int32) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
