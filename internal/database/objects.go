package database

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateUsername = errors.New("username already taken")
)

type DBUser struct {
	ID        int32
	FirstName string
	LastName  string
	Username  string
	Password  string
	CreatedAt time.Time
}

type DBFolder struct {
	ID         int32
	Name       string
	OwnerID    int32
	CreatedAt  time.Time
	ModifiedAt time.Time
	// FileCount is only populated by ListFoldersByOwner
	FileCount int
}

type DBFile struct {
	ID        int32
	Name      string
	Size      int64
	Path      string
	FolderID  int32
	CreatedAt time.Time
}

// Repository is the typed persistence surface used by the HTTP handlers.
// Lookups report a missing row through the bool result; mutations on a
// missing row return ErrNotFound.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *DBUser) (*DBUser, error)
	GetUserByUsername(ctx context.Context, username string) (*DBUser, bool, error)
	GetUserByID(ctx context.Context, id int32) (*DBUser, bool, error)

	CreateFolder(ctx context.Context, ownerID int32, name string, at time.Time) (*DBFolder, error)
	GetFolderByID(ctx context.Context, id int32) (*DBFolder, bool, error)
	ListFoldersByOwner(ctx context.Context, ownerID int32) ([]DBFolder, error)
	RenameFolder(ctx context.Context, id int32, name string, at time.Time) error
	TouchFolder(ctx context.Context, id int32, at time.Time) error
	// DeleteFolder removes every file row of the folder and then the folder row.
	DeleteFolder(ctx context.Context, id int32) error

	CreateFile(ctx context.Context, file *DBFile) (*DBFile, error)
	GetFileByID(ctx context.Context, id int32) (*DBFile, bool, error)
	ListFilesByFolder(ctx context.Context, folderID int32) ([]DBFile, error)
	DeleteFile(ctx context.Context, id int32) error
}
