package database

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps everything in process memory. It backs
// STORAGE_BACKEND=memory and the handler tests.
type MemoryRepository struct {
	mu sync.Mutex

	users   map[int32]DBUser
	folders map[int32]DBFolder
	files   map[int32]DBFile

	nextUserID   int32
	nextFolderID int32
	nextFileID   int32

	now func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   map[int32]DBUser{},
		folders: map[int32]DBFolder{},
		files:   map[int32]DBFile{},
		now:     time.Now,
	}
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *MemoryRepository) CreateUser(ctx context.Context, user *DBUser) (*DBUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, ErrDuplicateUsername
		}
	}
	r.nextUserID++
	created := *user
	created.ID = r.nextUserID
	created.CreatedAt = r.now()
	r.users[created.ID] = created
	return &created, nil
}

func (r *MemoryRepository) GetUserByUsername(ctx context.Context, username string) (*DBUser, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == username {
			return &u, true, nil
		}
	}
	return nil, false, nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id int32) (*DBUser, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, false, nil
	}
	return &u, true, nil
}

func (r *MemoryRepository) CreateFolder(ctx context.Context, ownerID int32, name string, at time.Time) (*DBFolder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[ownerID]; !ok {
		return nil, ErrNotFound
	}
	r.nextFolderID++
	folder := DBFolder{
		ID:         r.nextFolderID,
		Name:       name,
		OwnerID:    ownerID,
		CreatedAt:  at,
		ModifiedAt: at,
	}
	r.folders[folder.ID] = folder
	return &folder, nil
}

func (r *MemoryRepository) GetFolderByID(ctx context.Context, id int32) (*DBFolder, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	folder, ok := r.folders[id]
	if !ok {
		return nil, false, nil
	}
	return &folder, true, nil
}

func (r *MemoryRepository) ListFoldersByOwner(ctx context.Context, ownerID int32) ([]DBFolder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := map[int32]int{}
	for _, f := range r.files {
		counts[f.FolderID]++
	}

	folders := []DBFolder{}
	for _, folder := range r.folders {
		if folder.OwnerID != ownerID {
			continue
		}
		folder.FileCount = counts[folder.ID]
		folders = append(folders, folder)
	}
	sort.Slice(folders, func(i, j int) bool {
		if folders[i].Name != folders[j].Name {
			return folders[i].Name < folders[j].Name
		}
		return folders[i].ID < folders[j].ID
	})
	return folders, nil
}

func (r *MemoryRepository) RenameFolder(ctx context.Context, id int32, name string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	folder, ok := r.folders[id]
	if !ok {
		return ErrNotFound
	}
	folder.Name = name
	folder.ModifiedAt = at
	r.folders[id] = folder
	return nil
}

func (r *MemoryRepository) TouchFolder(ctx context.Context, id int32, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	folder, ok := r.folders[id]
	if !ok {
		return ErrNotFound
	}
	folder.ModifiedAt = at
	r.folders[id] = folder
	return nil
}

func (r *MemoryRepository) DeleteFolder(ctx context.Context, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.folders[id]; !ok {
		return ErrNotFound
	}
	for fileID, f := range r.files {
		if f.FolderID == id {
			delete(r.files, fileID)
		}
	}
	delete(r.folders, id)
	return nil
}

func (r *MemoryRepository) CreateFile(ctx context.Context, file *DBFile) (*DBFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.folders[file.FolderID]; !ok {
		return nil, ErrNotFound
	}
	r.nextFileID++
	created := *file
	created.ID = r.nextFileID
	created.CreatedAt = r.now()
	r.files[created.ID] = created
	return &created, nil
}

func (r *MemoryRepository) GetFileByID(ctx context.Context, id int32) (*DBFile, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[id]
	if !ok {
		return nil, false, nil
	}
	return &f, true, nil
}

func (r *MemoryRepository) ListFilesByFolder(ctx context.Context, folderID int32) ([]DBFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	files := []DBFile{}
	for _, f := range r.files {
		if f.FolderID == folderID {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files, nil
}

func (r *MemoryRepository) DeleteFile(ctx context.Context, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[id]; !ok {
		return ErrNotFound
	}
	delete(r.files, id)
	return nil
}
