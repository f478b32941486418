package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"filedrawer.app/web/internal/database"
	"filedrawer.app/web/internal/middleware"
	"github.com/gin-gonic/gin"
)

const uploadField = "uploadFile"

// ownedFile loads :fileId and checks it sits in the caller's :id folder.
func (h *Handler) ownedFile(c *gin.Context) (*database.DBFolder, *database.DBFile, bool) {
	folder, ok := h.ownedFolder(c)
	if !ok {
		return nil, nil, false
	}

	fileID, err := parseID(c.Param("fileId"))
	if err != nil {
		middleware.Fail(c, http.StatusBadRequest, err)
		return nil, nil, false
	}

	file, found, err := h.Repo.GetFileByID(c.Request.Context(), fileID)
	if err != nil {
		middleware.Fail(c, http.StatusInternalServerError, err)
		return nil, nil, false
	}
	if !found || file.FolderID != folder.ID {
		middleware.Fail(c, http.StatusNotFound, errFileNotFound)
		return nil, nil, false
	}
	return folder, file, true
}

// touchFolder bumps the folder's modified time. The file change is already
// stored by then, so a failure is only logged.
func (h *Handler) touchFolder(ctx context.Context, folderID int32) {
	if err := h.Repo.TouchFolder(ctx, folderID, h.now()); err != nil {
		h.Logger.Warnf("Folder %d: failed to update modified time: %s", folderID, err)
	}
}

func filesURL(folderID int32) string {
	return fmt.Sprintf("/folders/%d/files", folderID)
}

func (h *Handler) ListFiles(c *gin.Context) {
	folder, ok := h.ownedFolder(c)
	if !ok {
		return
	}

	files, err := h.Repo.ListFilesByFolder(c.Request.Context(), folder.ID)
	if err != nil {
		middleware.Fail(c, http.StatusInternalServerError, err)
		return
	}

	view := FilesView{
		Folder: folder,
		Files:  make([]FileView, 0, len(files)),
	}
	view.User, _ = middleware.CurrentUser(c)
	for _, f := range files {
		view.Files = append(view.Files, FileView{DBFile: f, HumanSize: FormatSize(f.Size)})
	}

	c.HTML(http.StatusOK, "files.html", view)
}

func (h *Handler) UploadFile(c *gin.Context) {
	folder, ok := h.ownedFolder(c)
	if !ok {
		return
	}

	upload, err := c.FormFile(uploadField)
	if err != nil {
		middleware.Fail(c, http.StatusBadRequest, fmt.Errorf("no file in '%s': %w", uploadField, err))
		return
	}

	name := GenerateFileName(upload.Filename, h.now())
	path := h.Disk.Path(name)
	if err := c.SaveUploadedFile(upload, path); err != nil {
		middleware.Fail(c, http.StatusInternalServerError, err)
		return
	}
	middleware.FileBytes.WithLabelValues("upload").Add(float64(upload.Size))

	ctx := c.Request.Context()
	_, err = h.Repo.CreateFile(ctx, &database.DBFile{
		Name:     name,
		Size:     upload.Size,
		Path:     path,
		FolderID: folder.ID,
	})
	if err != nil {
		if rmErr := h.Disk.Remove(path); rmErr != nil {
			h.Logger.Warnf("Failed to clean up upload after insert error: %s", rmErr)
		}
		middleware.Fail(c, http.StatusInternalServerError, err)
		return
	}

	h.touchFolder(ctx, folder.ID)

	h.notifyFolder(folder.OwnerID, CommandFolderUpdated, folder.ID)
	c.Redirect(http.StatusSeeOther, filesURL(folder.ID))
}

func (h *Handler) DeleteFile(c *gin.Context) {
	folder, file, ok := h.ownedFile(c)
	if !ok {
		return
	}

	// the row goes even when the disk copy cannot be removed
	if err := h.Disk.Remove(file.Path); err != nil {
		h.Logger.Warnf("File %d: %s", file.ID, err)
	} else {
		h.Logger.Infof("File %s was deleted from storage", file.Name)
	}

	ctx := c.Request.Context()
	err := h.Repo.DeleteFile(ctx, file.ID)
	if errors.Is(err, database.ErrNotFound) {
		middleware.Fail(c, http.StatusNotFound, errFileNotFound)
		return
	}
	if err != nil {
		middleware.Fail(c, http.StatusInternalServerError, err)
		return
	}

	h.touchFolder(ctx, folder.ID)

	h.notifyFolder(folder.OwnerID, CommandFolderUpdated, folder.ID)
	c.Redirect(http.StatusSeeOther, filesURL(folder.ID))
}

func (h *Handler) DownloadFile(c *gin.Context) {
	_, file, ok := h.ownedFile(c)
	if !ok {
		return
	}

	if !h.Disk.Exists(file.Path) {
		middleware.Fail(c, http.StatusNotFound, fmt.Errorf("file %d is missing from storage", file.ID))
		return
	}

	middleware.FileBytes.WithLabelValues("download").Add(float64(file.Size))
	// Read file from disk and write to response (handles partial-content/range requests)
	c.FileAttachment(file.Path, file.Name)
}
