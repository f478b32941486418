package internal

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"filedrawer.app/web/internal/database"
	"filedrawer.app/web/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ownedFolder loads the :id folder and checks it belongs to the session user.
// On failure the request is aborted and ok is false.
func (h *Handler) ownedFolder(c *gin.Context) (*database.DBFolder, bool) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		middleware.Fail(c, http.StatusBadRequest, err)
		return nil, false
	}

	folder, found, err := h.Repo.GetFolderByID(c.Request.Context(), id)
	if err != nil {
		middleware.Fail(c, http.StatusInternalServerError, err)
		return nil, false
	}
	user, _ := middleware.CurrentUser(c)
	if !found || user == nil || folder.OwnerID != user.ID {
		middleware.Fail(c, http.StatusNotFound, errFolderNotFound)
		return nil, false
	}
	return folder, true
}

func (h *Handler) CreateFolderForm(c *gin.Context) {
	c.HTML(http.StatusOK, "create-folder.html", FolderFormView{})
}

func (h *Handler) CreateFolder(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var form FolderForm
	if err := c.ShouldBind(&form); err != nil {
		middleware.Fail(c, http.StatusBadRequest, err)
		return
	}
	form.Name = strings.TrimSpace(form.Name)
	if errs := ValidateForm(&form); len(errs) > 0 {
		c.HTML(http.StatusUnprocessableEntity, "create-folder.html", FolderFormView{Name: form.Name, Errors: errs})
		return
	}

	folder, err := h.Repo.CreateFolder(c.Request.Context(), user.ID, form.Name, h.now())
	if err != nil {
		middleware.Fail(c, http.StatusInternalServerError, err)
		return
	}

	h.notifyFolder(user.ID, CommandFolderUpdated, folder.ID)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) UpdateFolderForm(c *gin.Context) {
	folder, ok := h.ownedFolder(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "update-folder.html", FolderFormView{Folder: folder, Name: folder.Name})
}

func (h *Handler) UpdateFolder(c *gin.Context) {
	folder, ok := h.ownedFolder(c)
	if !ok {
		return
	}

	var form FolderForm
	if err := c.ShouldBind(&form); err != nil {
		middleware.Fail(c, http.StatusBadRequest, err)
		return
	}
	form.Name = strings.TrimSpace(form.Name)
	if errs := ValidateForm(&form); len(errs) > 0 {
		c.HTML(http.StatusUnprocessableEntity, "update-folder.html", FolderFormView{Folder: folder, Name: form.Name, Errors: errs})
		return
	}

	err := h.Repo.RenameFolder(c.Request.Context(), folder.ID, form.Name, h.now())
	if errors.Is(err, database.ErrNotFound) {
		middleware.Fail(c, http.StatusNotFound, errFolderNotFound)
		return
	}
	if err != nil {
		middleware.Fail(c, http.StatusInternalServerError, err)
		return
	}

	h.notifyFolder(folder.OwnerID, CommandFolderUpdated, folder.ID)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) DeleteFolder(c *gin.Context) {
	folder, ok := h.ownedFolder(c)
	if !ok {
		return
	}

	unlinkErr, err := h.deleteFolder(c.Request.Context(), folder)
	if unlinkErr != nil {
		h.Logger.Warnf("Folder %d deleted with leftover files: %s", folder.ID, unlinkErr)
	}
	if errors.Is(err, database.ErrNotFound) {
		middleware.Fail(c, http.StatusNotFound, errFolderNotFound)
		return
	}
	if err != nil {
		middleware.Fail(c, http.StatusInternalServerError, err)
		return
	}

	h.notifyFolder(folder.OwnerID, CommandFolderDeleted, folder.ID)
	c.Redirect(http.StatusSeeOther, "/")
}

// deleteFolder unlinks every stored file of the folder and then deletes the
// file rows and the folder row. Unlink failures do not stop the delete; they
// are joined into unlinkErr. Disk and database are not updated atomically, a
// crash in between leaves orphaned files on disk.
func (h *Handler) deleteFolder(ctx context.Context, folder *database.DBFolder) (unlinkErr error, err error) {
	files, err := h.Repo.ListFilesByFolder(ctx, folder.ID)
	if err != nil {
		return nil, err
	}

	var unlinkErrs []error
	for _, file := range files {
		if err := h.Disk.Remove(file.Path); err != nil {
			unlinkErrs = append(unlinkErrs, err)
			continue
		}
		h.Logger.Infof("File %s was deleted from storage", file.Name)
	}

	return errors.Join(unlinkErrs...), h.Repo.DeleteFolder(ctx, folder.ID)
}
