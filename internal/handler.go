package internal

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"filedrawer.app/web/internal/config"
	"filedrawer.app/web/internal/database"
	"filedrawer.app/web/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const duplicateAccountMsg = "An account with these credentials already exists."

var (
	errFolderNotFound = errors.New("folder not found")
	errFileNotFound   = errors.New("file not found")
)

type Handler struct {
	Logger     *logrus.Logger
	Repo       database.Repository
	Disk       *Disk
	Notifier   Notifier
	Production bool
	// socket key -> *socketClient
	WebSockets sync.Map

	cookieDuration int
	upgrader       websocket.Upgrader
	now            func() time.Time
}

func NewHandler(cfg *config.Config, logger *logrus.Logger, repo database.Repository, disk *Disk) *Handler {
	h := &Handler{
		Logger:         logger,
		Repo:           repo,
		Disk:           disk,
		Production:     cfg.Production,
		cookieDuration: int(cfg.CookieDuration.Seconds()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkSameOrigin(cfg.AllowedOrigins),
		},
		now: time.Now,
	}
	if cfg.AdminEmail != "" && cfg.SenderEmail != "" {
		h.Notifier = NewMailNotifier(cfg.SenderEmail, cfg.AdminEmail)
	}
	return h
}

// ValidateSession implements middleware.SessionValidator.
func (h *Handler) ValidateSession(ctx context.Context, userID int32) (*database.DBUser, error) {
	user, found, err := h.Repo.GetUserByID(ctx, userID)
	if err != nil || !found {
		return nil, err
	}
	return user, nil
}

func (h *Handler) Index(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.HTML(http.StatusOK, "index.html", IndexView{})
		return
	}

	folders, err := h.Repo.ListFoldersByOwner(c.Request.Context(), user.ID)
	if err != nil {
		middleware.Fail(c, http.StatusInternalServerError, err)
		return
	}

	c.HTML(http.StatusOK, "index.html", IndexView{
		User:    user,
		Folders: folders,
	})
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.Repo.Ping(ctx); err != nil {
		h.Logger.Warnf("Health check failed: %s", err)
		c.String(http.StatusServiceUnavailable, "unavailable")
		return
	}
	c.String(http.StatusOK, "ok")
}

func (h *Handler) SignupForm(c *gin.Context) {
	c.HTML(http.StatusOK, "sign-up.html", SignupView{})
}

func (h *Handler) Signup(c *gin.Context) {
	var form SignupForm
	if err := c.ShouldBind(&form); err != nil {
		middleware.Fail(c, http.StatusBadRequest, err)
		return
	}
	form.Normalize()

	if errs := ValidateForm(&form); len(errs) > 0 {
		c.HTML(http.StatusUnprocessableEntity, "sign-up.html", SignupView{Form: form.Public(), Errors: errs})
		return
	}

	ctx := c.Request.Context()
	_, found, err := h.Repo.GetUserByUsername(ctx, form.Username)
	if err != nil {
		middleware.Fail(c, http.StatusInternalServerError, err)
		return
	}
	if found {
		h.Logger.Infof("Rejected sign-up for existing username '%s'", form.Username)
		c.HTML(http.StatusConflict, "sign-up.html", SignupView{Form: form.Public(), Errors: []string{duplicateAccountMsg}})
		return
	}

	passwordHash, err := HashPassword(form.Password)
	if err != nil {
		middleware.Fail(c, http.StatusInternalServerError, err)
		return
	}

	user, err := h.Repo.CreateUser(ctx, &database.DBUser{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Username:  form.Username,
		Password:  passwordHash,
	})
	if errors.Is(err, database.ErrDuplicateUsername) {
		// lost a race with a concurrent sign-up
		c.HTML(http.StatusConflict, "sign-up.html", SignupView{Form: form.Public(), Errors: []string{duplicateAccountMsg}})
		return
	}
	if err != nil {
		middleware.Fail(c, http.StatusInternalServerError, err)
		return
	}

	h.Logger.Infof("Created account %d (%s)", user.ID, user.Username)
	if h.Notifier != nil {
		go func() {
			if err := h.Notifier.AccountCreated(user); err != nil {
				h.Logger.Warnf("Failed to send account notification for %s: %s", user.Username, err)
			}
		}()
	}

	c.Redirect(http.StatusSeeOther, "/log-in")
}

func (h *Handler) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "log-in.html", nil)
}

// Login redirects to the index page whether or not the credentials matched.
func (h *Handler) Login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		middleware.Fail(c, http.StatusBadRequest, err)
		return
	}
	form.Normalize()

	user, found, err := h.Repo.GetUserByUsername(c.Request.Context(), form.Username)
	if err != nil {
		middleware.Fail(c, http.StatusInternalServerError, err)
		return
	}
	if !found {
		h.Logger.Warnf("Failed log-in for unknown username '%s'", form.Username)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	match, err := ComparePassword(form.Password, user.Password)
	if err != nil { // Stored hash is unreadable
		middleware.Fail(c, http.StatusInternalServerError, err)
		return
	}
	if !match {
		h.Logger.Warnf("Failed log-in for user %d", user.ID)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	if err := h.createSession(c, user.ID); err != nil {
		middleware.Fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.destroySession(c); err != nil {
		h.Logger.Warnf("Failed to destroy session: %s", err)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func parseID(raw string) (int32, error) {
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id '" + raw + "'")
	}
	return int32(id), nil
}
