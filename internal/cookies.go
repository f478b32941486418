package internal

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"filedrawer.app/web/internal/config"
	"filedrawer.app/web/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-contrib/sessions/postgres"
	"github.com/gin-gonic/gin"
)

const SessionName = "filedrawer"

// NewSessionStore creates the session backend named by SESSION_STORE. The
// postgres store persists sessions in the http_sessions table so they survive
// restarts; the cookie store keeps the whole session in the signed cookie.
func NewSessionStore(cfg *config.Config, db *sql.DB) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.SessionStore {
	case config.SessionStorePostgres:
		if db == nil {
			return nil, errors.New("postgres session store needs a database connection")
		}
		pgStore, err := postgres.NewStore(db, []byte(cfg.Secret))
		if err != nil {
			return nil, err
		}
		store = pgStore
	default:
		store = cookie.NewStore([]byte(cfg.Secret))
	}

	store.Options(sessionOptions(cfg.Production, int(cfg.CookieDuration.Seconds())))
	return store, nil
}

// sessionCleaner is implemented by stores that keep sessions server side and
// can delete expired rows, such as the postgres store.
type sessionCleaner interface {
	Cleanup(interval time.Duration) (chan<- struct{}, <-chan struct{})
	StopCleanup(quit chan<- struct{}, done <-chan struct{})
}

// StartSessionCleanup deletes expired sessions every interval until the
// returned stop func is called. ok is false for stores that need no pruning,
// like the cookie store.
func StartSessionCleanup(store sessions.Store, interval time.Duration) (stop func(), ok bool) {
	cleaner, ok := store.(sessionCleaner)
	if !ok {
		return func() {}, false
	}
	quit, done := cleaner.Cleanup(interval)
	return func() { cleaner.StopCleanup(quit, done) }, true
}

// InitCors creates cors middleware for the configured origins, nil when none are set
func InitCors(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return nil
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowCredentials: true,
		AllowHeaders:     []string{"content-type"},
		MaxAge:           12 * time.Hour,
	})
}

func sessionOptions(secure bool, maxAge int) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   secure, // HTTPS only in production
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode, // log-in form posts then redirects
	}
}

// createSession stores the user id in the session and writes the Set-Cookie header
func (h *Handler) createSession(c *gin.Context, id int32) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessionOptions(h.Production, h.cookieDuration))
	session.Set(middleware.SessionUserKey, id)
	return session.Save()
}

// destroySession expires the session cookie and drops the stored values
func (h *Handler) destroySession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessionOptions(h.Production, -1))
	return session.Save()
}
