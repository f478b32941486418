package middleware

import (
	"context"
	"net/http"

	"filedrawer.app/web/internal/database"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	// SessionUserKey is the session value holding the logged in user's id.
	SessionUserKey = "id"

	userKey = "user"
)

// SessionValidator resolves the user behind a session. A nil user with a nil
// error means the session refers to an account that no longer exists.
type SessionValidator interface {
	ValidateSession(ctx context.Context, userID int32) (*database.DBUser, error)
}

// Authenticate loads the session user, if any, onto the gin context. It never
// rejects a request by itself; Protected does that for the routes that need it.
func Authenticate(validator SessionValidator, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(SessionUserKey).(int32)
		if !ok {
			c.Next()
			return
		}

		user, err := validator.ValidateSession(c.Request.Context(), userID)
		if err != nil {
			Fail(c, http.StatusInternalServerError, err)
			return
		}
		if user == nil {
			logger.Warnf("Dropping session for unknown user %d", userID)
			session.Clear()
			if err := session.Save(); err != nil {
				logger.Errorf("Failed to clear session: %s", err)
			}
			c.Next()
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// Protected redirects anonymous visitors to the log-in form.
func Protected(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.Redirect(http.StatusSeeOther, "/log-in")
			c.Abort()
			return
		}

		next(c)
	}
}

// CurrentUser returns the user loaded by Authenticate.
func CurrentUser(c *gin.Context) (*database.DBUser, bool) {
	value, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*database.DBUser)
	return user, ok && user != nil
}
