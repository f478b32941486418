package middleware

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"filedrawer.app/web/internal/database"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	users map[int32]*database.DBUser
	err   error
}

func (f *fakeValidator) ValidateSession(ctx context.Context, userID int32) (*database.DBUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[userID], nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Out = io.Discard
	return logger
}

// newTestRouter wires the session, error and auth middleware. GET /login-as
// puts user id 1 into the session.
func newTestRouter(v SessionValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := quietLogger()

	router := gin.New()
	router.SetHTMLTemplate(template.Must(template.New("error.html").Parse(`{{.Status}}: {{.Message}}`)))
	router.Use(ErrorHandler(logger))
	router.Use(sessions.Sessions("test", cookie.NewStore([]byte("secret"))))
	router.Use(Authenticate(v, logger))

	router.GET("/login-as", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(SessionUserKey, int32(1))
		if err := session.Save(); err != nil {
			Fail(c, http.StatusInternalServerError, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/private", Protected(func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.String(http.StatusOK, user.Username)
	}))
	router.GET("/fail", func(c *gin.Context) {
		Fail(c, http.StatusNotFound, errors.New("folder not found"))
	})
	router.GET("/crash", func(c *gin.Context) {
		Fail(c, http.StatusInternalServerError, errors.New("db password leaked"))
	})
	return router
}

func sessionCookie(t *testing.T, router *gin.Engine) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login-as", nil))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func TestProtected_RedirectsAnonymous(t *testing.T) {
	router := newTestRouter(&fakeValidator{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/log-in", w.Header().Get("Location"))
}

func TestProtected_AllowsSessionUser(t *testing.T) {
	router := newTestRouter(&fakeValidator{users: map[int32]*database.DBUser{1: {ID: 1, Username: "alice"}}})
	cookie := sessionCookie(t, router)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
}

func TestAuthenticate_UnknownUserIsAnonymous(t *testing.T) {
	router := newTestRouter(&fakeValidator{users: map[int32]*database.DBUser{}})
	cookie := sessionCookie(t, router)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestAuthenticate_ValidatorError(t *testing.T) {
	v := &fakeValidator{}
	router := newTestRouter(v)
	cookie := sessionCookie(t, router)
	v.err = errors.New("db down")

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestErrorHandler_RendersStatusAndMessage(t *testing.T) {
	router := newTestRouter(&fakeValidator{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "404: folder not found", w.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/crash", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "leaked")
}

func TestMetricsHandler_RequiresPassword(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/metrics", MetricsHandler("hunter22"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("metrics", "hunter22")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	_, err := RateLimiter("lots")
	assert.Error(t, err)

	limit, err := RateLimiter("2-M")
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/log-in", limit, func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/log-in", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
