package controllers_test

import (
	"context"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/newspaper/config"
	"github.com/cppla/newspaper/middleware"
	"github.com/cppla/newspaper/models"
	"github.com/cppla/newspaper/routes"
	"github.com/cppla/newspaper/utils"
)

const testPassword = "Old_Pass_123"

type testApp struct {
	t      *testing.T
	cfg    config.AppConfig
	db     *gorm.DB
	store  *utils.MemorySessionStore
	router *gin.Engine
}

func newTestApp(t *testing.T, opts ...func(*routes.Deps)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.AppConfig{
		SecretKey:         "test-secret",
		DBDriver:          "sqlite",
		DatabaseURI:       "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		SessionCookieName: "sessionid",
		SessionMaxAge:     time.Hour,
		GinMode:           "test",
		LogLevel:          "silent",
		AllowedOrigins:    []string{"*"},
	}
	db, err := config.OpenDatabase(cfg, models.All()...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := utils.NewMemorySessionStore()
	deps := routes.Deps{
		Config:    cfg,
		DB:        db,
		Sessions:  store,
		AccessLog: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testApp{t: t, cfg: deps.Config, db: db, store: store, router: routes.SetupRouter(deps)}
}

func (a *testApp) createUser(username string) *models.User {
	a.t.Helper()
	hash, err := utils.HashPassword(testPassword)
	require.NoError(a.t, err)
	u := models.NewUser(username, username+"@example.com", hash)
	require.NoError(a.t, a.db.Create(u).Error)
	return u
}

func (a *testApp) createArticle(author *models.User, title string) *models.Article {
	a.t.Helper()
	art := &models.Article{Title: title, Body: "Body of " + title, AuthorID: author.ID}
	require.NoError(a.t, a.db.Create(art).Error)
	return art
}

func (a *testApp) reloadUser(id uint) models.User {
	a.t.Helper()
	var u models.User
	require.NoError(a.t, a.db.First(&u, id).Error)
	return u
}

func (a *testApp) sessionCount() int {
	a.t.Helper()
	n, err := a.store.Count(context.Background())
	require.NoError(a.t, err)
	return n
}

var csrfFieldPattern = regexp.MustCompile(`name="` + middleware.CSRFFieldName + `" value="([^"]*)"`)

// client is a browser: it keeps the cookies the server sets and sends the
// csrf token with every post.
type client struct {
	app     *testApp
	cookies map[string]*http.Cookie
	token   string
}

func (a *testApp) client() *client {
	return &client{app: a, cookies: map[string]*http.Cookie{}}
}

// clone copies the cookie jar, like a second tab kept open on an old session.
func (c *client) clone() *client {
	cp := c.app.client()
	for k, v := range c.cookies {
		cp.cookies[k] = v
	}
	cp.token = c.token
	return cp
}

func (c *client) do(method, path string, form url.Values, header http.Header) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	c.app.router.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return w
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, path, nil, nil)
}

// csrfToken reads the token from the login form the first time it is needed.
func (c *client) csrfToken() string {
	c.app.t.Helper()
	if c.token == "" || c.cookies[middleware.CSRFCookieName] == nil {
		w := c.get("/accounts/login")
		m := csrfFieldPattern.FindStringSubmatch(w.Body.String())
		require.Len(c.app.t, m, 2, "login form has no csrf field")
		c.token = html.UnescapeString(m[1])
	}
	return c.token
}

func (c *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return c.do(http.MethodPost, path, form, http.Header{middleware.CSRFHeaderName: {c.csrfToken()}})
}

// postWithoutToken submits form like a cross-site page would.
func (c *client) postWithoutToken(path string, form url.Values) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, path, form, nil)
}

func (c *client) login(username string) {
	c.app.t.Helper()
	w := c.post("/accounts/login", url.Values{"username": {username}, "password": {testPassword}})
	require.Equal(c.app.t, http.StatusFound, w.Code, w.Body.String())
}
