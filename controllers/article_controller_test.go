package controllers_test

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/newspaper/metrics"
	"github.com/cppla/newspaper/models"
)

func comments(t *testing.T, app *testApp) []models.Comment {
	t.Helper()
	var out []models.Comment
	require.NoError(t, app.db.Order("id").Find(&out).Error)
	return out
}

func TestArticleList_RequiresLogin(t *testing.T) {
	app := newTestApp(t)
	w := app.client().get("/articles/")

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/accounts/login?next=/articles/", w.Header().Get("Location"))
}

func TestArticleList_ShowsArticlesAndComments(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice")
	bob := app.createUser("bob")
	first := app.createArticle(alice, "First story")
	app.createArticle(bob, "Second story")
	require.NoError(t, app.db.Create(&models.Comment{ArticleID: first.ID, AuthorID: bob.ID, Body: "great read"}).Error)

	c := app.client()
	c.login("alice")
	w := c.get("/articles/")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "First story")
	assert.Contains(t, body, "Second story")
	assert.Contains(t, body, "great read")
	assert.Contains(t, body, fmt.Sprintf(`href="/articles/details/%d"`, first.ID))
	assert.Less(t, strings.Index(body, "First story"), strings.Index(body, "Second story"))
}

func TestArticleDetail_Get(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice")
	art := app.createArticle(alice, "Hello world")

	c := app.client()
	c.login("alice")
	w := c.get(art.AbsoluteURL())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hello world")
	assert.Contains(t, w.Body.String(), `name="body"`)
	assert.Contains(t, w.Body.String(), "No comments yet.")
}

func TestArticleDetail_NotFound(t *testing.T) {
	app := newTestApp(t)
	app.createUser("alice")
	c := app.client()
	c.login("alice")

	for _, path := range []string{"/articles/details/999", "/articles/details/abc", "/articles/details/0"} {
		assert.Equal(t, http.StatusNotFound, c.get(path).Code, path)
	}
	assert.Equal(t, http.StatusNotFound, c.post("/articles/details/999", url.Values{"body": {"hi"}}).Code)
	assert.Empty(t, comments(t, app))
}

func TestArticleDetail_AnonymousRedirect(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice")
	art := app.createArticle(alice, "Hello")
	c := app.client()

	w := c.get(art.AbsoluteURL())
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/accounts/login?next="+art.AbsoluteURL(), w.Header().Get("Location"))

	w = c.post(art.AbsoluteURL(), url.Values{"body": {"sneaky"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Empty(t, comments(t, app))
}

func TestArticleDetail_PostComment(t *testing.T) {
	app := newTestApp(t)
	author := app.createUser("writer")
	reader := app.createUser("reader")
	art := app.createArticle(author, "Breaking")
	decoy := app.createArticle(author, "Decoy")
	before := testutil.ToFloat64(metrics.CommentsCreatedTotal)

	c := app.client()
	c.login("reader")
	w := c.post(art.AbsoluteURL(), url.Values{
		"body":       {"nice post"},
		"article":    {fmt.Sprint(decoy.ID)},
		"article_id": {fmt.Sprint(decoy.ID)},
		"author":     {fmt.Sprint(author.ID)},
		"author_id":  {fmt.Sprint(author.ID)},
	})

	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, art.AbsoluteURL(), w.Header().Get("Location"))

	got := comments(t, app)
	require.Len(t, got, 1)
	assert.Equal(t, "nice post", got[0].Body)
	assert.Equal(t, art.ID, got[0].ArticleID)
	assert.Equal(t, reader.ID, got[0].AuthorID)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CommentsCreatedTotal))

	page := c.get(art.AbsoluteURL()).Body.String()
	assert.Contains(t, page, "reader")
	assert.Contains(t, page, "nice post")
}

func TestArticleDetail_InvalidComment(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice")
	art := app.createArticle(alice, "Hello")
	c := app.client()
	c.login("alice")

	w := c.post(art.AbsoluteURL(), url.Values{"body": {"   "}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")
	assert.Contains(t, w.Body.String(), "Hello")

	w = c.post(art.AbsoluteURL(), url.Values{"body": {strings.Repeat("x", models.CommentMaxLength+1)}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ensure this value has at most 140 characters (it has 141).")

	assert.Empty(t, comments(t, app))
}

func TestArticleNew(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice")
	other := app.createUser("other")
	c := app.client()
	c.login("alice")

	assert.Equal(t, http.StatusOK, c.get("/articles/new").Code)

	w := c.post("/articles/new", url.Values{"title": {""}, "body": {"text"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This field is required.")

	w = c.post("/articles/new", url.Values{
		"title":     {"Fresh news"},
		"body":      {"<p>Story</p>"},
		"author_id": {fmt.Sprint(other.ID)},
	})
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	var art models.Article
	require.NoError(t, app.db.Where("title = ?", "Fresh news").First(&art).Error)
	assert.Equal(t, alice.ID, art.AuthorID)
	assert.Equal(t, art.AbsoluteURL(), w.Header().Get("Location"))
	assert.False(t, art.Date.IsZero())
}

func TestArticleNew_RequiresLogin(t *testing.T) {
	app := newTestApp(t)
	w := app.client().post("/articles/new", url.Values{"title": {"x"}, "body": {"y"}})

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/accounts/login?next=/articles/new", w.Header().Get("Location"))
}

func TestArticleDetail_PostWithoutCSRFToken(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice")
	art := app.createArticle(alice, "Hello")
	c := app.client()
	c.login("alice")

	w := c.postWithoutToken(art.AbsoluteURL(), url.Values{"body": {"forged"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, comments(t, app))
}

func TestArticleDetail_OtherMethodsNotAllowed(t *testing.T) {
	app := newTestApp(t)
	alice := app.createUser("alice")
	art := app.createArticle(alice, "Hello")
	c := app.client()
	c.login("alice")

	for _, method := range []string{http.MethodHead, http.MethodPut, http.MethodDelete} {
		w := c.do(method, art.AbsoluteURL(), nil, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
	}
}
