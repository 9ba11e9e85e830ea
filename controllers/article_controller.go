package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/newspaper/forms"
	"github.com/cppla/newspaper/metrics"
	"github.com/cppla/newspaper/middleware"
	"github.com/cppla/newspaper/models"
	"github.com/cppla/newspaper/utils"
)

const (
	pageArticleList   = "articles/article_list.html"
	pageArticleDetail = "articles/article_detail.html"
	pageArticleNew    = "articles/article_new.html"
)

// ArticleController manages articles and their comments.
type ArticleController struct {
	db *gorm.DB
}

// NewArticleController creates a new ArticleController instance.
func NewArticleController(db *gorm.DB) *ArticleController {
	return &ArticleController{db: db}
}

func (a *ArticleController) withRelations(ctx *gin.Context) *gorm.DB {
	return a.db.WithContext(ctx.Request.Context()).
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("comments.id") }).
		Preload("Comments.Author")
}

// List shows every article with its author and comments.
func (a *ArticleController) List(ctx *gin.Context) {
	var articles []models.Article
	if err := a.withRelations(ctx).Order("articles.id").Find(&articles).Error; err != nil {
		serverError(ctx, "list articles failed", err)
		return
	}
	render(ctx, http.StatusOK, pageArticleList, gin.H{"Articles": articles})
}

// Detail serves the article page on GET and accepts a comment on POST.
func (a *ArticleController) Detail(ctx *gin.Context) {
	switch ctx.Request.Method {
	case http.MethodGet:
		a.detailGet(ctx)
	case http.MethodPost:
		a.detailPost(ctx)
	default:
		middleware.AbortWithPage(ctx, http.StatusMethodNotAllowed)
	}
}

func (a *ArticleController) detailGet(ctx *gin.Context) {
	article, ok := a.loadArticle(ctx)
	if !ok {
		return
	}
	a.renderDetail(ctx, article, &forms.CommentForm{}, nil)
}

// detailPost stores a comment. The article comes from the URL and the author
// from the session; nothing else in the body is read.
func (a *ArticleController) detailPost(ctx *gin.Context) {
	article, ok := a.loadArticle(ctx)
	if !ok {
		return
	}

	var form forms.CommentForm
	_ = ctx.ShouldBind(&form)
	if errs := form.Validate(); errs.Any() {
		a.renderDetail(ctx, article, &form, errs)
		return
	}

	user := middleware.CurrentUser(ctx)
	comment := models.Comment{
		ArticleID: article.ID,
		AuthorID:  user.ID,
		Body:      form.Body,
	}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&comment).Error; err != nil {
		serverError(ctx, "create comment failed", err)
		return
	}

	metrics.CommentsCreatedTotal.Inc()
	utils.RequestLogger(ctx).Info("comment created",
		zap.Uint("comment_id", comment.ID), zap.Uint("article_id", article.ID), zap.Uint("user_id", user.ID))
	utils.RedirectAfterPost(ctx, article.AbsoluteURL())
}

func (a *ArticleController) renderDetail(ctx *gin.Context, article *models.Article, form *forms.CommentForm, errs forms.Errors) {
	data := gin.H{
		"Article":          article,
		"Form":             form,
		"CommentMaxLength": models.CommentMaxLength,
	}
	if errs != nil {
		data["Errors"] = errs
	}
	render(ctx, http.StatusOK, pageArticleDetail, data)
}

// loadArticle resolves :id, rendering 404 for unknown or malformed ids.
func (a *ArticleController) loadArticle(ctx *gin.Context) (*models.Article, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		middleware.AbortWithPage(ctx, http.StatusNotFound)
		return nil, false
	}

	var article models.Article
	if err := a.withRelations(ctx).First(&article, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.AbortWithPage(ctx, http.StatusNotFound)
			return nil, false
		}
		serverError(ctx, "load article failed", err)
		return nil, false
	}
	return &article, true
}

// NewForm renders the empty article form.
func (a *ArticleController) NewForm(ctx *gin.Context) {
	render(ctx, http.StatusOK, pageArticleNew, gin.H{"Form": &forms.ArticleForm{}})
}

// Create publishes an article authored by the current user.
func (a *ArticleController) Create(ctx *gin.Context) {
	var form forms.ArticleForm
	_ = ctx.ShouldBind(&form)
	if errs := form.Validate(); errs.Any() {
		render(ctx, http.StatusOK, pageArticleNew, gin.H{"Form": &form, "Errors": errs})
		return
	}

	user := middleware.CurrentUser(ctx)
	article := models.Article{
		Title:    form.Title,
		Body:     form.Body,
		AuthorID: user.ID,
	}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&article).Error; err != nil {
		serverError(ctx, "create article failed", err)
		return
	}

	metrics.ArticlesCreatedTotal.Inc()
	utils.RequestLogger(ctx).Info("article created", zap.Uint("article_id", article.ID), zap.Uint("user_id", user.ID))
	utils.RedirectAfterPost(ctx, article.AbsoluteURL())
}
