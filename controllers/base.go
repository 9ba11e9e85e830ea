package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/newspaper/forms"
	"github.com/cppla/newspaper/middleware"
	"github.com/cppla/newspaper/utils"
)

// render writes page with the current user, the csrf token and an empty error set unless data provides one.
func render(ctx *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["User"] = middleware.CurrentUser(ctx)
	data["CSRFToken"] = middleware.CSRFToken(ctx)
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = forms.Errors{}
	}
	ctx.HTML(status, page, data)
}

// serverError logs err against the request and renders the 500 page.
func serverError(ctx *gin.Context, msg string, err error) {
	utils.RequestLogger(ctx).Error(msg, zap.Error(err), zap.String("path", ctx.Request.URL.Path))
	middleware.AbortWithPage(ctx, http.StatusInternalServerError)
}
