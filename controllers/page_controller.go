package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PageController serves static pages.
type PageController struct{}

func NewPageController() *PageController { return &PageController{} }

// Home is public and greets the logged-in user.
func (p *PageController) Home(ctx *gin.Context) {
	render(ctx, http.StatusOK, "home.html", nil)
}
