package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorTemplate is shared by every error status; it switches on .Status.
const ErrorTemplate = "errors/error.html"

// AbortWithPage renders the error page for status and stops the chain.
func AbortWithPage(ctx *gin.Context, status int) {
	ctx.HTML(status, ErrorTemplate, gin.H{
		"User":      CurrentUser(ctx),
		"Status":    status,
		"Text":      http.StatusText(status),
		"CSRFToken": CSRFToken(ctx),
	})
	ctx.Abort()
}
