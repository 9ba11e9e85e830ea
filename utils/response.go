package utils

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for machine-readable responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// RedirectAfterPost answers a successful state-changing form submission.
func RedirectAfterPost(ctx *gin.Context, location string) {
	ctx.Redirect(http.StatusFound, location)
}

// LoginURL builds the login redirect for next, keeping slashes readable.
func LoginURL(loginPath, next string) string {
	if next == "" {
		return loginPath
	}
	return loginPath + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// SafeNext accepts only local absolute paths as post-login destinations.
func SafeNext(next string) (string, bool) {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "", false
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	return next, true
}
