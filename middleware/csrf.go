package middleware

import (
	"context"
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/cppla/newspaper/config"
	"github.com/cppla/newspaper/utils"
)

const (
	// CSRFFieldName is the hidden form field carrying the token.
	CSRFFieldName = "csrfmiddlewaretoken"
	// CSRFHeaderName may carry the token instead of the form field.
	CSRFHeaderName = "X-CSRF-Token"
	// CSRFCookieName holds the unmasked token.
	CSRFCookieName = "csrftoken"

	contextCSRFKey = "csrf_token"
)

type csrfFailureKey struct{}

// CSRF rejects POST and other unsafe requests whose token does not match the
// csrftoken cookie, and exposes a fresh token to templates via CSRFToken.
// Unsafe requests that match no route are left to the 404/405 handlers.
func CSRF(cfg config.AppConfig) gin.HandlerFunc {
	key := sha256.Sum256([]byte("newspaper.csrf:" + cfg.SecretKey))
	protect := csrf.Protect(key[:],
		csrf.CookieName(CSRFCookieName),
		csrf.FieldName(CSRFFieldName),
		csrf.RequestHeader(CSRFHeaderName),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.Secure(cfg.SessionSecure),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.MaxAge(int((365 * 24 * time.Hour).Seconds())),
		csrf.ErrorHandler(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			if reason, ok := r.Context().Value(csrfFailureKey{}).(*error); ok {
				*reason = csrf.FailureReason(r)
			}
		})),
	)

	return func(ctx *gin.Context) {
		if ctx.FullPath() == "" && !isSafeMethod(ctx.Request.Method) {
			ctx.Next()
			return
		}

		var reason error
		r := ctx.Request.WithContext(context.WithValue(ctx.Request.Context(), csrfFailureKey{}, &reason))
		if !cfg.SessionSecure {
			// plain HTTP deployments have no Referer guarantee
			r = csrf.PlaintextHTTPRequest(r)
		}

		passed := false
		protect(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			ctx.Request = r
			ctx.Set(contextCSRFKey, csrf.Token(r))
			ctx.Next()
		})).ServeHTTP(ctx.Writer, r)

		if !passed {
			utils.RequestLogger(ctx).Warn("csrf check failed",
				zap.String("path", ctx.Request.URL.Path),
				zap.NamedError("reason", reason),
			)
			AbortWithPage(ctx, http.StatusForbidden)
		}
	}
}

// CSRFToken returns the token for the forms rendered in this request.
func CSRFToken(ctx *gin.Context) string {
	return ctx.GetString(contextCSRFKey)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
