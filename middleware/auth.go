package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/newspaper/config"
	"github.com/cppla/newspaper/models"
	"github.com/cppla/newspaper/utils"
)

const (
	// ContextUserKey holds the authenticated *models.User.
	ContextUserKey = "user"
	// ContextSessionKey holds the *utils.Session backing the request.
	ContextSessionKey = "session"

	// LoginPath is where anonymous visitors of protected pages are sent.
	LoginPath = "/accounts/login"
)

// SessionManager binds browsers to users through a signed cookie and a server-side store.
type SessionManager struct {
	db     *gorm.DB
	store  utils.SessionStore
	secret string
	cookie string
	maxAge time.Duration
	secure bool
}

// NewSessionManager creates a manager using the cookie settings from cfg.
func NewSessionManager(db *gorm.DB, store utils.SessionStore, cfg config.AppConfig) *SessionManager {
	return &SessionManager{
		db:     db,
		store:  store,
		secret: cfg.SecretKey,
		cookie: cfg.SessionCookieName,
		maxAge: cfg.SessionMaxAge,
		secure: cfg.SessionSecure,
	}
}

// Load resolves the session cookie into the current user. Any failure leaves the
// request anonymous; sessions that no longer match their user are deleted.
func (m *SessionManager) Load() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if sess, user := m.resolve(ctx); user != nil {
			ctx.Set(ContextSessionKey, sess)
			ctx.Set(ContextUserKey, user)
		}
		ctx.Next()
	}
}

func (m *SessionManager) resolve(ctx *gin.Context) (*utils.Session, *models.User) {
	raw, err := ctx.Cookie(m.cookie)
	if err != nil || raw == "" {
		return nil, nil
	}
	id, err := utils.ParseSessionID(m.secret, raw)
	if err != nil {
		return nil, nil
	}

	rctx := ctx.Request.Context()
	sess, err := m.store.Get(rctx, id)
	if err != nil {
		if !errors.Is(err, utils.ErrSessionNotFound) {
			utils.RequestLogger(ctx).Warn("session lookup failed", zap.Error(err))
		}
		return nil, nil
	}

	var user models.User
	err = m.db.WithContext(rctx).First(&user, sess.UserID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RequestLogger(ctx).Error("session user lookup failed", zap.Error(err))
		return nil, nil
	}
	if err != nil || !user.IsActive || sess.AuthHash != utils.SessionAuthHash(m.secret, user.PasswordHash) {
		_ = m.store.Delete(rctx, sess.ID)
		return nil, nil
	}
	return sess, &user
}

// Login replaces whatever session the browser had with a fresh one for user.
func (m *SessionManager) Login(ctx *gin.Context, user *models.User) error {
	rctx := ctx.Request.Context()
	if err := m.dropCurrent(rctx, ctx); err != nil {
		return err
	}

	sess := utils.NewSession(user.ID, utils.SessionAuthHash(m.secret, user.PasswordHash), m.maxAge)
	if err := m.store.Save(rctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	token, err := utils.SignSessionID(m.secret, sess.ID, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	m.setCookie(ctx, token, int(m.maxAge/time.Second))

	ctx.Set(ContextSessionKey, sess)
	ctx.Set(ContextUserKey, user)
	return nil
}

// Logout deletes the current session and expires the cookie.
func (m *SessionManager) Logout(ctx *gin.Context) error {
	err := m.dropCurrent(ctx.Request.Context(), ctx)
	m.setCookie(ctx, "", -1)
	ctx.Set(ContextSessionKey, nil)
	ctx.Set(ContextUserKey, nil)
	return err
}

// RefreshAuthHash keeps the current session valid after user's password changed.
// Other sessions of the user keep the old hash and stop resolving.
func (m *SessionManager) RefreshAuthHash(ctx *gin.Context, user *models.User) error {
	sess := CurrentSession(ctx)
	if sess == nil {
		return nil
	}
	sess.AuthHash = utils.SessionAuthHash(m.secret, user.PasswordHash)
	if err := m.store.Save(ctx.Request.Context(), sess); err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	return nil
}

// dropCurrent deletes the session named by the request cookie, even one Load rejected.
func (m *SessionManager) dropCurrent(rctx context.Context, ctx *gin.Context) error {
	if sess := CurrentSession(ctx); sess != nil {
		return m.store.Delete(rctx, sess.ID)
	}
	if raw, err := ctx.Cookie(m.cookie); err == nil && raw != "" {
		if id, err := utils.ParseSessionID(m.secret, raw); err == nil {
			return m.store.Delete(rctx, id)
		}
	}
	return nil
}

func (m *SessionManager) setCookie(ctx *gin.Context, value string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(m.cookie, value, maxAge, "/", "", m.secure, true)
}

// CurrentUser returns the authenticated user or nil for anonymous requests.
func CurrentUser(ctx *gin.Context) *models.User {
	if v, ok := ctx.Get(ContextUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// CurrentSession returns the session backing the request, if any.
func CurrentSession(ctx *gin.Context) *utils.Session {
	if v, ok := ctx.Get(ContextSessionKey); ok {
		if s, ok := v.(*utils.Session); ok {
			return s
		}
	}
	return nil
}

// LoginRequired redirects anonymous visitors to the login page with the requested path as next.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if CurrentUser(ctx) == nil {
			ctx.Redirect(http.StatusFound, utils.LoginURL(LoginPath, ctx.Request.URL.RequestURI()))
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// AnonymousOnly answers 403 to authenticated users.
func AnonymousOnly() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if CurrentUser(ctx) != nil {
			AbortWithPage(ctx, http.StatusForbidden)
			return
		}
		ctx.Next()
	}
}
