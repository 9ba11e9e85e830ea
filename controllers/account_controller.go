package controllers

import (
	"errors"
	"html/template"
	"net/http"
	"time"

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
	pageSignup             = "registration/signup.html"
	pageLogin              = "registration/login.html"
	pagePasswordChange     = "registration/password_change_form.html"
	pagePasswordChangeDone = "registration/password_change_done.html"

	passwordChangeDonePath = "/accounts/password_change/done"
)

// AccountController handles signup, login, logout and password change.
type AccountController struct {
	db       *gorm.DB
	sessions *middleware.SessionManager
	throttle *utils.SignupThrottle
	captcha  *utils.Captcha
}

// NewAccountController creates a new AccountController instance. throttle and captcha may be nil.
func NewAccountController(db *gorm.DB, sessions *middleware.SessionManager, throttle *utils.SignupThrottle, captcha *utils.Captcha) *AccountController {
	return &AccountController{db: db, sessions: sessions, throttle: throttle, captcha: captcha}
}

// SignupForm renders the empty signup form.
func (a *AccountController) SignupForm(ctx *gin.Context) {
	a.renderSignup(ctx, &forms.SignupForm{}, nil)
}

func (a *AccountController) renderSignup(ctx *gin.Context, form *forms.SignupForm, errs forms.Errors) {
	form.Password1, form.Password2, form.CaptchaAnswer = "", "", ""
	data := gin.H{"Form": form}
	if errs != nil {
		data["Errors"] = errs
	}
	if a.captcha != nil {
		id, img, err := a.captcha.Generate()
		if err != nil {
			serverError(ctx, "generate captcha failed", err)
			return
		}
		data["CaptchaID"] = id
		data["CaptchaImage"] = template.URL(img)
	}
	render(ctx, http.StatusOK, pageSignup, data)
}

// Signup creates an account and sends the visitor to the login page.
func (a *AccountController) Signup(ctx *gin.Context) {
	ip := ctx.ClientIP()
	if err := a.throttle.Allow(ctx.Request.Context(), ip); err != nil {
		utils.RequestLogger(ctx).Info("signup throttled", zap.String("ip", ip), zap.Error(err))
		middleware.AbortWithPage(ctx, http.StatusTooManyRequests)
		return
	}

	var form forms.SignupForm
	_ = ctx.ShouldBind(&form)
	errs := form.Validate()
	if a.captcha != nil && !a.captcha.Verify(form.CaptchaID, form.CaptchaAnswer) {
		errs.Add("captcha", forms.MsgInvalidCaptcha)
	}

	if err := a.checkUnique(ctx, &form, errs); err != nil {
		serverError(ctx, "signup uniqueness check failed", err)
		return
	}
	if errs.Any() {
		a.renderSignup(ctx, &form, errs)
		return
	}

	hash, err := utils.HashPassword(form.Password1)
	if err != nil {
		serverError(ctx, "hash password failed", err)
		return
	}
	user := models.NewUser(form.Username, form.Email, hash)
	user.Age = form.AgeValue()
	if err := a.db.WithContext(ctx.Request.Context()).Create(user).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			serverError(ctx, "create user failed", err)
			return
		}
		// a concurrent signup took the name or email after checkUnique ran
		if err := a.checkUnique(ctx, &form, errs); err != nil {
			serverError(ctx, "signup uniqueness check failed", err)
			return
		}
		if !errs.Any() {
			errs.Add("username", forms.MsgUsernameTaken)
		}
		a.renderSignup(ctx, &form, errs)
		return
	}

	a.throttle.RecordSuccess(ctx.Request.Context(), ip)
	metrics.SignupsTotal.Inc()
	utils.RequestLogger(ctx).Info("user signed up", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	utils.RedirectAfterPost(ctx, middleware.LoginPath)
}

func (a *AccountController) checkUnique(ctx *gin.Context, form *forms.SignupForm, errs forms.Errors) error {
	checks := []struct {
		field, column, value, msg string
	}{
		{"username", "username", form.Username, forms.MsgUsernameTaken},
		{"email", "email", form.Email, forms.MsgEmailTaken},
	}
	for _, c := range checks {
		if errs.Has(c.field) {
			continue
		}
		var n int64
		if err := a.db.WithContext(ctx.Request.Context()).Model(&models.User{}).
			Where("LOWER("+c.column+") = LOWER(?)", c.value).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			errs.Add(c.field, c.msg)
		}
	}
	return nil
}

// LoginForm renders the login page, keeping ?next for the submission.
func (a *AccountController) LoginForm(ctx *gin.Context) {
	render(ctx, http.StatusOK, pageLogin, gin.H{
		"Form": &forms.LoginForm{},
		"Next": ctx.Query("next"),
	})
}

// Login authenticates the credentials and starts a fresh session.
func (a *AccountController) Login(ctx *gin.Context) {
	var form forms.LoginForm
	_ = ctx.ShouldBind(&form)
	if form.Next == "" {
		form.Next = ctx.Query("next")
	}

	errs := form.Validate()
	var user models.User
	if !errs.Any() {
		err := a.db.WithContext(ctx.Request.Context()).Where("username = ?", form.Username).First(&user).Error
		switch {
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			serverError(ctx, "login lookup failed", err)
			return
		case err != nil || !utils.CheckPassword(user.PasswordHash, form.Password):
			metrics.ObserveLogin(metrics.LoginInvalid)
			errs.Add(forms.NonFieldErrors, forms.MsgInvalidLogin)
		case !user.IsActive:
			metrics.ObserveLogin(metrics.LoginInactive)
			errs.Add(forms.NonFieldErrors, forms.MsgInactiveAccount)
		}
	}
	if errs.Any() {
		form.Password = ""
		render(ctx, http.StatusOK, pageLogin, gin.H{"Form": &form, "Errors": errs, "Next": form.Next})
		return
	}

	if err := a.sessions.Login(ctx, &user); err != nil {
		serverError(ctx, "start session failed", err)
		return
	}
	now := time.Now()
	if err := a.db.WithContext(ctx.Request.Context()).Model(&user).Update("last_login", now).Error; err != nil {
		utils.RequestLogger(ctx).Warn("update last_login failed", zap.Error(err))
	}
	metrics.ObserveLogin(metrics.LoginSuccess)

	next, ok := utils.SafeNext(form.Next)
	if !ok {
		next = "/"
	}
	utils.RedirectAfterPost(ctx, next)
}

// Logout ends the session and returns to the homepage.
func (a *AccountController) Logout(ctx *gin.Context) {
	if err := a.sessions.Logout(ctx); err != nil {
		utils.RequestLogger(ctx).Warn("delete session failed", zap.Error(err))
	}
	utils.RedirectAfterPost(ctx, "/")
}

// PasswordChangeForm renders the password change page.
func (a *AccountController) PasswordChangeForm(ctx *gin.Context) {
	render(ctx, http.StatusOK, pagePasswordChange, gin.H{"Form": &forms.PasswordChangeForm{}})
}

// PasswordChange verifies the old password and stores the new one.
func (a *AccountController) PasswordChange(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)

	var form forms.PasswordChangeForm
	_ = ctx.ShouldBind(&form)
	errs := form.Validate(
		forms.UserAttribute{Label: "username", Value: user.Username},
		forms.UserAttribute{Label: "email address", Value: user.Email},
	)
	if form.OldPassword != "" && !utils.CheckPassword(user.PasswordHash, form.OldPassword) {
		errs.Add("old_password", forms.MsgWrongOldPassword)
	}
	if errs.Any() {
		render(ctx, http.StatusOK, pagePasswordChange, gin.H{"Form": &forms.PasswordChangeForm{}, "Errors": errs})
		return
	}

	hash, err := utils.HashPassword(form.NewPassword1)
	if err != nil {
		serverError(ctx, "hash password failed", err)
		return
	}
	if err := a.db.WithContext(ctx.Request.Context()).Model(user).Update("password_hash", hash).Error; err != nil {
		serverError(ctx, "update password failed", err)
		return
	}
	user.PasswordHash = hash
	if err := a.sessions.RefreshAuthHash(ctx, user); err != nil {
		serverError(ctx, "refresh session failed", err)
		return
	}
	utils.RequestLogger(ctx).Info("password changed", zap.Uint("user_id", user.ID))
	utils.RedirectAfterPost(ctx, passwordChangeDonePath)
}

// PasswordChangeDone confirms a successful password change.
func (a *AccountController) PasswordChangeDone(ctx *gin.Context) {
	render(ctx, http.StatusOK, pagePasswordChangeDone, nil)
}
