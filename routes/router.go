package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/newspaper/config"
	"github.com/cppla/newspaper/controllers"
	"github.com/cppla/newspaper/middleware"
	"github.com/cppla/newspaper/templates"
	"github.com/cppla/newspaper/utils"
)

// Deps are the shared resources the router hands to middlewares and controllers.
type Deps struct {
	Config   config.AppConfig
	DB       *gorm.DB
	Sessions utils.SessionStore
	Throttle *utils.SignupThrottle
	// Captcha guards signup when set.
	Captcha *utils.Captcha
	// AccessLog receives the gin access log; nil falls back to a rolling file at Config.GinPath.
	AccessLog *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.HTMLRender = templates.MustNew()

	r.Use(middleware.RequestID())
	gl := deps.AccessLog
	if gl == nil {
		var err error
		if gl, err = utils.NewRollingFileLogger(cfg.GinPath, cfg); err != nil {
			utils.Sugar.Warnf("gin access log disabled: %v", err)
			gl = utils.Logger
		}
	}
	r.Use(ginzap.GinzapWithConfig(gl, utils.AccessLogConfig()))
	r.Use(ginzap.RecoveryWithZap(gl, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", middleware.RequestIDHeader, middleware.CSRFHeaderName},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.Metrics())

	sessions := middleware.NewSessionManager(deps.DB, deps.Sessions, cfg)
	r.Use(sessions.Load())
	r.Use(middleware.CSRF(cfg))

	r.GET("/health", func(ctx *gin.Context) {
		if sqlDB, err := deps.DB.DB(); err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
			utils.Respond(ctx, http.StatusServiceUnavailable, 50300, "database unavailable", nil)
			return
		}
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	pageController := controllers.NewPageController()
	accountController := controllers.NewAccountController(deps.DB, sessions, deps.Throttle, deps.Captcha)
	articleController := controllers.NewArticleController(deps.DB)

	r.GET("/", pageController.Home)

	accounts := r.Group("/accounts")
	accounts.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	accounts.GET("/signup", middleware.AnonymousOnly(), accountController.SignupForm)
	accounts.POST("/signup", middleware.AnonymousOnly(), accountController.Signup)
	accounts.GET("/login", accountController.LoginForm)
	accounts.POST("/login", accountController.Login)
	accounts.POST("/logout", accountController.Logout)

	protectedAccounts := accounts.Group("", middleware.LoginRequired())
	protectedAccounts.GET("/password_change", accountController.PasswordChangeForm)
	protectedAccounts.POST("/password_change", accountController.PasswordChange)
	protectedAccounts.GET("/password_change/done", accountController.PasswordChangeDone)

	articles := r.Group("/articles", middleware.LoginRequired())
	articles.GET("/", articleController.List)
	articles.GET("/new", articleController.NewForm)
	articles.POST("/new", articleController.Create)
	articles.GET("/details/:id", articleController.Detail)
	articles.POST("/details/:id", articleController.Detail)

	r.NoRoute(func(ctx *gin.Context) {
		middleware.AbortWithPage(ctx, http.StatusNotFound)
	})
	r.NoMethod(func(ctx *gin.Context) {
		middleware.AbortWithPage(ctx, http.StatusMethodNotAllowed)
	})

	return r
}
