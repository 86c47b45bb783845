package router

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/tinynews/internal/config"
	"github.com/tinynews/internal/handler"
	"github.com/tinynews/internal/service"
	"github.com/tinynews/web"
	"gorm.io/gorm"
)

// 表单字段与 multipart 边界的额外余量
const multipartOverhead = 1 << 20

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(cfg config.AppConfig, gdb *gorm.DB, log zerolog.Logger) (*gin.Engine, error) {
	r := gin.New()
	r.Use(recoveryMiddleware(log))
	r.Use(loggingMiddleware(log))
	if len(cfg.CORSAllowedOrigins) > 0 {
		// 挂在引擎上，预检请求在路由匹配前即可得到响应
		r.Use(apiOnly(corsMiddleware(cfg.CORSAllowedOrigins)))
	}

	// 配置会话中间件
	store, err := newSessionStore(cfg, gdb)
	if err != nil {
		return nil, err
	}
	r.Use(sessions.Sessions(cfg.Session.Name, store))
	r.Use(handler.LoadSession())

	tmpl, err := web.Templates(handler.TemplateFuncs())
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	uploads := service.NewUploadService(cfg.Upload.Dir, cfg.Upload.URLPath, cfg.Upload.MaxBytes)
	api := handler.NewAPI(gdb, uploads, sessionOptions(cfg), log)
	limitUpload := handler.LimitBody(cfg.Upload.MaxBytes + multipartOverhead)

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/register")
	})
	r.GET("/welcome", api.Welcome)
	r.GET("/healthz", api.HealthCheck)

	r.GET("/register", api.ShowRegister)
	r.POST("/register", api.Register)
	r.GET("/login", api.ShowLogin)
	r.POST("/login", api.Login)
	r.GET("/logout", api.Logout)
	r.GET("/home", api.ShowHome)
	r.GET("/article/:id", api.ShowArticle)
	r.GET(uploads.URLPath()+"/*filepath", api.ServeUpload)
	r.HEAD(uploads.URLPath()+"/*filepath", api.ServeUpload)

	// 需要登录的页面
	auth := r.Group("")
	auth.Use(handler.RequireUser())
	{
		auth.GET("/profile", api.ShowProfile)
		auth.GET("/new_article", api.ShowNewArticle)
		auth.POST("/new_article", limitUpload, api.CreateArticle)
		auth.GET("/edit_article/:id", api.ShowEditArticle)
		auth.POST("/edit_article/:id", limitUpload, api.UpdateArticle)
		auth.POST("/like/:id", api.ToggleLike)
		auth.POST("/comment/:id", api.AddComment)
	}

	// JSON 接口
	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/register", api.APIRegister)
		apiGroup.POST("/login", api.APILogin)
		apiGroup.GET("/articles", api.APIFeed)

		authed := apiGroup.Group("")
		authed.Use(handler.RequireAPIUser())
		{
			authed.GET("/profile", api.APIProfile)
			authed.POST("/like/:id", api.APIToggleLike)
		}
	}

	return r, nil
}

func newSessionStore(cfg config.AppConfig, gdb *gorm.DB) (sessions.Store, error) {
	secret := []byte(cfg.Session.Secret)

	var store sessions.Store
	switch cfg.Session.Store {
	case config.SessionStoreDatabase:
		store = gormsessions.NewStore(gdb, true, secret)
	case config.SessionStoreCookie:
		store = cookie.NewStore(secret)
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.Session.Store)
	}

	store.Options(sessionOptions(cfg))
	return store, nil
}

// sessionOptions 同时用于会话存储和登录时重新签发的 Cookie
func sessionOptions(cfg config.AppConfig) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Session.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   !cfg.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// apiOnly restricts a middleware to /api paths.
func apiOnly(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Next()
			return
		}
		next(c)
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		statusCode := c.Writer.Status()
		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request completed")
	}
}
