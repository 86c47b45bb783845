package handler

import (
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/tinynews/internal/service"
	"gorm.io/gorm"
)

const siteName = "TinyNews"

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db         *gorm.DB
	auth       *service.AuthService
	articles   *service.ArticleService
	engagement *service.EngagementService
	uploads    *service.UploadService
	log        zerolog.Logger

	sessionOptions sessions.Options
}

// NewAPI constructs a handler set with shared services. sessionOptions must
// match the options the session store was configured with.
func NewAPI(gdb *gorm.DB, uploads *service.UploadService, sessionOptions sessions.Options, log zerolog.Logger) *API {
	return &API{
		db:         gdb,
		auth:       service.NewAuthService(gdb),
		articles:   service.NewArticleService(gdb, uploads),
		engagement: service.NewEngagementService(gdb),
		uploads:    uploads,
		log:        log.With().Str("component", "handler").Logger(),

		sessionOptions: sessionOptions,
	}
}

func (a *API) renderHTML(c *gin.Context, status int, template string, data gin.H) {
	payload := gin.H{}
	for key, value := range data {
		payload[key] = value
	}

	if _, exists := payload["user"]; !exists {
		payload["user"] = CurrentUser(c)
	}
	if _, exists := payload["siteName"]; !exists {
		payload["siteName"] = siteName
	}
	if _, exists := payload["year"]; !exists {
		payload["year"] = time.Now().Year()
	}

	c.HTML(status, template, payload)
}

// renderError 渲染通用错误页。
func (a *API) renderError(c *gin.Context, status int, message string) {
	a.renderHTML(c, status, "error.html", gin.H{
		"title":   message,
		"status":  status,
		"message": message,
	})
}

// logFailure 记录路由边界上的内部错误，响应中不携带错误细节。
func (a *API) logFailure(c *gin.Context, err error, msg string) {
	a.log.Error().
		Err(err).
		Str("method", c.Request.Method).
		Str("route", c.FullPath()).
		Msg(msg)
}
