// Package web exposes the HTTP surface: login, the server console pages,
// management screens and the WebSocket endpoints feeding them.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/DSroD/PyCon/internal/auth"
	"github.com/DSroD/PyCon/internal/config"
	"github.com/DSroD/PyCon/internal/htmx"
	"github.com/DSroD/PyCon/internal/metrics"
	"github.com/DSroD/PyCon/internal/model"
	"github.com/DSroD/PyCon/internal/pubsub"
	"github.com/DSroD/PyCon/internal/service"
	"github.com/DSroD/PyCon/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Deps collects everything the handlers need.
type Deps struct {
	Config   config.Config
	Logger   zerolog.Logger
	Bus      *pubsub.Bus
	Users    store.UserStore
	Servers  store.ServerStore
	Tokens   *auth.JWTManager
	Runtime  *service.Runtime
	Status   *service.ServerStatusService
	Renderer htmx.Renderer
	Metrics  *metrics.Metrics
}

type handlers struct {
	Deps
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps Deps) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(deps.Logger))
	engine.SetHTMLTemplate(templates)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}
	engine.StaticFS("/static", http.FS(static))

	h := &handlers{Deps: deps}

	engine.GET("/login", h.loginPage)
	engine.POST("/login", h.login)
	engine.POST("/logout", h.logout)

	if deps.Config.MetricsEnabled && deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	pages := engine.Group("/", h.requireUser(true))
	{
		pages.GET("/", h.indexPage)
		pages.GET("/servers/:uid", h.consolePage)

		serverAdmin := pages.Group("/manage/servers", h.requireCapability(model.CapServerManagement))
		{
			serverAdmin.GET("", h.serversPage)
			serverAdmin.POST("", h.createServer)
			serverAdmin.POST("/:uid", h.updateServer)
			serverAdmin.POST("/:uid/delete", h.deleteServer)
		}

		userAdmin := pages.Group("/manage/users", h.requireCapability(model.CapUserManagement))
		{
			userAdmin.GET("", h.usersPage)
			userAdmin.POST("", h.createUser)
			userAdmin.POST("/:username", h.updateUser)
			userAdmin.POST("/:username/delete", h.deleteUser)
		}
	}

	ws := engine.Group("/ws")
	{
		ws.GET("/heartbeat", h.heartbeatWS)
		ws.GET("/notifications", h.notificationsWS)
		ws.GET("/servers", h.serverStatusWS)
		ws.GET("/servers/:uid", h.serverStatusDetailWS)
		ws.GET("/rcon/:uid", h.rconWS)
	}

	return engine, nil
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("request")
	}
}
