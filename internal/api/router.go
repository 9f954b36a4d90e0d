package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/timmy/crafto/internal/api/handler"
	"github.com/timmy/crafto/internal/api/middleware"
	"github.com/timmy/crafto/internal/config"
	"github.com/timmy/crafto/internal/logger"
	"github.com/timmy/crafto/internal/service"
	"github.com/timmy/crafto/internal/session"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Auth       *service.AuthService
	Workspaces *service.Workspaces
	Store      session.Store
	Logger     *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps *Deps, cfg *config.Config) (*gin.Engine, error) {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	log := deps.Logger
	if log == nil {
		log = logger.GetDefault()
	}

	tmpl, err := handler.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.MaxMultipartMemory = cfg.Upload.MaxBytes + 1<<20

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	counter, _ := deps.Store.(handler.SessionCounter)
	healthHandler := handler.NewHealthHandler(deps.Workspaces, counter)
	pages := handler.NewPageHandler(deps.Auth, deps.Workspaces, handler.PageConfig{
		InvalidSessionDelay: cfg.Server.InvalidSessionDelay,
		MaxUploadBytes:      cfg.Upload.MaxBytes,
	})

	r.GET("/health", healthHandler.Health)

	web := r.Group("/")
	web.Use(middleware.Session(deps.Store, middleware.SessionConfig{
		CookieName: cfg.Server.CookieName,
		Secure:     cfg.Server.CookieSecure,
	}))
	{
		web.GET("/", pages.Home)
		web.GET(handler.LoginPath, pages.LoginForm)
		web.POST(handler.LoginPath, pages.Login)
		web.POST("/logout", pages.Logout)

		authed := web.Group("/")
		authed.Use(middleware.RequireLogin(handler.LoginPath))
		{
			authed.GET(handler.QuotesPath, pages.Quotes)
			authed.POST(handler.QuotesPath+"/more", pages.LoadMore)
			authed.GET(handler.CreatePath, pages.CreateForm)
			authed.POST(handler.CreatePath, pages.Create)
		}
	}

	return r, nil
}
