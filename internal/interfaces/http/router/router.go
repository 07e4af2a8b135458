// Package router 提供 HTTP 路由配置
package router

import (
	"aipen-studio-api/internal/config"
	"aipen-studio-api/internal/interfaces/http/handler"
	"aipen-studio-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由所需的全部处理器
type Handlers struct {
	Health *handler.HealthHandler
	Studio *handler.StudioHandler
	Book   *handler.BookHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		cfg:      cfg,
		handlers: handlers,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	// 系统端点
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API v1 路由组
	v1 := r.engine.Group("/v1")
	{
		// 工作台路由
		studio := v1.Group("/studio")
		{
			studio.GET("", r.handlers.Studio.State)
			studio.POST("/outline", r.handlers.Studio.StartOutline)
			studio.PUT("/outline/chapters/:cid", r.handlers.Studio.RenameChapter)
			studio.DELETE("/outline/chapters/:cid", r.handlers.Studio.RemoveChapter)
			studio.POST("/write", r.handlers.Studio.ConfirmWriting)
			studio.POST("/navigate", r.handlers.Studio.Navigate)
			studio.POST("/chapter-cursor", r.handlers.Studio.SetChapterCursor)
		}

		// 项目库路由
		books := v1.Group("/books")
		{
			books.GET("", r.handlers.Book.List)
			books.GET("/:bid", r.handlers.Book.Get)
			books.DELETE("/:bid", r.handlers.Book.Delete)
			books.POST("/:bid/open", r.handlers.Book.Open)
			books.POST("/:bid/chapters/:cid/illustrations", r.handlers.Book.GenerateIllustration)
			books.GET("/:bid/export", r.handlers.Book.Export)
		}
	}
}
